package parser

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
		isNil bool
	}{
		{name: "indonesian thousands with decimal comma", input: "8.319.886,52", want: 8319886.52},
		{name: "international thousands with decimal point", input: "8,319,886.52", want: 8319886.52},
		{name: "dotted thousands without decimals", input: "25.000", want: 25000},
		{name: "multi group dotted thousands", input: "1.234.567", want: 1234567},
		{name: "lone decimal comma", input: "886,52", want: 886.52},
		{name: "canonical decimal", input: "1234.56", want: 1234.56},
		{name: "plain integer", input: "42", want: 42},
		{name: "rupiah prefix", input: "Rp 1.500.000", want: 1500000},
		{name: "currency code suffix", input: "1,250.75 USD", want: 1250.75},
		{name: "dollar sign", input: "$99.99", want: 99.99},
		{name: "negative amount", input: "-2.500,00", want: -2500},
		{name: "ambiguous last dot wins", input: "1,234.56", want: 1234.56},
		{name: "ambiguous last comma wins", input: "1.234,56", want: 1234.56},
		{name: "small canonical decimal survives", input: "0.123", want: 0.123},
		{name: "two decimal places not a group", input: "25.00", want: 25},
		{name: "empty string", input: "", isNil: true},
		{name: "letters only", input: "abc", isNil: true},
		{name: "lone minus", input: "-", isNil: true},
		{name: "lone dot", input: ".", isNil: true},
		{name: "currency only", input: "Rp", isNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeAmount(tt.input)
			if tt.isNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, tt.want, *got, 1e-9)
		})
	}
}

func TestNormalizeAmountIdempotent(t *testing.T) {
	inputs := []string{
		"8.319.886,52", "8,319,886.52", "25.000", "886,52", "1234.56",
		"-2.500,00", "0.123", "42", "Rp 1.500.000",
	}
	for _, in := range inputs {
		first := NormalizeAmount(in)
		require.NotNil(t, first, in)

		rendered := strconv.FormatFloat(*first, 'f', -1, 64)
		second := NormalizeAmount(rendered)
		require.NotNil(t, second, rendered)
		assert.InDelta(t, *first, *second, 1e-9, "input %q re-normalized as %q", in, rendered)
	}
}

func TestNormalizeAmountNeverPanics(t *testing.T) {
	for _, in := range []string{"..", ",,", "-.-", "1..2", "1,,2", "--5", ".5.", "RpRp", "1.2.3.4,5,6"} {
		assert.NotPanics(t, func() { NormalizeAmount(in) }, in)
	}
}
