package repository

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateReasonKeepsShortStrings(t *testing.T) {
	assert.Equal(t, "bucket gone", truncateReason("bucket gone"))
	assert.Equal(t, strings.Repeat("x", 2000), truncateReason(strings.Repeat("x", 2000)))
}

func TestTruncateReasonCutsLongStrings(t *testing.T) {
	got := truncateReason(strings.Repeat("x", 5000))
	assert.Len(t, got, 2000)
}

func TestTruncateReasonCutsOnRuneBoundary(t *testing.T) {
	// Three-byte runes put the 2000-byte limit in the middle of a rune.
	long := strings.Repeat("錯", 1000)
	got := truncateReason(long)

	assert.LessOrEqual(t, len(got), 2000)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 666, utf8.RuneCountInString(got))
}
