package parser

import (
	"regexp"
	"strconv"
	"strings"
)

// dottedThousands matches Indonesian-style grouped integers such as
// "25.000" or "8.319.886" where the periods are thousands separators.
// A leading zero integer part ("0.123") is excluded so canonical decimals
// survive re-normalization.
var dottedThousands = regexp.MustCompile(`^-?[1-9]\d{0,2}(\.\d{3})+$`)

// NormalizeAmount converts a locale-ambiguous numeric string into a
// canonical decimal value. Indonesian convention uses "." for thousands and
// "," for decimals; international convention is the reverse. Currency
// symbols, letters and whitespace are ignored. Returns nil when no valid
// number remains. Never panics; pure function of its input.
func NormalizeAmount(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" || s == "-" || s == "." || s == "," {
		return nil
	}

	periods := strings.Count(s, ".")
	commas := strings.Count(s, ",")

	switch {
	case periods > 1 && commas == 1:
		// Indonesian thousands with decimal comma: 8.319.886,52
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case commas > 1 && periods <= 1:
		// International thousands: 8,319,886.52
		s = strings.ReplaceAll(s, ",", "")
	case commas == 1 && periods == 0:
		// Lone comma is a decimal separator: 886,52
		s = strings.Replace(s, ",", ".", 1)
	case periods >= 1 && commas == 0:
		if dottedThousands.MatchString(s) {
			// 25.000 means twenty-five thousand in Indonesian convention
			s = strings.ReplaceAll(s, ".", "")
		} else if periods > 1 {
			// Multiple dots that are not clean groups: the last one is the
			// decimal separator, the rest are noise.
			i := strings.LastIndex(s, ".")
			s = strings.ReplaceAll(s[:i], ".", "") + s[i:]
		}
		// A single dot not forming a thousands group is already canonical.
	default:
		// Both separators present in ambiguous counts: whichever occurs
		// last is the decimal separator.
		if strings.LastIndex(s, ".") > strings.LastIndex(s, ",") {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	// Final cleanup: one leading minus, one decimal point.
	neg := strings.HasPrefix(s, "-")
	s = strings.ReplaceAll(s, "-", "")
	if i := strings.Index(s, "."); i >= 0 {
		s = s[:i+1] + strings.ReplaceAll(s[i+1:], ".", "")
	}
	if s == "" || s == "." {
		return nil
	}
	if neg {
		s = "-" + s
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
