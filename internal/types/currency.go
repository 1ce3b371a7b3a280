package types

import (
	"fmt"
	"math"
	"strconv"
)

// CentsToMajor converts a cents amount to major currency units for the
// edit-form boundary. 1234 -> 12.34.
func CentsToMajor(cents int64) float64 {
	return float64(cents) / 100
}

// MajorToCents converts a major-unit amount to cents for storage.
// 12.34 -> 1234. Rounds half away from zero to absorb float noise from
// form parsing.
func MajorToCents(major float64) int64 {
	return int64(math.Round(major * 100))
}

// FormatCurrency renders a cents amount as a US-dollar display string with
// thousands separators, e.g. 123456789 -> "$1,234,567.89". Display only;
// comparisons and storage always use cents.
func FormatCurrency(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}

	dollars := cents / 100
	remainder := cents % 100

	return fmt.Sprintf("%s$%s.%02d", sign, groupThousands(dollars), remainder)
}

// groupThousands renders n with comma separators every three digits.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
