// Package validation provides numeric input sanitation for user-typed
// token amounts.
package validation

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// SanitizeAmount normalizes a user-typed amount string: strips anything
// that is not a digit or separator, converts commas to dots, keeps only
// the first decimal point and trims redundant leading zeros.
//
// Parameters:
// - value: the raw user input.
//
// Returns:
// - string: the normalized amount string, empty if the input was empty.
func SanitizeAmount(value string) string {
	if value == "" {
		return ""
	}

	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	clean := strings.ReplaceAll(b.String(), ",", ".")

	if i := strings.Index(clean, "."); i >= 0 {
		clean = clean[:i+1] + strings.ReplaceAll(clean[i+1:], ".", "")
	}

	if strings.HasPrefix(clean, "0") && len(clean) > 1 && !strings.HasPrefix(clean, "0.") {
		clean = strings.TrimLeft(clean, "0")
		if clean == "" || strings.HasPrefix(clean, ".") {
			clean = "0" + clean
		}
	}

	if strings.HasPrefix(clean, ".") {
		clean = "0" + clean
	}

	return clean
}

// IsValidAmount reports whether the value parses as a finite,
// non-negative number.
func IsValidAmount(value string) bool {
	if value == "" || value == "." {
		return false
	}
	n, err := strconv.ParseFloat(value, 64)
	return err == nil && n >= 0
}

// FormatAmount renders a numeric string with at most the given number
// of decimal places, dropping trailing zeros. Invalid input renders as
// "0".
func FormatAmount(value string, places int32) string {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return "0"
	}
	return d.Round(places).String()
}

// ParseAmount converts an amount string to a float, returning 0 when
// the input does not parse.
func ParseAmount(value string) float64 {
	n, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0
	}
	return n
}
