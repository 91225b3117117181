package common

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ErrNotNumeric is returned by ParseReading for values like "N/A" or "NaN".
var ErrNotNumeric = errors.New("reading is not numeric")

// TrimReading removes surrounding whitespace and control characters.
// Some upstream fields arrive with "\r\n" or "\b" appended.
func TrimReading(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
}

// ParseReading parses a trimmed reading as a finite float64.
func ParseReading(s string) (float64, error) {
	f, err := strconv.ParseFloat(TrimReading(s), 64)
	if err != nil {
		return 0, ErrNotNumeric
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	return f, nil
}

// FormatReading renders a stored float the way the upstream API would send it.
func FormatReading(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
