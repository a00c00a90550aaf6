package util

import (
	"strconv"
	"strings"
)

// ParseQuantity turns the quantity strings trading partners transmit into a
// plain integer. Some partners send decimal-formatted strings ("238.0");
// the fractional part is truncated. Returns false when the value has no
// usable numeric content.
func ParseQuantity(input string) (int, bool) {
	s := strings.TrimSpace(input)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}

	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// ParsePrice parses a decimal price string. Empty or unparsable input yields
// nil, which downstream stores as an absent price rather than an error.
func ParsePrice(input string) *float64 {
	s := strings.TrimSpace(input)
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return FloatPtr(f)
}
