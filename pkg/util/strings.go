package util

import (
	"strconv"
	"strings"
)

// ParseFloat parses a decimal string as sent by exchange APIs. Blank input
// is an error like any other malformed number.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// Symbol builds an exchange symbol such as BTCUSDT from a token and quote.
func Symbol(token, quote string) string {
	return strings.ToUpper(strings.TrimSpace(token)) + strings.ToUpper(strings.TrimSpace(quote))
}
