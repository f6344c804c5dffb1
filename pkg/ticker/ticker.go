package ticker

import (
	"fmt"
	"regexp"
	"strings"
)

// pattern matches valid ticker symbols: 1-10 uppercase alphanumeric
// characters, with dots (BRK.A) and hyphens (BF-B) for class shares.
var pattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// Validate checks a ticker symbol before it is interpolated into provider
// query strings.
func Validate(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("ticker cannot be empty")
	}
	if !pattern.MatchString(symbol) {
		return fmt.Errorf("invalid ticker format: %q", symbol)
	}
	return nil
}

// Normalize uppercases and trims a symbol, then validates it.
func Normalize(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if err := Validate(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
