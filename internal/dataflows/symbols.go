package dataflows

import (
	"errors"
	"fmt"
	"strings"
)

const maxSymbolLen = 10

var ErrInvalidSymbol = errors.New("invalid symbol")

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func ValidateSymbol(symbol string) error {
	s := NormalizeSymbol(symbol)
	switch {
	case s == "":
		return fmt.Errorf("%w: empty", ErrInvalidSymbol)
	case len(s) > maxSymbolLen:
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidSymbol, s, maxSymbolLen)
	case strings.ContainsAny(s, " \t/?&="):
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return nil
}

// ExtractHeadlines keeps the first max non-blank lines of a search result.
func ExtractHeadlines(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
			if len(out) == max {
				break
			}
		}
	}
	return out
}
