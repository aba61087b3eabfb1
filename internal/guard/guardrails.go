package guard

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxRequestRunes caps the size of a traveler request sent to the agents.
const MaxRequestRunes = 2000

var ErrEmptyRequest = errors.New("request is empty")

// CleanRequest drops control characters (newlines and tabs are kept),
// trims the text and enforces the size limit.
func CleanRequest(msg string) (string, error) {
	if !utf8.ValidString(msg) {
		return "", fmt.Errorf("request is not valid utf-8")
	}
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, msg)
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return "", ErrEmptyRequest
	}
	if n := utf8.RuneCountInString(cleaned); n > MaxRequestRunes {
		return "", fmt.Errorf("request too long: %d > %d characters", n, MaxRequestRunes)
	}
	return cleaned, nil
}
