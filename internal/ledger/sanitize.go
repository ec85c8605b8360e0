package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Sanitize drops characters the ledger contract does not accept and checks size limit.
func Sanitize(s string, limit int) (string, error) {
	if !utf8.ValidString(s) {
		return "", ErrEncoding
	}

	s = strings.TrimSpace(strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return -1
	}, s))

	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrValidation)
	}

	if len(s) > limit {
		return "", fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrValidation, len(s), limit)
	}

	return s, nil
}

// allowed keeps printable ASCII and everything above C1 controls.
func allowed(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7e:
		return true
	case r >= 0xa0:
		return true
	default:
		return false
	}
}
