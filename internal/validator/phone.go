package validator

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned for input that matches none of the accepted
// phone shapes.
var ErrInvalidPhone = errors.New("invalid phone number")

// Accepted shapes (after stripping non-digits):
//
//	09XXXXXXXX    canonical local form, 10 digits
//	9XXXXXXXX     local form without the leading zero, 9 digits
//	2189XXXXXXXX  international form with country code, 12 digits
//
// NormalizePhone reduces all of them to the canonical local form, so the
// function is idempotent: normalizing an already canonical number returns it
// unchanged.
func NormalizePhone(s string) (string, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()

	switch {
	case len(d) == 12 && strings.HasPrefix(d, "2189"):
		d = "0" + d[3:]
	case len(d) == 10 && strings.HasPrefix(d, "09"):
		// already canonical
	case len(d) == 9 && strings.HasPrefix(d, "9"):
		d = "0" + d
	default:
		return "", ErrInvalidPhone
	}
	return d, nil
}

// IsValidPhone reports whether the input matches an accepted phone shape.
func IsValidPhone(s string) bool {
	_, err := NormalizePhone(s)
	return err == nil
}
