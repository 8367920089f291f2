package identity

import (
	"errors"
	"strings"
)

// ErrInvalidPhone indicates the supplied phone number is not a usable E.164 number.
var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone canonicalizes a phone number into E.164 form: a leading +
// followed by 8 to 15 digits. Spaces, dots, dashes and parentheses are
// stripped before validation.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch r {
		case ' ', '.', '-', '(', ')':
			continue
		default:
			b.WriteRune(r)
		}
	}

	phone := b.String()
	if len(phone) < 9 || len(phone) > 16 || phone[0] != '+' {
		return "", ErrInvalidPhone
	}
	digits := phone[1:]
	if digits[0] == '0' {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return phone, nil
}
