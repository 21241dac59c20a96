package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone strips formatting characters so the same subscriber
// always maps to the same key.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(phone)
}

// ValidatePhone normalizes and sanity-checks a phone number. It accepts an
// optional leading "+" followed by 10 to 15 digits.
func ValidatePhone(phone string) (string, error) {
	normalized := NormalizePhone(phone)

	digits := normalized
	if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return normalized, nil
}

// PhoneHash returns a stable hex digest of a normalized phone number,
// used as a lookup key and in log/event payloads so raw numbers stay out
// of downstream systems.
func PhoneHash(phone string) string {
	sum := sha256.Sum256([]byte(NormalizePhone(phone)))
	return hex.EncodeToString(sum[:])
}
