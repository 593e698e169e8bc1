package service

import (
	"regexp"
	"strings"
)

var kenyanPhonePattern = regexp.MustCompile(`^(\+254|254|0)?[17]\d{8}$`)

// digitsOnly strips everything but digits and a leading plus sign
func digitsOnly(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidKenyanPhone reports whether phone is a Kenyan mobile number in
// local (07.., 01..), bare (7..) or international (254.., +254..) form
func IsValidKenyanPhone(phone string) bool {
	return kenyanPhonePattern.MatchString(digitsOnly(phone))
}

// FormatKenyanPhone converts a Kenyan mobile number to +254XXXXXXXXX.
// Numbers that do not look Kenyan are returned with formatting stripped.
func FormatKenyanPhone(phone string) string {
	p := strings.TrimPrefix(digitsOnly(phone), "+")
	switch {
	case strings.HasPrefix(p, "254") && len(p) == 12:
		return "+" + p
	case strings.HasPrefix(p, "0") && len(p) == 10:
		return "+254" + p[1:]
	case len(p) == 9 && (p[0] == '7' || p[0] == '1'):
		return "+254" + p
	}
	return digitsOnly(phone)
}

// SamePhone compares two phone numbers ignoring formatting
func SamePhone(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return FormatKenyanPhone(a) == FormatKenyanPhone(b)
}

// countDigits returns the number of digits in phone
func countDigits(phone string) int {
	n := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
