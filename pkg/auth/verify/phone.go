package verify

import "strings"

// phoneDigits is the number of national digits a submission must carry.
const phoneDigits = 10

// SanitizePhone strips everything but digits and truncates to ten digits.
// It is idempotent: sanitized input passes through unchanged.
func SanitizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		if b.Len() == phoneDigits {
			break
		}
	}
	return b.String()
}

// NormalizePhone renders a sanitized ten-digit number in E.164-ish form
// with the configured country prefix, e.g. "+911234567890".
func NormalizePhone(countryPrefix, digits string) string {
	return "+" + countryPrefix + digits
}
