package rules

import "strings"

const (
	countryCode = "27"
	phoneDigits = 9
)

// NormalizePhone accepts local ("082 123 4567") and international
// ("+27 82 123 4567", "27821234567") forms and returns the E.164 form.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return "", false
		}
	}
	s := b.String()

	var rest string
	switch {
	case strings.HasPrefix(s, "+"+countryCode):
		rest = s[3:]
	case strings.HasPrefix(s, "+"):
		return "", false
	case strings.HasPrefix(s, countryCode) && len(s) == len(countryCode)+phoneDigits:
		rest = s[2:]
	case strings.HasPrefix(s, "0"):
		rest = s[1:]
	default:
		return "", false
	}
	if len(rest) != phoneDigits || rest[0] == '0' {
		return "", false
	}
	return "+" + countryCode + rest, true
}
