package policy

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	// Chat bridges address users as <msisdn>@c.us or <msisdn>@s.whatsapp.net.
	chatIDPattern = regexp.MustCompile(`\b\d{8,15}@(?:c\.us|s\.whatsapp\.net|g\.us)\b`)
)

// RedactPII masks common high-risk PII patterns.
func RedactPII(input string) (redacted string, changed bool) {
	out := input
	for _, step := range []struct {
		re   *regexp.Regexp
		mask string
	}{
		{chatIDPattern, "[REDACTED_CHAT_ID]"},
		{emailPattern, "[REDACTED_EMAIL]"},
		// Cards before phones so long digit runs are not classified as phones.
		{cardPattern, "[REDACTED_CARD]"},
		{phonePattern, "[REDACTED_PHONE]"},
	} {
		next := step.re.ReplaceAllString(out, step.mask)
		changed = changed || next != out
		out = next
	}
	return out, changed
}

// LogSafe redacts PII and clips the result to maxRunes for log lines.
func LogSafe(input string, maxRunes int) string {
	out, _ := RedactPII(strings.TrimSpace(input))
	if maxRunes <= 0 || utf8.RuneCountInString(out) <= maxRunes {
		return out
	}
	runes := []rune(out)
	return string(runes[:maxRunes]) + "…"
}
