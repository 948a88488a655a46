// Package sanitize scrubs direct identifiers from text before it leaves the
// retrieval layer. Every preview string returned to a caller passes through
// Text first.
package sanitize

import "regexp"

var (
	emailRE = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRE = regexp.MustCompile(`\b(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	ssnRE   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	nameRE  = regexp.MustCompile(`\b([A-Z][a-z]+)\s([A-Z][a-z]+)\b`)
)

func Text(text string) string {
	sanitized := emailRE.ReplaceAllString(text, "<EMAIL>")
	sanitized = phoneRE.ReplaceAllString(sanitized, "<PHONE>")
	sanitized = ssnRE.ReplaceAllString(sanitized, "<SSN>")
	sanitized = nameRE.ReplaceAllString(sanitized, "CLIENT_NAME")
	return sanitized
}

// Preview returns the redacted prefix of text, capped at limit runes.
func Preview(text string, limit int) string {
	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		text = string(runes[:limit])
	}
	return Text(text)
}
