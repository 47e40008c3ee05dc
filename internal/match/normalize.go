package match

import (
	"regexp"
	"strings"
)

var (
	separatorRun = regexp.MustCompile(`[\s\-]+`)
	nonKeyChars  = regexp.MustCompile(`[^a-z0-9_]`)
	spaceRun     = regexp.MustCompile(`\s+`)
	roleQuotes   = "\"'`“”‘’"
)

// CategoryKey maps a free-form category label ("Account Number", "account-number",
// " OTP ") onto the snake_case key form used by the persona vocabularies.
func CategoryKey(input string) string {
	lower := strings.ToLower(strings.TrimSpace(input))
	lower = separatorRun.ReplaceAllString(lower, "_")
	lower = nonKeyChars.ReplaceAllString(lower, "")
	return strings.Trim(lower, "_")
}

// Categories normalizes labels into keys, dropping empties and duplicates while
// keeping first-seen order.
func Categories(labels []string) []string {
	var out []string
	for _, label := range labels {
		out = appendUnique(out, CategoryKey(label))
	}
	return out
}

// Role tidies a role phrase without paraphrasing it: surrounding quotes and
// punctuation are dropped and internal whitespace is collapsed.
func Role(input string) string {
	trimmed := strings.Trim(strings.TrimSpace(input), roleQuotes+".,;:! ")
	return spaceRun.ReplaceAllString(trimmed, " ")
}

// Preview shortens text for log fields.
func Preview(text string, limit int) string {
	text = spaceRun.ReplaceAllString(strings.TrimSpace(text), " ")
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

func appendUnique(s []string, v string) []string {
	if v == "" {
		return s
	}
	for _, existing := range s {
		if existing == v {
			return s
		}
	}
	return append(s, v)
}
