package notification

import (
	"regexp"
	"strings"
)

var htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)

// Sanitize cleans a pull request or review body for chat rendering. HTML
// comments are dropped, the first <sup> becomes a subtext marker, and the
// first </sup> and [!NOTE] are removed. An empty result yields fallback.
func Sanitize(body, fallback string) string {
	out := htmlCommentRe.ReplaceAllString(body, "")
	out = strings.Replace(out, "<sup>", "-# ", 1)
	out = strings.Replace(out, "</sup>", "", 1)
	out = strings.Replace(out, "[!NOTE]", "", 1)
	if strings.TrimSpace(out) == "" {
		return fallback
	}
	return out
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
