package ingest

import (
	"regexp"
	"strings"
)

var (
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// CleanText strips URLs and collapses runs of whitespace so that symbol
// detection and scoring see plain prose. Markdown links lose their target but
// keep the label text.
func CleanText(s string) string {
	s = urlPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
