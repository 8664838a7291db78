package symbols

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// matcher is one symbol's compiled alias pattern. All aliases of a symbol are
// combined into a single case-insensitive word-boundary alternation, so a
// ticker embedded inside a longer alphanumeric token never matches.
type matcher struct {
	symbol  string
	pattern *regexp.Regexp
}

func newMatcher(e Entry) (matcher, error) {
	aliases := e.Aliases
	if len(aliases) == 0 {
		aliases = []string{e.Symbol}
	}

	parts := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}
		parts = append(parts, regexp.QuoteMeta(alias))
	}
	if len(parts) == 0 {
		return matcher{}, fmt.Errorf("symbol %s has no usable aliases", e.Symbol)
	}

	pattern, err := regexp.Compile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
	if err != nil {
		return matcher{}, fmt.Errorf("failed to compile pattern for %s: %w", e.Symbol, err)
	}
	return matcher{symbol: e.Symbol, pattern: pattern}, nil
}

// Detect returns the canonical symbols mentioned in text, sorted and deduped.
// An empty result is a valid, common outcome. When two symbols share an
// alias, both are returned; there is no implicit priority. Pure function of
// (text, snapshot).
func (s *Snapshot) Detect(text string) []string {
	if text == "" {
		return nil
	}

	var hits []string
	for _, m := range s.matchers {
		if m.pattern.MatchString(text) {
			hits = append(hits, m.symbol)
		}
	}
	sort.Strings(hits)
	return hits
}
