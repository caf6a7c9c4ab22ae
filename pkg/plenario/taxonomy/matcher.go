package taxonomy

import (
	"sort"
	"strings"

	"github.com/civimetrics/plenario/pkg/plenario/norm"
)

// Matcher evaluates every compiled pattern against a text. Patterns are
// scanned linearly in compilation order; at a few hundred keywords that is
// cheaper than maintaining an index and keeps first-match keyword order
// identical to definition order.
type Matcher struct {
	patterns []Pattern
}

// NewMatcher creates a matcher over the compiled pattern list.
func NewMatcher(patterns []Pattern) *Matcher {
	return &Matcher{patterns: patterns}
}

// Result is the outcome of matching one text.
type Result struct {
	Keywords []string // original keyword strings, first-match order, unique
	Clients  []string // sorted ascending, unique
	Themes   []string // sorted ascending, unique
}

// Match evaluates all patterns against the text. Empty or whitespace-only
// text matches nothing.
func (m *Matcher) Match(text string) Result {
	nt := norm.NormalizeWS(text)
	if nt == "" {
		return Result{}
	}
	padded := " " + nt + " "

	var res Result
	seenKw := make(map[string]struct{})
	clients := make(map[string]struct{})
	themes := make(map[string]struct{})

	for _, p := range m.patterns {
		if !p.matches(padded) {
			continue
		}
		if _, ok := seenKw[p.Keyword]; !ok {
			seenKw[p.Keyword] = struct{}{}
			res.Keywords = append(res.Keywords, p.Keyword)
		}
		clients[p.Client] = struct{}{}
		themes[p.Theme] = struct{}{}
	}

	res.Clients = sortedKeys(clients)
	res.Themes = sortedKeys(themes)
	return res
}

// KeywordString renders the matched keywords as a semicolon-joined field.
func (r Result) KeywordString() string { return strings.Join(r.Keywords, "; ") }

// ClientString renders the matched clients as a semicolon-joined field.
func (r Result) ClientString() string { return strings.Join(r.Clients, "; ") }

// ThemeString renders the matched themes as a semicolon-joined field.
func (r Result) ThemeString() string { return strings.Join(r.Themes, "; ") }

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
