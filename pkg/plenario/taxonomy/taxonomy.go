// Package taxonomy compiles the Client|Theme|Keywords definition into
// whole-word phrase patterns and matches bill summaries against them.
package taxonomy

import (
	"fmt"
	"strings"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/norm"
)

// Index maps Client → Theme → ordered unique keywords, preserving the order
// in which clients, themes and keywords first appear in the definition text.
// Built once by Compile; read-only afterward.
type Index struct {
	clients  []string
	themes   map[string][]string
	keywords map[string]map[string][]string
}

// Clients returns the client names in definition order.
func (x *Index) Clients() []string {
	out := make([]string, len(x.clients))
	copy(out, x.clients)
	return out
}

// Themes returns a client's theme names in definition order.
func (x *Index) Themes(client string) []string {
	out := make([]string, len(x.themes[client]))
	copy(out, x.themes[client])
	return out
}

// Keywords returns the keywords of a (client, theme) pair with their original
// casing, in first-seen order.
func (x *Index) Keywords(client, theme string) []string {
	byTheme, ok := x.keywords[client]
	if !ok {
		return nil
	}
	out := make([]string, len(byTheme[theme]))
	copy(out, byTheme[theme])
	return out
}

// Pattern is one compiled keyword: the normalized token sequence plus the
// (client, theme) pair it attributes matches to. The same phrase may compile
// into several patterns when authored under different pairs.
type Pattern struct {
	Client  string
	Theme   string
	Keyword string

	needle string // " tok1 tok2 ... " for padded whole-phrase containment
}

// matches reports whether the pattern occurs in the space-padded NormalizeWS
// form of a text. Padding both sides makes " needle " containment equivalent
// to a word-boundary phrase match.
func (p Pattern) matches(padded string) bool {
	return strings.Contains(padded, p.needle)
}

// Compile parses the pipe-delimited definition text. One line per
// (client, theme, keyword-list) triple:
//
//	Client|Theme|kw1; kw2; kw3
//
// Blank lines are ignored. A line without exactly three fields aborts the
// compile: a corrupt definition must not silently degrade matching. Keywords
// are deduplicated case/accent-insensitively per (client, theme) pair, first
// occurrence wins. A keyword with no alphanumeric tokens compiles to no
// pattern.
func Compile(definition string) (*Index, []Pattern, error) {
	idx := &Index{
		themes:   make(map[string][]string),
		keywords: make(map[string]map[string][]string),
	}
	var patterns []Pattern
	seen := make(map[string]map[string]struct{}) // client|theme → normalized keyword set

	for n, raw := range strings.Split(definition, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "|")
		if len(fields) != 3 {
			return nil, nil, fmt.Errorf("%w: line %d: want 3 fields, got %d",
				internalerr.ErrMalformedTaxonomy, n+1, len(fields))
		}
		client := strings.TrimSpace(fields[0])
		theme := strings.TrimSpace(fields[1])

		if _, ok := idx.keywords[client]; !ok {
			idx.clients = append(idx.clients, client)
			idx.keywords[client] = make(map[string][]string)
		}
		if _, ok := idx.keywords[client][theme]; !ok {
			idx.themes[client] = append(idx.themes[client], theme)
			idx.keywords[client][theme] = nil
		}

		pairKey := client + "|" + theme
		if seen[pairKey] == nil {
			seen[pairKey] = make(map[string]struct{})
		}

		for _, kw := range strings.Split(fields[2], ";") {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			key := norm.NormalizeWS(kw)
			if key == "" {
				continue // no alphanumeric tokens, nothing to match
			}
			if _, dup := seen[pairKey][key]; dup {
				continue
			}
			seen[pairKey][key] = struct{}{}
			idx.keywords[client][theme] = append(idx.keywords[client][theme], kw)
			patterns = append(patterns, Pattern{
				Client:  client,
				Theme:   theme,
				Keyword: kw,
				needle:  " " + key + " ",
			})
		}
	}
	return idx, patterns, nil
}
