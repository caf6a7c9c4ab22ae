package ingest

import (
	"regexp"
	"strings"

	"github.com/civimetrics/plenario/pkg/plenario/norm"
)

// Author type labels as written to the "Autor Principal Tipo" column.
const (
	TypeParliamentary = "Parlamentar"
	TypeExecutive     = "Executivo"
	TypeCommittee     = "Órgão/Comissão"
)

// Institutional-role vocabulary, matched against the accent-folded
// lowercase name.
var (
	rxCommittee = regexp.MustCompile(`\b(comissao|subcomissao|mesa|presidencia|camara dos deputados|senado federal|congresso|comite)\b`)
	rxExecutive = regexp.MustCompile(`\b(poder executivo|presidencia da republica|ministerio|ministro|casa civil)\b`)
)

// InferAuthorType classifies an author name as parliamentary, executive or
// committee/organ. Empty names classify as empty, not as a default.
func InferAuthorType(name string) string {
	n := norm.Normalize(name)
	if n == "" {
		return ""
	}
	if rxCommittee.MatchString(n) {
		return TypeCommittee
	}
	if rxExecutive.MatchString(n) {
		return TypeExecutive
	}
	return TypeParliamentary
}

// FormatAuthor renders "Name (PARTY/UF)", degrading to "Name (PARTY)",
// "Name (UF)" or "Name" as fields are missing.
func FormatAuthor(name, party, uf string) string {
	name = strings.TrimSpace(name)
	party = strings.TrimSpace(party)
	uf = strings.TrimSpace(uf)
	if name == "" {
		return ""
	}
	switch {
	case party != "" && uf != "":
		return name + " (" + party + "/" + uf + ")"
	case party != "":
		return name + " (" + party + ")"
	case uf != "":
		return name + " (" + uf + ")"
	}
	return name
}

// rxAuthorChunk captures "Name (PARTY/UF)" with the suffix optional.
var rxAuthorChunk = regexp.MustCompile(`^\s*(.+?)(?:\s*\(\s*([A-ZÀ-Ü-]+)\s*/\s*([A-Z]{2})\s*\))?\s*$`)

// SplitFreeTextAuthors splits a free-text author field into individual
// authors. Delimiter strategies apply in priority order, each tried only
// when the previous one yields a single chunk: semicolons, then "), "
// (re-closing the parenthesis), then commas.
func SplitFreeTextAuthors(s string) []Author {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	chunks := splitNonEmpty(s, ";")
	if len(chunks) == 1 {
		if strings.Contains(s, "), ") {
			parts := strings.Split(s, "), ")
			chunks = chunks[:0]
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				if !strings.HasSuffix(p, ")") {
					p += ")"
				}
				chunks = append(chunks, p)
			}
		} else {
			chunks = splitNonEmpty(s, ",")
		}
	}

	authors := make([]Author, 0, len(chunks))
	for _, ch := range chunks {
		if m := rxAuthorChunk.FindStringSubmatch(ch); m != nil {
			authors = append(authors, Author{Name: m[1], Party: m[2], UF: m[3]})
		} else {
			authors = append(authors, Author{Name: ch})
		}
	}
	return authors
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	rxRoleAuthor   = regexp.MustCompile(`(?i)\bautor\b`)
	rxRoleCoAuthor = regexp.MustCompile(`(?i)\bcoautor\b`)
)

// principalIndex picks the principal author from a structured list:
// signing-order 1 wins, then the first non-co "author" role tag, then the
// first entry with a legislator profile, then the first entry. Returns -1
// for an empty list.
func principalIndex(authors []Author) int {
	for i, a := range authors {
		if a.SigningOrder == 1 {
			return i
		}
	}
	for i, a := range authors {
		if rxRoleAuthor.MatchString(a.Role) && !rxRoleCoAuthor.MatchString(a.Role) {
			return i
		}
	}
	for i, a := range authors {
		if a.IsLegislator {
			return i
		}
	}
	if len(authors) > 0 {
		return 0
	}
	return -1
}

// coAuthorLabels formats every author except the principal, deduplicated on
// the formatted label while preserving first-seen order.
func coAuthorLabels(authors []Author, principal int) []string {
	var labels []string
	seen := make(map[string]struct{})
	for i, a := range authors {
		if i == principal || a.Name == "" {
			continue
		}
		label := FormatAuthor(a.Name, a.Party, a.UF)
		if label == "" {
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}
	return labels
}
