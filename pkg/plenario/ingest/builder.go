package ingest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/civimetrics/plenario/pkg/plenario/bill"
	"github.com/civimetrics/plenario/pkg/plenario/norm"
	"github.com/civimetrics/plenario/pkg/plenario/taxonomy"
)

const (
	camaraPageURL = "https://www.camara.leg.br/propostas-legislativas/"
	senadoPageURL = "https://www25.senado.leg.br/web/atividade/materias/-/materia/"
)

// Builder assembles bill records. One builder serves both chambers; the
// authorship rules differ per chamber.
type Builder struct {
	Matcher *taxonomy.Matcher

	// Now stamps records; defaults to time.Now.
	Now func() time.Time

	// SenadoAuthorPage looks up the first "Autoria" value on a matéria's
	// public page. Needed when the Senado author field merely names the
	// other chamber because the bill originated there. Optional.
	SenadoAuthorPage func(ctx context.Context, code string) (string, bool)
}

// BuildCamara builds the canonical record for a Câmara proposition.
func (b *Builder) BuildCamara(raw CamaraBill) bill.Record {
	rec := bill.Record{
		Chamber:     bill.Camara,
		NativeID:    raw.ID,
		Type:        raw.Type,
		Number:      raw.Number,
		Year:        raw.Year,
		PresentedOn: FormatDate(raw.Presented),
		Summary:     raw.Summary,
		PageURL:     camaraPageURL + raw.ID,
		DocumentURL: raw.DocumentURL,
		IngestedAt:  b.now().Format("2006-01-02 15:04:05"),
	}
	b.applyMatch(&rec)

	p := principalIndex(raw.Authors)
	if p >= 0 {
		ap := raw.Authors[p]
		rec.Author = ap.Name
		rec.AuthorParty = ap.Party
		rec.AuthorUF = ap.UF
		if ap.IsLegislator {
			rec.AuthorType = TypeParliamentary
		} else {
			rec.AuthorType = InferAuthorType(ap.Name)
		}
		labels := coAuthorLabels(raw.Authors, p)
		rec.CoAuthors = strings.Join(labels, ", ")
		rec.CoAuthorCount = strconv.Itoa(len(labels))
	} else {
		rec.CoAuthorCount = "0"
	}
	return rec
}

// BuildSenado builds the canonical record for a Senado matéria. The
// structured authorship block wins where present; the free-text author field
// fills the gaps, after the supplementary page lookup when the field names
// the other chamber.
func (b *Builder) BuildSenado(ctx context.Context, raw SenadoBill) bill.Record {
	rec := bill.Record{
		Chamber:     bill.Senado,
		NativeID:    raw.Code,
		Type:        raw.Type,
		Number:      raw.Number,
		Year:        raw.Year,
		PresentedOn: FormatDate(raw.Presented),
		Summary:     raw.Summary,
		PageURL:     senadoPageURL + raw.Code,
		DocumentURL: raw.DocumentURL,
		IngestedAt:  b.now().Format("2006-01-02 15:04:05"),
	}
	b.applyMatch(&rec)

	authors := raw.Authors
	authorText := raw.AuthorText
	if norm.Normalize(authorText) == "camara dos deputados" && b.SenadoAuthorPage != nil {
		if v, ok := b.SenadoAuthorPage(ctx, raw.Code); ok && v != "" {
			authorText = v
		}
	}
	if authorText != "" {
		parsed := SplitFreeTextAuthors(authorText)
		if len(authors) == 0 {
			authors = parsed
		} else {
			if !anyParty(authors) && anyParty(parsed) {
				mergeField(authors, parsed, func(a *Author, v Author) { a.Party = v.Party })
			}
			if !anyUF(authors) && anyUF(parsed) {
				mergeField(authors, parsed, func(a *Author, v Author) { a.UF = v.UF })
			}
		}
	}

	if len(authors) > 0 {
		ap := authors[0]
		rec.Author = ap.Name
		rec.AuthorParty = ap.Party
		rec.AuthorUF = ap.UF
		labels := coAuthorLabels(authors, 0)
		rec.CoAuthors = strings.Join(labels, ", ")
		rec.CoAuthorCount = strconv.Itoa(len(labels))
	} else {
		rec.Author = authorText
		rec.CoAuthorCount = "0"
	}
	rec.AuthorType = InferAuthorType(rec.Author)
	return rec
}

func (b *Builder) applyMatch(rec *bill.Record) {
	if b.Matcher == nil {
		return
	}
	res := b.Matcher.Match(rec.Summary)
	rec.Keywords = res.KeywordString()
	rec.Clients = res.ClientString()
	rec.Themes = res.ThemeString()
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func anyParty(authors []Author) bool {
	for _, a := range authors {
		if a.Party != "" {
			return true
		}
	}
	return false
}

func anyUF(authors []Author) bool {
	for _, a := range authors {
		if a.UF != "" {
			return true
		}
	}
	return false
}

func mergeField(dst []Author, src []Author, set func(*Author, Author)) {
	for i := range dst {
		if i >= len(src) {
			return
		}
		set(&dst[i], src[i])
	}
}
