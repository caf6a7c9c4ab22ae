package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/civimetrics/plenario/pkg/plenario/taxonomy"
)

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	_, patterns, err := taxonomy.Compile("IAS|Educação|Matemática; Alfabetização\nISG|Educação|Tempo Integral")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return &Builder{
		Matcher: taxonomy.NewMatcher(patterns),
		Now:     func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) },
	}
}

func TestBuildCamara(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildCamara(CamaraBill{
		ID:        "2437553",
		Type:      "PL",
		Number:    "1234",
		Year:      "2025",
		Presented: "2025-03-05T09:12:00",
		Summary:   "Dispõe sobre o ensino de matemática nas escolas.",
		Authors: []Author{
			{Name: "Dep. A", Party: "PT", UF: "SP", SigningOrder: 1, IsLegislator: true},
			{Name: "Dep. B", UF: "RJ", SigningOrder: 2, IsLegislator: true},
		},
	})

	if rec.UID() != "Camara:2437553" {
		t.Errorf("UID = %q", rec.UID())
	}
	if rec.PresentedOn != "2025-03-05" {
		t.Errorf("PresentedOn = %q", rec.PresentedOn)
	}
	if rec.Keywords != "Matemática" || rec.Clients != "IAS" || rec.Themes != "Educação" {
		t.Errorf("match fields = %q / %q / %q", rec.Keywords, rec.Clients, rec.Themes)
	}
	if rec.Author != "Dep. A" || rec.AuthorParty != "PT" || rec.AuthorUF != "SP" {
		t.Errorf("principal = %q (%q/%q)", rec.Author, rec.AuthorParty, rec.AuthorUF)
	}
	if rec.AuthorType != TypeParliamentary {
		t.Errorf("AuthorType = %q", rec.AuthorType)
	}
	if rec.CoAuthors != "Dep. B (RJ)" || rec.CoAuthorCount != "1" {
		t.Errorf("coauthors = %q (%s)", rec.CoAuthors, rec.CoAuthorCount)
	}
	if rec.PageURL != camaraPageURL+"2437553" {
		t.Errorf("PageURL = %q", rec.PageURL)
	}
	if rec.IngestedAt != "2025-03-05 10:00:00" {
		t.Errorf("IngestedAt = %q", rec.IngestedAt)
	}
}

func TestBuildCamaraNoAuthors(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildCamara(CamaraBill{ID: "1", Summary: "sem autores"})
	if rec.Author != "" || rec.CoAuthorCount != "0" {
		t.Errorf("got author %q count %q", rec.Author, rec.CoAuthorCount)
	}
}

func TestBuildCamaraCommitteeAuthor(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildCamara(CamaraBill{
		ID:      "2",
		Authors: []Author{{Name: "Comissão de Educação"}},
	})
	if rec.AuthorType != TypeCommittee {
		t.Errorf("AuthorType = %q, want committee", rec.AuthorType)
	}
}

func TestBuildSenadoFreeTextAuthors(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildSenado(context.Background(), SenadoBill{
		Code:       "165432",
		Type:       "PL",
		Presented:  "2025-03-04",
		Summary:    "Institui o tempo integral nas escolas.",
		AuthorText: "Senador A (PT/SP); Senadora B (MDB/RJ)",
	})

	if rec.UID() != "Senado:165432" {
		t.Errorf("UID = %q", rec.UID())
	}
	if rec.Author != "Senador A" || rec.AuthorParty != "PT" || rec.AuthorUF != "SP" {
		t.Errorf("principal = %q (%q/%q)", rec.Author, rec.AuthorParty, rec.AuthorUF)
	}
	if rec.CoAuthors != "Senadora B (MDB/RJ)" || rec.CoAuthorCount != "1" {
		t.Errorf("coauthors = %q (%s)", rec.CoAuthors, rec.CoAuthorCount)
	}
	if rec.Keywords != "Tempo Integral" || rec.Clients != "ISG" {
		t.Errorf("match fields = %q / %q", rec.Keywords, rec.Clients)
	}
	if rec.PageURL != senadoPageURL+"165432" {
		t.Errorf("PageURL = %q", rec.PageURL)
	}
}

func TestBuildSenadoOtherChamberLookup(t *testing.T) {
	b := testBuilder(t)
	b.SenadoAuthorPage = func(ctx context.Context, code string) (string, bool) {
		if code != "99" {
			t.Errorf("lookup code = %q", code)
		}
		return "Deputado Real (PSD/BA)", true
	}
	rec := b.BuildSenado(context.Background(), SenadoBill{
		Code:       "99",
		AuthorText: "Câmara dos Deputados",
	})
	if rec.Author != "Deputado Real" || rec.AuthorParty != "PSD" || rec.AuthorUF != "BA" {
		t.Errorf("principal = %q (%q/%q)", rec.Author, rec.AuthorParty, rec.AuthorUF)
	}
	if rec.AuthorType != TypeParliamentary {
		t.Errorf("AuthorType = %q", rec.AuthorType)
	}
}

func TestBuildSenadoOtherChamberLookupFails(t *testing.T) {
	b := testBuilder(t)
	b.SenadoAuthorPage = func(ctx context.Context, code string) (string, bool) {
		return "", false
	}
	rec := b.BuildSenado(context.Background(), SenadoBill{
		Code:       "99",
		AuthorText: "Câmara dos Deputados",
	})
	// The unresolved institutional name stays, classified as committee/organ.
	if rec.Author != "Câmara dos Deputados" {
		t.Errorf("Author = %q", rec.Author)
	}
	if rec.AuthorType != TypeCommittee {
		t.Errorf("AuthorType = %q", rec.AuthorType)
	}
}

func TestBuildSenadoStructuredAuthorsWin(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildSenado(context.Background(), SenadoBill{
		Code:       "7",
		Authors:    []Author{{Name: "Senadora C", Party: "PSB", UF: "PE"}},
		AuthorText: "Senadora C",
	})
	if rec.Author != "Senadora C" || rec.AuthorParty != "PSB" || rec.AuthorUF != "PE" {
		t.Errorf("principal = %q (%q/%q)", rec.Author, rec.AuthorParty, rec.AuthorUF)
	}
}

func TestBuildSenadoFreeTextFillsPartyGaps(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildSenado(context.Background(), SenadoBill{
		Code:       "8",
		Authors:    []Author{{Name: "Senadora C"}},
		AuthorText: "Senadora C (PSB/PE)",
	})
	if rec.AuthorParty != "PSB" || rec.AuthorUF != "PE" {
		t.Errorf("merged fields = %q/%q", rec.AuthorParty, rec.AuthorUF)
	}
}

func TestBuildSenadoNoAuthorship(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildSenado(context.Background(), SenadoBill{Code: "9"})
	if rec.Author != "" || rec.CoAuthorCount != "0" || rec.AuthorType != "" {
		t.Errorf("got %q / %q / %q", rec.Author, rec.CoAuthorCount, rec.AuthorType)
	}
}

func TestBuildEmptyDateStaysEmpty(t *testing.T) {
	b := testBuilder(t)
	rec := b.BuildCamara(CamaraBill{ID: "3", Presented: "inválida"})
	if rec.PresentedOn != "" {
		t.Errorf("PresentedOn = %q, want empty", rec.PresentedOn)
	}
}
