package taxonomy

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
)

func TestCompileBasic(t *testing.T) {
	def := "IAS|Educação|Matemática; Alfabetização\nISG|Saúde|Vacinação"
	idx, patterns, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if got := idx.Clients(); !reflect.DeepEqual(got, []string{"IAS", "ISG"}) {
		t.Errorf("Clients = %v", got)
	}
	if got := idx.Themes("IAS"); !reflect.DeepEqual(got, []string{"Educação"}) {
		t.Errorf("Themes(IAS) = %v", got)
	}
	if got := idx.Keywords("IAS", "Educação"); !reflect.DeepEqual(got, []string{"Matemática", "Alfabetização"}) {
		t.Errorf("Keywords = %v", got)
	}
	if len(patterns) != 3 {
		t.Errorf("Expected 3 patterns, got %d", len(patterns))
	}
}

func TestCompileMalformedLineFails(t *testing.T) {
	def := "IAS|Educação|Matemática\nbroken line without pipes\n"
	_, _, err := Compile(def)
	if err == nil {
		t.Fatal("Expected error for malformed line")
	}
	if !errors.Is(err, internalerr.ErrMalformedTaxonomy) {
		t.Errorf("Expected ErrMalformedTaxonomy, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Error should name the line number, got %v", err)
	}
}

func TestCompileTooManyFieldsFails(t *testing.T) {
	_, _, err := Compile("IAS|Educação|kw1|kw2")
	if !errors.Is(err, internalerr.ErrMalformedTaxonomy) {
		t.Errorf("Expected ErrMalformedTaxonomy for 4 fields, got %v", err)
	}
}

func TestCompileBlankLinesIgnored(t *testing.T) {
	def := "\nIAS|Educação|Matemática\n\n   \nISG|Saúde|Vacinação\n"
	idx, _, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(idx.Clients()) != 2 {
		t.Errorf("Expected 2 clients, got %v", idx.Clients())
	}
}

func TestCompileDeduplicatesPerPair(t *testing.T) {
	// Same keyword under the same pair, differing in case and accents only.
	def := "IAS|Educação|Matemática; MATEMATICA; matemática\nIAS|Educação|Matemática"
	idx, patterns, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(patterns) != 1 {
		t.Errorf("Expected 1 pattern after dedup, got %d", len(patterns))
	}
	// First occurrence keeps its original casing.
	if got := idx.Keywords("IAS", "Educação"); !reflect.DeepEqual(got, []string{"Matemática"}) {
		t.Errorf("Keywords = %v", got)
	}
}

func TestCompileSameKeywordDifferentPairs(t *testing.T) {
	def := "IAS|Educação|Fundeb\nISG|Financiamento|Fundeb"
	_, patterns, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	// Deduplication is scoped per (client, theme); both pairs keep the phrase.
	if len(patterns) != 2 {
		t.Errorf("Expected 2 patterns, got %d", len(patterns))
	}
}

func TestCompileDropsEmptyKeywords(t *testing.T) {
	def := "IAS|Educação|Matemática; ; !!!; ..."
	_, patterns, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(patterns) != 1 {
		t.Errorf("Keywords with no alphanumeric tokens should compile to no pattern, got %d", len(patterns))
	}
}

func TestCompileEmptyDefinition(t *testing.T) {
	idx, patterns, err := Compile("")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(idx.Clients()) != 0 || len(patterns) != 0 {
		t.Error("Empty definition should compile to nothing")
	}
}

func TestIndexAccessorsReturnCopies(t *testing.T) {
	idx, _, err := Compile("IAS|Educação|Matemática")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	clients := idx.Clients()
	clients[0] = "mutated"
	if idx.Clients()[0] != "IAS" {
		t.Error("Clients() must return a copy")
	}
	kws := idx.Keywords("IAS", "Educação")
	kws[0] = "mutated"
	if idx.Keywords("IAS", "Educação")[0] != "Matemática" {
		t.Error("Keywords() must return a copy")
	}
}

func TestCompileIdempotent(t *testing.T) {
	def := "IAS|Educação|Matemática; Alfabetização\nISG|Saúde|Vacinação"
	_, p1, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	_, p2, err := Compile(def)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !reflect.DeepEqual(p1, p2) {
		t.Error("Compiling the same definition twice must yield identical patterns")
	}
}
