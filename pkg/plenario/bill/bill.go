// Package bill defines the canonical row shape for one legislative
// proposition. Every field is a string because the downstream persistence
// layer is a generic cell grid with no typed columns.
package bill

// Chamber identifies the parliamentary body a proposition came from.
type Chamber int

const (
	Camara Chamber = iota
	Senado
)

// String returns the chamber name as used in UIDs and the "Casa Atual"
// column.
func (c Chamber) String() string {
	switch c {
	case Camara:
		return "Camara"
	case Senado:
		return "Senado"
	}
	return ""
}

// Record is one proposition after matching and authorship resolution.
// Constructed once per fetch cycle and never updated in place: re-ingesting
// the same native id yields the same UID, which the merge engine discards as
// already present.
type Record struct {
	Chamber  Chamber
	NativeID string

	Type        string // bill type acronym (Sigla)
	Number      string
	Year        string
	PresentedOn string // YYYY-MM-DD or empty
	Summary     string // ementa

	Keywords string // semicolon-joined, first-occurrence order
	Clients  string // semicolon-joined, sorted
	Themes   string // semicolon-joined, sorted

	Author        string
	AuthorParty   string
	AuthorUF      string
	AuthorType    string
	CoAuthors     string // "Name (PARTY/UF)" labels, comma-joined
	CoAuthorCount string

	PageURL     string
	DocumentURL string
	IngestedAt  string
}

// UID is the stable deduplication key across ingestion runs.
func (r Record) UID() string {
	return r.Chamber.String() + ":" + r.NativeID
}

// Header is the canonical column schema. Targets created by this system
// replicate it exactly; targets edited externally govern their own order and
// rows are realigned on write.
var Header = []string{
	"UID", "Casa Atual",
	"Sigla", "Número", "Ano",
	"Data Apresentação", "Ementa",
	"Palavras Chave", "Clientes", "Temas",
	"Autor Principal", "Autor Principal Partido", "Autor Principal UF", "Autor Principal Tipo",
	"Coautores", "Qtd Coautores",
	"Link Página", "Inteiro Teor URL",
	"Ingest At",
}

// Field returns the record's value for a column name, or "" for columns the
// record does not carry (e.g. classification columns filled by a later pass).
func (r Record) Field(column string) string {
	switch column {
	case "UID":
		return r.UID()
	case "Casa Atual":
		return r.Chamber.String()
	case "Sigla":
		return r.Type
	case "Número":
		return r.Number
	case "Ano":
		return r.Year
	case "Data Apresentação":
		return r.PresentedOn
	case "Ementa":
		return r.Summary
	case "Palavras Chave":
		return r.Keywords
	case "Clientes":
		return r.Clients
	case "Temas":
		return r.Themes
	case "Autor Principal":
		return r.Author
	case "Autor Principal Partido":
		return r.AuthorParty
	case "Autor Principal UF":
		return r.AuthorUF
	case "Autor Principal Tipo":
		return r.AuthorType
	case "Coautores":
		return r.CoAuthors
	case "Qtd Coautores":
		return r.CoAuthorCount
	case "Link Página":
		return r.PageURL
	case "Inteiro Teor URL":
		return r.DocumentURL
	case "Ingest At":
		return r.IngestedAt
	}
	return ""
}

// Row aligns the record to an arbitrary header: unknown columns are blanked,
// fields with no matching column are dropped.
func (r Record) Row(header []string) []string {
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = r.Field(col)
	}
	return row
}
