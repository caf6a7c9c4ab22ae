// Package ingest turns raw provider payloads into canonical bill records:
// keyword matching on the summary, date normalization and chamber-specific
// authorship resolution.
package ingest

// Author is one authorship entry as resolved from a provider. Câmara
// delivers structured lists with roles and signing order; Senado entries may
// come from a free-text split, in which case only Name/Party/UF are set.
type Author struct {
	Name  string
	Party string
	UF    string

	// Role is the provider's role tag ("Autor", "Coautor", ...).
	Role string

	// SigningOrder is the provider's 1-based signature order, 0 if absent.
	SigningOrder int

	// IsLegislator reports whether the author resolved to a per-legislator
	// profile.
	IsLegislator bool
}

// CamaraBill is the raw shape the Câmara provider hands to the builder,
// already flattened through the provider's field fallback chains.
type CamaraBill struct {
	ID          string
	Type        string
	Number      string
	Year        string
	Presented   string // raw date text, any provider layout
	Summary     string
	DocumentURL string
	Authors     []Author
}

// SenadoBill is the raw shape the Senado provider hands to the builder.
type SenadoBill struct {
	Code        string
	Type        string
	Number      string
	Year        string
	Presented   string
	Summary     string
	AuthorText  string // free-text author field, possibly many names
	DocumentURL string
	Authors     []Author // structured authorship block when present
}
