// Package store defines the persistence interface consumed by the merge
// engine, the client router and the alignment pass: named row-oriented
// tables keyed by their first column.
package store

import "context"

// Position selects where a batch lands relative to existing data.
type Position int

const (
	// Top inserts immediately below the header (newest-first semantics).
	Top Position = iota
	// Bottom appends after existing data (chronological append).
	Bottom
)

// Target is one persisted table. The key column is the first header column.
type Target interface {
	// Name returns the table name.
	Name() string

	// Header returns the table's actual current header, empty if unavailable.
	Header(ctx context.Context) ([]string, error)

	// KeyValues returns every value in the key column below the header.
	KeyValues(ctx context.Context) (map[string]struct{}, error)

	// Rows returns all data rows in order, each padded to header width.
	Rows(ctx context.Context) ([][]string, error)

	// WriteRows writes the batch in a single atomic call at the given
	// position. Row order within the batch is preserved.
	WriteRows(ctx context.Context, rows [][]string, pos Position) error

	// ReplaceRows overwrites data rows starting at the given zero-based
	// data-row offset. Used by the alignment pass to write labels back.
	ReplaceRows(ctx context.Context, start int, rows [][]string) error
}

// Store manages named targets.
type Store interface {
	Close() error

	// Exists reports whether a target of that name exists.
	Exists(ctx context.Context, name string) (bool, error)

	// Open returns the named target. The target must exist.
	Open(ctx context.Context, name string) (Target, error)

	// Names returns all target names in creation order.
	Names(ctx context.Context) ([]string, error)

	// EnsureHeader creates the target with the given header if missing, and
	// otherwise widens or rewrites the header row to match. Creation always
	// goes through here so new targets carry the canonical schema exactly.
	EnsureHeader(ctx context.Context, name string, header []string) error

	// DeleteWhere removes every row whose named column equals value, in one
	// all-or-nothing pass. Returns the number of rows removed.
	DeleteWhere(ctx context.Context, name, column, value string) (int, error)
}
