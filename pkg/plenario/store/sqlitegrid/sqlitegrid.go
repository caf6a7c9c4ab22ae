// Package sqlitegrid persists generic cell-grid tables in SQLite. Each
// logical sheet keeps its header and ordered rows; row order is encoded in a
// sequence column so top-of-data insertion never rewrites existing rows.
package sqlitegrid

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
)

type gridStore struct {
	db *sql.DB
}

// Open opens (creating if needed) a grid database with WAL mode enabled.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}
	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &gridStore{db: db}, nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS sheets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL,
	header TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sheet_rows (
	sheet TEXT NOT NULL,
	seq INTEGER NOT NULL,
	cells TEXT NOT NULL,
	PRIMARY KEY(sheet, seq)
);

CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *gridStore) Close() error {
	return s.db.Close()
}

// Exists implements store.Store.
func (s *gridStore) Exists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sheets WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Names implements store.Store.
func (s *gridStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sheets ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Open implements store.Store.
func (s *gridStore) Open(ctx context.Context, name string) (store.Target, error) {
	ok, err := s.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrTargetNotFound, name)
	}
	return &target{store: s, name: name}, nil
}

// EnsureHeader implements store.Store.
func (s *gridStore) EnsureHeader(ctx context.Context, name string, header []string) error {
	enc, err := json.Marshal(header)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sheets (name, header) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET header=excluded.header`, name, string(enc))
	return err
}

// DeleteWhere implements store.Store.
func (s *gridStore) DeleteWhere(ctx context.Context, name, column, value string) (int, error) {
	t, err := s.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	header, err := t.Header(ctx)
	if err != nil {
		return 0, err
	}
	col := -1
	for i, c := range header {
		if c == column {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, "SELECT seq, cells FROM sheet_rows WHERE sheet = ?", name)
	if err != nil {
		return 0, err
	}
	var doomed []int64
	for rows.Next() {
		var seq int64
		var enc string
		if err := rows.Scan(&seq, &enc); err != nil {
			rows.Close()
			return 0, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(enc), &cells); err != nil {
			rows.Close()
			return 0, err
		}
		if col < len(cells) && cells[col] == value {
			doomed = append(doomed, seq)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, seq := range doomed {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sheet_rows WHERE sheet = ? AND seq = ?", name, seq); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(doomed), nil
}

type target struct {
	store *gridStore
	name  string
}

func (t *target) Name() string { return t.name }

// Header implements store.Target.
func (t *target) Header(ctx context.Context) ([]string, error) {
	var enc string
	err := t.store.db.QueryRowContext(ctx, "SELECT header FROM sheets WHERE name = ?", t.name).Scan(&enc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrTargetNotFound, t.name)
	}
	if err != nil {
		return nil, err
	}
	var header []string
	if err := json.Unmarshal([]byte(enc), &header); err != nil {
		return nil, err
	}
	return header, nil
}

// KeyValues implements store.Target.
func (t *target) KeyValues(ctx context.Context) (map[string]struct{}, error) {
	rows, err := t.store.db.QueryContext(ctx, "SELECT cells FROM sheet_rows WHERE sheet = ?", t.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make(map[string]struct{})
	for rows.Next() {
		var enc string
		if err := rows.Scan(&enc); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(enc), &cells); err != nil {
			return nil, err
		}
		if len(cells) > 0 && cells[0] != "" {
			keys[cells[0]] = struct{}{}
		}
	}
	return keys, rows.Err()
}

// Rows implements store.Target.
func (t *target) Rows(ctx context.Context) ([][]string, error) {
	header, err := t.Header(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := t.store.db.QueryContext(ctx,
		"SELECT cells FROM sheet_rows WHERE sheet = ? ORDER BY seq", t.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]string
	for rows.Next() {
		var enc string
		if err := rows.Scan(&enc); err != nil {
			return nil, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(enc), &cells); err != nil {
			return nil, err
		}
		for len(cells) < len(header) {
			cells = append(cells, "")
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// WriteRows implements store.Target. The batch is written in one
// transaction; top insertion assigns sequence numbers below the current
// minimum so existing rows are never rewritten.
func (t *target) WriteRows(ctx context.Context, rows [][]string, pos store.Position) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var minSeq, maxSeq sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT MIN(seq), MAX(seq) FROM sheet_rows WHERE sheet = ?", t.name).Scan(&minSeq, &maxSeq)
	if err != nil {
		return err
	}

	var base int64
	if pos == store.Top {
		base = -int64(len(rows))
		if minSeq.Valid {
			base = minSeq.Int64 - int64(len(rows))
		}
	} else {
		base = 0
		if maxSeq.Valid {
			base = maxSeq.Int64 + 1
		}
	}

	for i, row := range rows {
		enc, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sheet_rows (sheet, seq, cells) VALUES (?, ?, ?)",
			t.name, base+int64(i), string(enc)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceRows implements store.Target.
func (t *target) ReplaceRows(ctx context.Context, start int, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := t.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	seqRows, err := tx.QueryContext(ctx,
		"SELECT seq FROM sheet_rows WHERE sheet = ? ORDER BY seq", t.name)
	if err != nil {
		return err
	}
	var seqs []int64
	for seqRows.Next() {
		var seq int64
		if err := seqRows.Scan(&seq); err != nil {
			seqRows.Close()
			return err
		}
		seqs = append(seqs, seq)
	}
	seqRows.Close()
	if err := seqRows.Err(); err != nil {
		return err
	}
	if start < 0 || start > len(seqs) {
		return fmt.Errorf("sqlitegrid: replace start %d out of range", start)
	}

	next := int64(1)
	if n := len(seqs); n > 0 {
		next = seqs[n-1] + 1
	}
	for i, row := range rows {
		enc, err := json.Marshal(row)
		if err != nil {
			return err
		}
		at := start + i
		if at < len(seqs) {
			if _, err := tx.ExecContext(ctx,
				"UPDATE sheet_rows SET cells = ? WHERE sheet = ? AND seq = ?",
				string(enc), t.name, seqs[at]); err != nil {
				return err
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO sheet_rows (sheet, seq, cells) VALUES (?, ?, ?)",
				t.name, next, string(enc)); err != nil {
				return err
			}
			next++
		}
	}
	return tx.Commit()
}
