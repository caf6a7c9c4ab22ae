// Package memgrid is an in-memory store.Store implementation for tests.
package memgrid

import (
	"context"
	"fmt"
	"sync"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
)

// Store holds named grids in memory.
type Store struct {
	mu     sync.RWMutex
	order  []string
	sheets map[string]*sheet

	// rateLimitBudget, when positive, makes the next writes fail with
	// ErrRateLimited. Lets tests exercise the merge engine's backoff.
	rateLimitBudget int
}

type sheet struct {
	header []string
	rows   [][]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{sheets: make(map[string]*sheet)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// RateLimitNext makes the next n WriteRows/ReplaceRows calls return
// internalerr.ErrRateLimited.
func (s *Store) RateLimitNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitBudget = n
}

// Exists implements store.Store.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sheets[name]
	return ok, nil
}

// Names implements store.Store.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// Open implements store.Store.
func (s *Store) Open(ctx context.Context, name string) (store.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.sheets[name]; !ok {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrTargetNotFound, name)
	}
	return &target{store: s, name: name}, nil
}

// EnsureHeader implements store.Store.
func (s *Store) EnsureHeader(ctx context.Context, name string, header []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[name]
	if !ok {
		s.sheets[name] = &sheet{header: append([]string(nil), header...)}
		s.order = append(s.order, name)
		return nil
	}
	sh.header = append([]string(nil), header...)
	for i, row := range sh.rows {
		sh.rows[i] = padRow(row, len(header))
	}
	return nil
}

// DeleteWhere implements store.Store.
func (s *Store) DeleteWhere(ctx context.Context, name, column, value string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.sheets[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", internalerr.ErrTargetNotFound, name)
	}
	col := -1
	for i, c := range sh.header {
		if c == column {
			col = i
			break
		}
	}
	if col < 0 {
		return 0, nil
	}
	var kept [][]string
	removed := 0
	for _, row := range sh.rows {
		if col < len(row) && row[col] == value {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	sh.rows = kept
	return removed, nil
}

type target struct {
	store *Store
	name  string
}

func (t *target) Name() string { return t.name }

func (t *target) sheet() (*sheet, error) {
	sh, ok := t.store.sheets[t.name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", internalerr.ErrTargetNotFound, t.name)
	}
	return sh, nil
}

func (t *target) Header(ctx context.Context) ([]string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	sh, err := t.sheet()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), sh.header...), nil
}

func (t *target) KeyValues(ctx context.Context) (map[string]struct{}, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	sh, err := t.sheet()
	if err != nil {
		return nil, err
	}
	keys := make(map[string]struct{}, len(sh.rows))
	for _, row := range sh.rows {
		if len(row) > 0 && row[0] != "" {
			keys[row[0]] = struct{}{}
		}
	}
	return keys, nil
}

func (t *target) Rows(ctx context.Context) ([][]string, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	sh, err := t.sheet()
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(sh.rows))
	for i, row := range sh.rows {
		out[i] = padRow(append([]string(nil), row...), len(sh.header))
	}
	return out, nil
}

func (t *target) WriteRows(ctx context.Context, rows [][]string, pos store.Position) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.rateLimitBudget > 0 {
		t.store.rateLimitBudget--
		return internalerr.ErrRateLimited
	}
	sh, err := t.sheet()
	if err != nil {
		return err
	}
	batch := make([][]string, len(rows))
	for i, row := range rows {
		batch[i] = append([]string(nil), row...)
	}
	if pos == store.Top {
		sh.rows = append(batch, sh.rows...)
	} else {
		sh.rows = append(sh.rows, batch...)
	}
	return nil
}

func (t *target) ReplaceRows(ctx context.Context, start int, rows [][]string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.store.rateLimitBudget > 0 {
		t.store.rateLimitBudget--
		return internalerr.ErrRateLimited
	}
	sh, err := t.sheet()
	if err != nil {
		return err
	}
	if start < 0 || start > len(sh.rows) {
		return fmt.Errorf("memgrid: replace start %d out of range", start)
	}
	for i, row := range rows {
		at := start + i
		cp := append([]string(nil), row...)
		if at < len(sh.rows) {
			sh.rows[at] = cp
		} else {
			sh.rows = append(sh.rows, cp)
		}
	}
	return nil
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
