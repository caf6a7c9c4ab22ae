// Package merge reconciles candidate bill records against a persisted
// target: already-present UIDs are discarded, survivors are ordered
// deterministically, aligned to the target's actual header and written in
// one batch.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/civimetrics/plenario/pkg/plenario/bill"
	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
)

// Stats summarizes one merge call for run reporting.
type Stats struct {
	Considered int // candidate rows supplied
	Skipped    int // discarded as already present (or duplicate UID in batch)
	Written    int // rows written in the batch
}

// Engine performs dedup/merge against store targets. Insertion position is a
// per-target configuration held by the caller and passed per call; callers
// must keep it stable for a given target across runs or row order
// interleaves unpredictably.
type Engine struct {
	Store store.Store

	// MaxRetries bounds the exponential backoff retry on rate-limited store
	// calls. Zero means DefaultMaxRetries.
	MaxRetries int

	// BaseDelay is the first backoff delay. Zero means DefaultBaseDelay.
	BaseDelay time.Duration

	Logger *log.Logger
}

const (
	DefaultMaxRetries = 5
	DefaultBaseDelay  = time.Second
	maxDelay          = 20 * time.Second
)

// Merge writes the candidate records not yet present in the named target.
// A missing target reports zero insertions and internalerr.ErrTargetNotFound;
// it is never created here with a guessed schema.
func (e *Engine) Merge(ctx context.Context, name string, records []bill.Record, pos store.Position) (Stats, error) {
	stats := Stats{Considered: len(records)}

	ok, err := e.Store.Exists(ctx, name)
	if err != nil {
		return stats, fmt.Errorf("check target %q: %w", name, err)
	}
	if !ok {
		return stats, fmt.Errorf("merge into %q: %w", name, internalerr.ErrTargetNotFound)
	}
	target, err := e.Store.Open(ctx, name)
	if err != nil {
		return stats, err
	}

	header, err := target.Header(ctx)
	if err != nil {
		return stats, fmt.Errorf("read header of %q: %w", name, err)
	}
	if len(header) == 0 {
		// Externally wiped header: fall back to the canonical schema.
		header = bill.Header
	}

	var existing map[string]struct{}
	err = e.withRetry(ctx, func() error {
		var kerr error
		existing, kerr = target.KeyValues(ctx)
		return kerr
	})
	if err != nil {
		return stats, fmt.Errorf("read keys of %q: %w", name, err)
	}

	fresh := make([]bill.Record, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		uid := r.UID()
		if _, dup := existing[uid]; dup {
			stats.Skipped++
			continue
		}
		if _, dup := seen[uid]; dup {
			stats.Skipped++
			continue
		}
		seen[uid] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		e.logf("[%s] nothing new to insert (%d considered, %d duplicate)",
			name, stats.Considered, stats.Skipped)
		return stats, nil
	}

	// Presentation date descending, UID descending as the stable tie-break:
	// several bills routinely share a date.
	sort.SliceStable(fresh, func(i, j int) bool {
		if fresh[i].PresentedOn != fresh[j].PresentedOn {
			return fresh[i].PresentedOn > fresh[j].PresentedOn
		}
		return fresh[i].UID() > fresh[j].UID()
	})

	rows := make([][]string, len(fresh))
	for i, r := range fresh {
		rows[i] = r.Row(header)
	}

	err = e.withRetry(ctx, func() error {
		return target.WriteRows(ctx, rows, pos)
	})
	if err != nil {
		return stats, fmt.Errorf("write %d rows to %q: %w", len(rows), name, err)
	}
	stats.Written = len(rows)
	e.logf("[%s] inserted %d rows (%d considered, %d duplicate)",
		name, stats.Written, stats.Considered, stats.Skipped)
	return stats, nil
}

// withRetry retries fn on rate-limit errors with bounded exponential
// backoff. Structural errors propagate immediately.
func (e *Engine) withRetry(ctx context.Context, fn func() error) error {
	retries := e.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	delay := e.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
		err = fn()
		if err == nil || !errors.Is(err, internalerr.ErrRateLimited) {
			return err
		}
		e.logf("rate limited, retrying (attempt %d/%d)", attempt+1, retries)
	}
	return err
}

func (e *Engine) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}
