package align

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"time"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
)

// Column names the batch pass reads and writes.
const (
	ColSummary       = "Ementa"
	ColAlignment     = "Alinhamento"
	ColJustification = "Justificativa"
)

const (
	DefaultBatchSize  = 20
	DefaultMaxRetries = 5
	DefaultBaseDelay  = 2 * time.Second
)

// Processor walks every target and labels the rows that still lack an
// alignment verdict. Already-labeled rows are never re-sent, so repeated runs
// only pay for new data.
type Processor struct {
	Store      store.Store
	Classifier Classifier

	// Orgs maps a target name to its organization profile. Targets without a
	// profile are classified against their own name with no mission text.
	Orgs map[string]Org

	// Skip lists target names excluded from the pass.
	Skip []string

	// BatchSize is the number of labeled rows accumulated before a write.
	BatchSize int

	// Sleep is an optional pause between model calls.
	Sleep time.Duration

	MaxRetries int
	BaseDelay  time.Duration
	Logger     *log.Logger
}

// Stats summarizes one pass over a target.
type Stats struct {
	Rows    int // data rows seen
	Labeled int // rows labeled this pass
	Skipped int // rows already labeled or with no summary
}

// ProcessAll runs the pass over every non-skipped target. Per-target failures
// are logged and do not stop the remaining targets; the first error is
// returned at the end.
func (p *Processor) ProcessAll(ctx context.Context) (map[string]Stats, error) {
	names, err := p.Store.Names(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Stats, len(names))
	var firstErr error
	for _, name := range names {
		if p.skipped(name) {
			continue
		}
		st, err := p.ProcessTarget(ctx, name)
		if err != nil {
			p.logf("align: target %q: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[name] = st
	}
	return out, firstErr
}

// ProcessTarget labels the unlabeled rows of one target and writes the
// results back in batches.
func (p *Processor) ProcessTarget(ctx context.Context, name string) (Stats, error) {
	var st Stats
	t, err := p.Store.Open(ctx, name)
	if err != nil {
		return st, err
	}
	header, err := t.Header(ctx)
	if err != nil {
		return st, err
	}
	sumIdx := columnIndex(header, ColSummary)
	if sumIdx < 0 {
		p.logf("align: target %q has no %s column, skipping", name, ColSummary)
		return st, nil
	}

	// Widen the header with the verdict columns on first contact.
	alignIdx := columnIndex(header, ColAlignment)
	justIdx := columnIndex(header, ColJustification)
	if alignIdx < 0 || justIdx < 0 {
		if alignIdx < 0 {
			header = append(header, ColAlignment)
			alignIdx = len(header) - 1
		}
		if justIdx < 0 {
			header = append(header, ColJustification)
			justIdx = len(header) - 1
		}
		if err := p.Store.EnsureHeader(ctx, name, header); err != nil {
			return st, err
		}
		t, err = p.Store.Open(ctx, name)
		if err != nil {
			return st, err
		}
	}

	var rows [][]string
	err = p.withRetry(ctx, func() error {
		var rerr error
		rows, rerr = t.Rows(ctx)
		return rerr
	})
	if err != nil {
		return st, err
	}
	st.Rows = len(rows)

	org, ok := p.Orgs[name]
	if !ok {
		org = Org{Name: name}
	}

	dirtyFrom, dirtyTo := -1, -1
	pending := 0
	flush := func() error {
		if pending == 0 {
			return nil
		}
		batch := rows[dirtyFrom : dirtyTo+1]
		start := dirtyFrom
		if err := p.withRetry(ctx, func() error {
			return t.ReplaceRows(ctx, start, batch)
		}); err != nil {
			return err
		}
		dirtyFrom, dirtyTo = -1, -1
		pending = 0
		return nil
	}

	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	for i := range rows {
		rows[i] = padRow(rows[i], len(header))
		if rows[i][alignIdx] != "" {
			st.Skipped++
			continue
		}
		summary := rows[i][sumIdx]
		var res Result
		if summary == "" {
			res = EmptySummaryResult()
			st.Skipped++
		} else {
			cerr := p.withRetry(ctx, func() error {
				var rerr error
				res, rerr = p.Classifier.Classify(ctx, summary, org)
				return rerr
			})
			if cerr != nil {
				if ferr := flush(); ferr != nil {
					return st, ferr
				}
				return st, fmt.Errorf("classify row %d: %w", i, cerr)
			}
			st.Labeled++
			if p.Sleep > 0 {
				select {
				case <-time.After(p.Sleep):
				case <-ctx.Done():
					return st, ctx.Err()
				}
			}
		}
		rows[i][alignIdx] = string(res.Label)
		rows[i][justIdx] = res.Justification
		if dirtyFrom < 0 {
			dirtyFrom = i
		}
		dirtyTo = i
		pending++
		if pending >= batchSize {
			if err := flush(); err != nil {
				return st, err
			}
		}
	}
	if err := flush(); err != nil {
		return st, err
	}
	return st, nil
}

// withRetry retries fn with jittered exponential backoff while the failure
// is a rate limit, mirroring the write path of the merge engine.
func (p *Processor) withRetry(ctx context.Context, fn func() error) error {
	retries := p.MaxRetries
	if retries <= 0 {
		retries = DefaultMaxRetries
	}
	delay := p.BaseDelay
	if delay <= 0 {
		delay = DefaultBaseDelay
	}
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if err = fn(); err == nil || !errors.Is(err, internalerr.ErrRateLimited) {
			return err
		}
		if attempt == retries {
			break
		}
		wait := delay + rand.N(delay/2+1)
		p.logf("align: rate limited, retrying in %s", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > 60*time.Second {
			delay = 60 * time.Second
		}
	}
	return err
}

func (p *Processor) skipped(name string) bool {
	for _, s := range p.Skip {
		if s == name {
			return true
		}
	}
	return false
}

func (p *Processor) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
