// Package plenario wires the legislative monitor together: two chamber
// sources feed the record builder, whose output is merged into the general
// per-chamber targets and routed into per-client targets.
package plenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/civimetrics/plenario/pkg/plenario/bill"
	"github.com/civimetrics/plenario/pkg/plenario/ingest"
	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/merge"
	"github.com/civimetrics/plenario/pkg/plenario/route"
	"github.com/civimetrics/plenario/pkg/plenario/store"
	"github.com/civimetrics/plenario/pkg/plenario/taxonomy"
)

// CamaraSource yields the day's newly filed Câmara propositions.
type CamaraSource interface {
	FetchNew(ctx context.Context) ([]ingest.CamaraBill, error)
}

// SenadoSource yields the day's newly filed Senado matérias and supports the
// supplementary page lookup for authorship.
type SenadoSource interface {
	FetchNew(ctx context.Context) ([]ingest.SenadoBill, error)
	FirstAuthorship(ctx context.Context, code string) (string, bool)
}

// Options configures a Monitor.
type Options struct {
	Store   store.Store
	Index   *taxonomy.Index
	Matcher *taxonomy.Matcher
	Camara  CamaraSource
	Senado  SenadoSource

	// SenadoTarget and CamaraTarget name the general per-chamber tables.
	SenadoTarget string
	CamaraTarget string

	// Insert and ClientInsert fix the insertion mode for the general and
	// per-client targets.
	Insert       store.Position
	ClientInsert store.Position

	Logger *log.Logger
	Now    func() time.Time
}

// Monitor runs full ingestion cycles.
type Monitor struct {
	opts    Options
	builder *ingest.Builder
	engine  *merge.Engine
	router  *route.Router
}

// TargetReport is the per-target outcome of one run.
type TargetReport struct {
	Target string
	Stats  merge.Stats
	Err    error
}

// RunReport summarizes one full cycle.
type RunReport struct {
	ID         string // ULID, unique per run
	StartedAt  time.Time
	FinishedAt time.Time
	Senado     int // records fetched from the Senado
	Camara     int // records fetched from the Câmara
	General    []TargetReport
	Clients    map[string]merge.Stats
}

// New creates a Monitor. Index, Matcher and Store are required.
func New(opts Options) *Monitor {
	if opts.SenadoTarget == "" {
		opts.SenadoTarget = "Senado"
	}
	if opts.CamaraTarget == "" {
		opts.CamaraTarget = "Camara"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	engine := &merge.Engine{Store: opts.Store, Logger: opts.Logger}
	m := &Monitor{
		opts:   opts,
		engine: engine,
		router: &route.Router{Engine: engine, Insert: opts.ClientInsert, Logger: opts.Logger},
	}
	m.builder = &ingest.Builder{Matcher: opts.Matcher, Now: opts.Now}
	if opts.Senado != nil {
		m.builder.SenadoAuthorPage = opts.Senado.FirstAuthorship
	}
	return m
}

// EnsureTargets creates (or re-asserts the header of) the general targets
// and one target per taxonomy client, always with the canonical header.
func (m *Monitor) EnsureTargets(ctx context.Context) error {
	names := []string{m.opts.SenadoTarget, m.opts.CamaraTarget}
	names = append(names, m.opts.Index.Clients()...)
	for _, name := range names {
		if err := m.opts.Store.EnsureHeader(ctx, name, bill.Header); err != nil {
			return fmt.Errorf("ensure target %q: %w", name, err)
		}
	}
	return nil
}

// Run executes one full cycle: fetch both chambers, build records, merge the
// general per-chamber targets, then route the combined set per client. A
// per-target failure is recorded and the run continues; a provider fetch
// failure aborts the run before any write.
func (m *Monitor) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		ID:        ulid.Make().String(),
		StartedAt: m.opts.Now(),
		Clients:   make(map[string]merge.Stats),
	}

	var senado, camara []bill.Record

	if m.opts.Senado != nil {
		raws, err := m.opts.Senado.FetchNew(ctx)
		if err != nil {
			return report, fmt.Errorf("fetch senado: %w", err)
		}
		for _, raw := range raws {
			senado = append(senado, m.builder.BuildSenado(ctx, raw))
		}
	}
	if m.opts.Camara != nil {
		raws, err := m.opts.Camara.FetchNew(ctx)
		if err != nil {
			return report, fmt.Errorf("fetch camara: %w", err)
		}
		for _, raw := range raws {
			camara = append(camara, m.builder.BuildCamara(raw))
		}
	}
	report.Senado = len(senado)
	report.Camara = len(camara)
	m.logf("run %s: senado=%d camara=%d", report.ID, len(senado), len(camara))

	for _, gen := range []struct {
		name string
		recs []bill.Record
	}{
		{m.opts.SenadoTarget, senado},
		{m.opts.CamaraTarget, camara},
	} {
		stats, err := m.engine.Merge(ctx, gen.name, gen.recs, m.opts.Insert)
		report.General = append(report.General, TargetReport{Target: gen.name, Stats: stats, Err: err})
		if err != nil && !errors.Is(err, internalerr.ErrTargetNotFound) {
			m.logf("[%s] merge failed: %v", gen.name, err)
		}
	}

	combined := append(append([]bill.Record{}, senado...), camara...)
	clientStats, err := m.router.Route(ctx, combined, m.opts.Index)
	report.Clients = clientStats
	report.FinishedAt = m.opts.Now()
	if err != nil {
		return report, err
	}
	return report, nil
}

func (m *Monitor) logf(format string, args ...any) {
	if m.opts.Logger != nil {
		m.opts.Logger.Printf(format, args...)
	}
}
