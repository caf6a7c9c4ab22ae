// Package route partitions the merged multi-source row set per client and
// dispatches each partition to the merge engine against that client's
// target.
package route

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/civimetrics/plenario/pkg/plenario/bill"
	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/merge"
	"github.com/civimetrics/plenario/pkg/plenario/store"
	"github.com/civimetrics/plenario/pkg/plenario/taxonomy"
)

// Router dispatches per-client partitions. Target names default to the
// client name itself; TargetName can override the mapping.
type Router struct {
	Engine *merge.Engine

	// TargetName maps a client name to its target table name. Nil means the
	// client name is the target name.
	TargetName func(client string) string

	// Insert is the insertion mode applied to every per-client target.
	Insert store.Position

	Logger *log.Logger
}

// Route processes each taxonomy client in definition order. A client with no
// matching rows is a no-op; a client whose target does not exist is logged
// and skipped. Per-client stats are keyed by client name.
func (r *Router) Route(ctx context.Context, records []bill.Record, idx *taxonomy.Index) (map[string]merge.Stats, error) {
	results := make(map[string]merge.Stats)
	var firstErr error

	for _, client := range idx.Clients() {
		sub := selectClient(records, client)
		if len(sub) == 0 {
			r.logf("[%s] no matching rows this cycle", client)
			continue
		}
		name := client
		if r.TargetName != nil {
			name = r.TargetName(client)
		}
		stats, err := r.Engine.Merge(ctx, name, sub, r.Insert)
		results[client] = stats
		if err != nil {
			if errors.Is(err, internalerr.ErrTargetNotFound) {
				r.logf("[%s] target missing, skipping", client)
				continue
			}
			r.logf("[%s] merge failed: %v", client, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return results, firstErr
}

// selectClient keeps records whose Clients field contains the client name as
// a full semicolon-delimited token, never as a substring of a longer name.
func selectClient(records []bill.Record, client string) []bill.Record {
	var out []bill.Record
	for _, rec := range records {
		if containsClientToken(rec.Clients, client) {
			out = append(out, rec)
		}
	}
	return out
}

func containsClientToken(field, client string) bool {
	if field == "" {
		return false
	}
	for _, tok := range strings.Split(field, ";") {
		if strings.EqualFold(strings.TrimSpace(tok), client) {
			return true
		}
	}
	return false
}

func (r *Router) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
