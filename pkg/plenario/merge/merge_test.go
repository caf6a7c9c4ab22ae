package merge

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/civimetrics/plenario/pkg/plenario/bill"
	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
	"github.com/civimetrics/plenario/pkg/plenario/store/memgrid"
)

func rec(chamber bill.Chamber, id, date string) bill.Record {
	return bill.Record{Chamber: chamber, NativeID: id, PresentedOn: date}
}

func newEngine(t *testing.T) (*Engine, *memgrid.Store) {
	t.Helper()
	st := memgrid.New()
	if err := st.EnsureHeader(context.Background(), "Senado", bill.Header); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	return &Engine{Store: st, BaseDelay: time.Millisecond}, st
}

func uidColumn(t *testing.T, st *memgrid.Store, name string) []string {
	t.Helper()
	target, err := st.Open(context.Background(), name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	rows, err := target.Rows(context.Background())
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	uids := make([]string, len(rows))
	for i, row := range rows {
		uids[i] = row[0]
	}
	return uids
}

func TestMergeWritesFreshRecords(t *testing.T) {
	e, st := newEngine(t)
	stats, err := e.Merge(context.Background(), "Senado",
		[]bill.Record{rec(bill.Senado, "1", "2025-03-01")}, store.Top)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if stats.Considered != 1 || stats.Skipped != 0 || stats.Written != 1 {
		t.Errorf("stats = %+v", stats)
	}
	uids := uidColumn(t, st, "Senado")
	if len(uids) != 1 || uids[0] != "Senado:1" {
		t.Errorf("uids = %v", uids)
	}
}

func TestMergeIdempotent(t *testing.T) {
	e, _ := newEngine(t)
	records := []bill.Record{
		rec(bill.Senado, "1", "2025-03-01"),
		rec(bill.Senado, "2", "2025-03-02"),
	}
	if _, err := e.Merge(context.Background(), "Senado", records, store.Top); err != nil {
		t.Fatalf("first Merge: %v", err)
	}
	stats, err := e.Merge(context.Background(), "Senado", records, store.Top)
	if err != nil {
		t.Fatalf("second Merge: %v", err)
	}
	if stats.Written != 0 || stats.Skipped != 2 {
		t.Errorf("second run stats = %+v, want all skipped", stats)
	}
}

func TestMergeDeduplicatesWithinBatch(t *testing.T) {
	e, st := newEngine(t)
	records := []bill.Record{
		rec(bill.Senado, "1", "2025-03-01"),
		rec(bill.Senado, "1", "2025-03-01"),
	}
	stats, err := e.Merge(context.Background(), "Senado", records, store.Top)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if stats.Written != 1 || stats.Skipped != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if uids := uidColumn(t, st, "Senado"); len(uids) != 1 {
		t.Errorf("uids = %v", uids)
	}
}

func TestMergeOrderNewestFirst(t *testing.T) {
	e, st := newEngine(t)
	records := []bill.Record{
		rec(bill.Senado, "10", "2025-03-01"),
		rec(bill.Senado, "11", "2025-03-05"),
		rec(bill.Senado, "12", "2025-03-05"),
	}
	if _, err := e.Merge(context.Background(), "Senado", records, store.Top); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	uids := uidColumn(t, st, "Senado")
	// Date descending, then UID descending within the same date.
	want := []string{"Senado:12", "Senado:11", "Senado:10"}
	for i := range want {
		if uids[i] != want[i] {
			t.Fatalf("uids = %v, want %v", uids, want)
		}
	}
}

func TestMergeEmptyDateSortsLast(t *testing.T) {
	e, st := newEngine(t)
	records := []bill.Record{
		rec(bill.Senado, "20", ""),
		rec(bill.Senado, "21", "2025-03-05"),
	}
	if _, err := e.Merge(context.Background(), "Senado", records, store.Top); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	uids := uidColumn(t, st, "Senado")
	if uids[0] != "Senado:21" || uids[1] != "Senado:20" {
		t.Errorf("uids = %v", uids)
	}
}

func TestMergeMissingTarget(t *testing.T) {
	e, _ := newEngine(t)
	stats, err := e.Merge(context.Background(), "Inexistente",
		[]bill.Record{rec(bill.Senado, "1", "2025-03-01")}, store.Top)
	if !errors.Is(err, internalerr.ErrTargetNotFound) {
		t.Fatalf("err = %v, want ErrTargetNotFound", err)
	}
	if stats.Written != 0 {
		t.Errorf("stats = %+v, nothing must be written", stats)
	}
}

func TestMergeAlignsToActualHeader(t *testing.T) {
	st := memgrid.New()
	ctx := context.Background()
	// A target whose header was rearranged and trimmed externally.
	header := []string{"UID", "Ementa", "Ano"}
	if err := st.EnsureHeader(ctx, "Custom", header); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	e := &Engine{Store: st, BaseDelay: time.Millisecond}

	r := rec(bill.Senado, "5", "2025-03-01")
	r.Summary = "Ementa da matéria"
	r.Year = "2025"
	if _, err := e.Merge(ctx, "Custom", []bill.Record{r}, store.Top); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	target, _ := st.Open(ctx, "Custom")
	rows, _ := target.Rows(ctx)
	if len(rows) != 1 || len(rows[0]) != 3 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][0] != "Senado:5" || rows[0][1] != "Ementa da matéria" || rows[0][2] != "2025" {
		t.Errorf("row = %v", rows[0])
	}
}

func TestMergeRetriesOnRateLimit(t *testing.T) {
	e, st := newEngine(t)
	st.RateLimitNext(2)
	stats, err := e.Merge(context.Background(), "Senado",
		[]bill.Record{rec(bill.Senado, "1", "2025-03-01")}, store.Top)
	if err != nil {
		t.Fatalf("Merge should succeed after backoff: %v", err)
	}
	if stats.Written != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestMergeGivesUpAfterMaxRetries(t *testing.T) {
	e, st := newEngine(t)
	e.MaxRetries = 2
	st.RateLimitNext(10)
	_, err := e.Merge(context.Background(), "Senado",
		[]bill.Record{rec(bill.Senado, "1", "2025-03-01")}, store.Top)
	if !errors.Is(err, internalerr.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestMergeNothingToDo(t *testing.T) {
	e, _ := newEngine(t)
	stats, err := e.Merge(context.Background(), "Senado", nil, store.Top)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if stats.Considered != 0 || stats.Written != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
