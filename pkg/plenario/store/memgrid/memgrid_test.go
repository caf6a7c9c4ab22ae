package memgrid

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/civimetrics/plenario/pkg/plenario/internalerr"
	"github.com/civimetrics/plenario/pkg/plenario/store"
)

func TestEnsureHeaderCreatesTarget(t *testing.T) {
	ctx := context.Background()
	s := New()

	ok, err := s.Exists(ctx, "T")
	if err != nil || ok {
		t.Fatalf("Exists before create = %v, %v", ok, err)
	}
	if err := s.EnsureHeader(ctx, "T", []string{"UID", "Ementa"}); err != nil {
		t.Fatalf("EnsureHeader: %v", err)
	}
	ok, _ = s.Exists(ctx, "T")
	if !ok {
		t.Fatal("target should exist after EnsureHeader")
	}

	target, err := s.Open(ctx, "T")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	header, _ := target.Header(ctx)
	if !reflect.DeepEqual(header, []string{"UID", "Ementa"}) {
		t.Errorf("header = %v", header)
	}
}

func TestEnsureHeaderWidensAndPads(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.EnsureHeader(ctx, "T", []string{"UID"}); err != nil {
		t.Fatal(err)
	}
	target, _ := s.Open(ctx, "T")
	if err := target.WriteRows(ctx, [][]string{{"a"}}, store.Bottom); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureHeader(ctx, "T", []string{"UID", "Extra"}); err != nil {
		t.Fatal(err)
	}
	rows, _ := target.Rows(ctx)
	if !reflect.DeepEqual(rows, [][]string{{"a", ""}}) {
		t.Errorf("rows = %v", rows)
	}
}

func TestOpenMissingTarget(t *testing.T) {
	s := New()
	_, err := s.Open(context.Background(), "nope")
	if !errors.Is(err, internalerr.ErrTargetNotFound) {
		t.Errorf("err = %v, want ErrTargetNotFound", err)
	}
}

func TestWriteRowsPositions(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.EnsureHeader(ctx, "T", []string{"UID"}); err != nil {
		t.Fatal(err)
	}
	target, _ := s.Open(ctx, "T")

	if err := target.WriteRows(ctx, [][]string{{"b"}, {"c"}}, store.Bottom); err != nil {
		t.Fatal(err)
	}
	if err := target.WriteRows(ctx, [][]string{{"a1"}, {"a2"}}, store.Top); err != nil {
		t.Fatal(err)
	}
	rows, _ := target.Rows(ctx)
	want := [][]string{{"a1"}, {"a2"}, {"b"}, {"c"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestKeyValues(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.EnsureHeader(ctx, "T", []string{"UID", "X"}); err != nil {
		t.Fatal(err)
	}
	target, _ := s.Open(ctx, "T")
	rows := [][]string{{"k1", "v"}, {"k2", "v"}, {"", "empty key dropped"}}
	if err := target.WriteRows(ctx, rows, store.Bottom); err != nil {
		t.Fatal(err)
	}
	keys, err := target.KeyValues(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 {
		t.Errorf("keys = %v", keys)
	}
	if _, ok := keys["k1"]; !ok {
		t.Error("missing k1")
	}
}

func TestReplaceRows(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.EnsureHeader(ctx, "T", []string{"UID"}); err != nil {
		t.Fatal(err)
	}
	target, _ := s.Open(ctx, "T")
	if err := target.WriteRows(ctx, [][]string{{"a"}, {"b"}, {"c"}}, store.Bottom); err != nil {
		t.Fatal(err)
	}
	// Overwrite the middle row and append one past the end.
	if err := target.ReplaceRows(ctx, 1, [][]string{{"B"}, {"C"}, {"d"}}); err != nil {
		t.Fatal(err)
	}
	rows, _ := target.Rows(ctx)
	want := [][]string{{"a"}, {"B"}, {"C"}, {"d"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestDeleteWhere(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.EnsureHeader(ctx, "T", []string{"UID", "Casa"}); err != nil {
		t.Fatal(err)
	}
	target, _ := s.Open(ctx, "T")
	rows := [][]string{{"1", "Senado"}, {"2", "Camara"}, {"3", "Senado"}}
	if err := target.WriteRows(ctx, rows, store.Bottom); err != nil {
		t.Fatal(err)
	}
	n, err := s.DeleteWhere(ctx, "T", "Casa", "Senado")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	left, _ := target.Rows(ctx)
	if len(left) != 1 || left[0][0] != "2" {
		t.Errorf("rows = %v", left)
	}
}

func TestRateLimitNext(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.EnsureHeader(ctx, "T", []string{"UID"}); err != nil {
		t.Fatal(err)
	}
	target, _ := s.Open(ctx, "T")
	s.RateLimitNext(1)
	err := target.WriteRows(ctx, [][]string{{"a"}}, store.Bottom)
	if !errors.Is(err, internalerr.ErrRateLimited) {
		t.Fatalf("first write err = %v, want ErrRateLimited", err)
	}
	if err := target.WriteRows(ctx, [][]string{{"a"}}, store.Bottom); err != nil {
		t.Fatalf("second write should pass: %v", err)
	}
}

func TestNamesCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, n := range []string{"C", "A", "B"} {
		if err := s.EnsureHeader(ctx, n, []string{"UID"}); err != nil {
			t.Fatal(err)
		}
	}
	names, _ := s.Names(ctx)
	if !reflect.DeepEqual(names, []string{"C", "A", "B"}) {
		t.Errorf("names = %v", names)
	}
}
