package order

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSource_RereadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.json")
	src := FileSource{Path: path}

	if _, err := src.Orders(context.Background()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	if err := os.WriteFile(path, []byte(`[{"id":"1","status":"pending"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	orders, err := src.Orders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	if err := os.WriteFile(path, []byte(`{"id":"1"}`+"\n"+`{"id":"2"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	orders, err = src.Orders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("expected 2 orders after rewrite, got %d", len(orders))
	}
}

func TestFileSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileSource{Path: "unused"}).Orders(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSourceFunc(t *testing.T) {
	want := []Order{{ID: "x"}}
	src := SourceFunc(func(context.Context) ([]Order, error) { return want, nil })
	got, err := src.Orders(context.Background())
	if err != nil || len(got) != 1 || got[0].ID != "x" {
		t.Errorf("unexpected result %v, %v", got, err)
	}
}
