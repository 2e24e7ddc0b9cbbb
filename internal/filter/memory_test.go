package filter_test

import (
	"context"
	"testing"

	"github.com/geocoder89/userhub/internal/filter"
)

func TestMemoryNoFalseNegatives(t *testing.T) {
	f := filter.NewMemory()
	ctx := context.Background()

	if f.MightContain(ctx, "alice") {
		t.Fatal("empty filter claimed membership")
	}

	if err := f.Add(ctx, "alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if !f.MightContain(ctx, "alice") {
		t.Fatal("added username not found")
	}
	if f.MightContain(ctx, "bob") {
		t.Fatal("exact set should have no false positives")
	}
}

func TestMemoryAddIdempotent(t *testing.T) {
	f := filter.NewMemory()
	ctx := context.Background()

	if err := f.Add(ctx, "alice"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := f.Add(ctx, "alice"); err != nil {
		t.Fatalf("repeated Add failed: %v", err)
	}

	if !f.MightContain(ctx, "alice") {
		t.Fatal("membership lost after repeated Add")
	}
}
