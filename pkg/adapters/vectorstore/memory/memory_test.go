package memory

import (
	"context"
	"testing"

	"github.com/finsight/finsight/pkg/adapters/vectorstore"
)

func TestUpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := New()

	items := []vectorstore.Item{
		{ID: "AAPL", Namespace: "portfolio", Vector: vectorstore.Vector{1, 0}, Metadata: map[string]any{"ticker": "AAPL", "sector": "Technology"}},
		{ID: "MSFT", Namespace: "portfolio", Vector: vectorstore.Vector{0.8, 0.2}, Metadata: map[string]any{"ticker": "MSFT", "sector": "Technology"}},
		{ID: "JNJ", Namespace: "watchlist", Vector: vectorstore.Vector{0, 1}, Metadata: map[string]any{"ticker": "JNJ", "sector": "Healthcare"}},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := s.Query(ctx, vectorstore.Vector{1, 0}, 2, vectorstore.Filter{Namespace: "portfolio"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len=%d want 2", len(matches))
	}
	if matches[0].Item.ID != "AAPL" {
		t.Fatalf("top match=%s want AAPL", matches[0].Item.ID)
	}

	// Metadata filter
	matches, err = s.Query(ctx, vectorstore.Vector{1, 0}, 2, vectorstore.Filter{Namespace: "portfolio", Equals: map[string]any{"ticker": "MSFT"}})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].Item.ID != "MSFT" {
		t.Fatalf("filtered result unexpected: %+v", matches)
	}

	// Namespace isolation
	matches, err = s.Query(ctx, vectorstore.Vector{0, 1}, 10, vectorstore.Filter{Namespace: "watchlist"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].Item.ID != "JNJ" {
		t.Fatalf("watchlist query unexpected: %+v", matches)
	}
}

func TestDeleteAndGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	items := []vectorstore.Item{
		{ID: "AAPL", Namespace: "portfolio", Vector: vectorstore.Vector{1, 0}, Metadata: map[string]any{"sector": "Technology"}},
		{ID: "XOM", Namespace: "portfolio", Vector: vectorstore.Vector{0, 1}, Metadata: map[string]any{"sector": "Energy"}},
	}
	if err := s.Upsert(ctx, items); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, vectorstore.Filter{Namespace: "portfolio", Equals: map[string]any{"sector": "Energy"}})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].ID != "XOM" {
		t.Fatalf("get unexpected: %+v", got)
	}

	if err := s.Delete(ctx, "portfolio", []string{"XOM", "missing"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err = s.Get(ctx, vectorstore.Filter{Namespace: "portfolio"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].ID != "AAPL" {
		t.Fatalf("after delete: %+v", got)
	}
}

func TestZeroNormQueryRejected(t *testing.T) {
	s := New()
	_ = s.Upsert(context.Background(), []vectorstore.Item{{ID: "a", Vector: vectorstore.Vector{1, 0}}})
	if _, err := s.Query(context.Background(), vectorstore.Vector{0, 0}, 1, vectorstore.Filter{}); err == nil {
		t.Fatal("expected error for zero-norm query")
	}
}
