package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	embfake "github.com/finsight/finsight/pkg/adapters/embedding/fake"
	mdfake "github.com/finsight/finsight/pkg/adapters/marketdata/fake"
	"github.com/finsight/finsight/pkg/adapters/vectorstore/memory"
	"github.com/finsight/finsight/pkg/portfolio"
)

func newTestIndex() *Index {
	return New(memory.New(), embfake.New(16), mdfake.New(), "portfolio", nil)
}

func testBook() *portfolio.Book {
	return &portfolio.Book{Positions: []portfolio.Position{
		{Ticker: "AAPL", Shares: 10, PurchasePrice: 150, PurchaseDate: "2024-01-02"},
		{Ticker: "MSFT", Shares: 5, PurchasePrice: 300, PurchaseDate: "2024-02-10"},
		{Ticker: "JNJ", Shares: 20, PurchasePrice: 140, PurchaseDate: "2023-06-15"},
	}}
}

func TestUnavailableIndex(t *testing.T) {
	ix := NewUnavailable("chromadb unreachable", nil)
	if ix.Available() {
		t.Fatal("should be unavailable")
	}
	if err := ix.SyncBook(context.Background(), testBook()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v want ErrUnavailable", err)
	}
	if _, err := ix.Search(context.Background(), "tech", 3); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v want ErrUnavailable", err)
	}
	if _, err := ix.BySector(context.Background(), "Technology"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v want ErrUnavailable", err)
	}
}

func TestSyncBookAndSearch(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex()
	if err := ix.SyncBook(ctx, testBook()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	res, err := ix.Search(ctx, "technology holdings", 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalResults != 3 {
		t.Fatalf("results=%d want 3", res.TotalResults)
	}
	if !strings.Contains(res.ContextSummary, "relevant position(s)") {
		t.Fatalf("summary=%q", res.ContextSummary)
	}
	for _, p := range res.Positions {
		if p.Ticker == "" || p.Summary == "" {
			t.Fatalf("incomplete position: %+v", p)
		}
	}
}

func TestSyncBookReplacesStaleEntries(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex()
	if err := ix.SyncBook(ctx, testBook()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	// Shrink the book; re-sync must drop the stale tickers.
	small := &portfolio.Book{Positions: []portfolio.Position{
		{Ticker: "AAPL", Shares: 10, PurchasePrice: 150, PurchaseDate: "2024-01-02"},
	}}
	if err := ix.SyncBook(ctx, small); err != nil {
		t.Fatalf("re-sync: %v", err)
	}
	res, err := ix.Search(ctx, "holdings", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.TotalResults != 1 || res.Positions[0].Ticker != "AAPL" {
		t.Fatalf("stale entries survived: %+v", res.Positions)
	}
}

func TestBySector(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex()
	if err := ix.SyncBook(ctx, testBook()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	res, err := ix.BySector(ctx, "Technology")
	if err != nil {
		t.Fatalf("by sector: %v", err)
	}
	if res.Total != 2 {
		t.Fatalf("total=%d want 2 (AAPL, MSFT)", res.Total)
	}
	if res.Positions[0].Ticker != "AAPL" || res.Positions[1].Ticker != "MSFT" {
		t.Fatalf("positions=%+v", res.Positions)
	}

	res, err = ix.BySector(ctx, "Utilities")
	if err != nil {
		t.Fatalf("by sector: %v", err)
	}
	if res.Total != 0 {
		t.Fatalf("total=%d want 0", res.Total)
	}
}

func TestUpsertAndDeletePosition(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex()
	if err := ix.SyncBook(ctx, testBook()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	if err := ix.UpsertPosition(ctx, portfolio.Position{Ticker: "XOM", Shares: 15, PurchasePrice: 100, PurchaseDate: "2024-05-01"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	res, _ := ix.BySector(ctx, "Energy")
	if res.Total != 1 || res.Positions[0].Ticker != "XOM" {
		t.Fatalf("XOM missing: %+v", res)
	}

	if err := ix.DeletePosition(ctx, "xom"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	res, _ = ix.BySector(ctx, "Energy")
	if res.Total != 0 {
		t.Fatalf("XOM should be gone: %+v", res)
	}
}

func TestSimilarToExcludesTarget(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex()
	if err := ix.SyncBook(ctx, testBook()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	res, err := ix.SimilarTo(ctx, "AAPL", 2)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if res.TargetTicker != "AAPL" {
		t.Fatalf("target=%s", res.TargetTicker)
	}
	if res.TotalFound != 2 {
		t.Fatalf("found=%d want 2", res.TotalFound)
	}
	for _, p := range res.Similar {
		if p.Ticker == "AAPL" {
			t.Fatal("target must be excluded from its own neighbors")
		}
	}
}

func TestSimilarToUnknownTickerFallsBackToSearch(t *testing.T) {
	ctx := context.Background()
	ix := newTestIndex()
	if err := ix.SyncBook(ctx, testBook()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	res, err := ix.SimilarTo(ctx, "NVDA", 2)
	if err != nil {
		t.Fatalf("similar: %v", err)
	}
	if res.TargetTicker != "NVDA" {
		t.Fatalf("target=%s", res.TargetTicker)
	}
	if res.TotalFound == 0 {
		t.Fatal("fallback search should return indexed positions")
	}
}
