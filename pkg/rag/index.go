// Package rag maintains a semantic index of portfolio positions: each holding
// becomes a text document enriched with live market data, embedded and stored
// for similarity search.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/finsight/finsight/pkg/adapters/embedding"
	"github.com/finsight/finsight/pkg/adapters/marketdata"
	"github.com/finsight/finsight/pkg/adapters/vectorstore"
	"github.com/finsight/finsight/pkg/portfolio"
)

// ErrUnavailable is returned by every operation on an Index constructed
// without a working embedder or store.
var ErrUnavailable = errors.New("rag: semantic index unavailable")

const defaultTopK = 3

// Index embeds portfolio positions into a vector store and searches them.
// Availability is decided once at construction: an Index built from failing
// components stays unavailable, it never degrades per call.
type Index struct {
	store     vectorstore.VectorStore
	embedder  embedding.Embedder
	market    marketdata.Provider
	namespace string
	log       *slog.Logger
	now       func() time.Time

	available bool
	reason    string
}

// New constructs an available Index.
func New(store vectorstore.VectorStore, embedder embedding.Embedder, market marketdata.Provider, namespace string, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	if namespace == "" {
		namespace = "portfolio"
	}
	ix := &Index{store: store, embedder: embedder, market: market, namespace: namespace, log: log, now: time.Now}
	ix.available = store != nil && embedder != nil
	if !ix.available {
		ix.reason = "embedder or vector store missing"
	}
	return ix
}

// NewUnavailable constructs an Index that reports the given reason for every
// operation. Used when embedder or store construction failed at startup.
func NewUnavailable(reason string, log *slog.Logger) *Index {
	if log == nil {
		log = slog.Default()
	}
	return &Index{log: log, reason: reason, now: time.Now}
}

// Available reports whether the index can serve requests.
func (ix *Index) Available() bool { return ix.available }

// Reason describes why the index is unavailable; empty when available.
func (ix *Index) Reason() string { return ix.reason }

func (ix *Index) guard() error {
	if !ix.available {
		return fmt.Errorf("%w: %s", ErrUnavailable, ix.reason)
	}
	return nil
}

func docID(ticker string) string { return "pos_" + ticker }

// buildDocument renders one position as a text document plus filter metadata.
// Market data failures degrade the document to position-only text.
func (ix *Index) buildDocument(ctx context.Context, pos portfolio.Position) (string, map[string]any) {
	meta := map[string]any{
		"ticker":         pos.Ticker,
		"shares":         pos.Shares,
		"purchase_price": pos.PurchasePrice,
		"purchase_date":  pos.PurchaseDate,
		"sector":         "Unknown",
		"industry":       "Unknown",
	}
	parts := []string{"Position: " + pos.Ticker}

	var quote *marketdata.Quote
	var fund *marketdata.Fundamentals
	if ix.market != nil {
		var err error
		if quote, err = ix.market.Quote(ctx, pos.Ticker); err != nil {
			ix.log.Warn("quote unavailable for document", "ticker", pos.Ticker, "error", err)
			quote = nil
		}
		if fund, err = ix.market.Fundamentals(ctx, pos.Ticker); err != nil {
			fund = nil
		}
	}

	if quote != nil && fund != nil {
		meta["sector"] = fund.Sector
		meta["industry"] = fund.Industry
		parts = append(parts, "Company: "+fund.CompanyName)
		parts = append(parts, fmt.Sprintf("Sector: %s | Industry: %s", fund.Sector, fund.Industry))
		parts = append(parts, fmt.Sprintf("Holdings: %g shares @ $%.2f purchased on %s", pos.Shares, pos.PurchasePrice, pos.PurchaseDate))

		value := pos.CurrentValue(quote.Price)
		glPct := pos.GainLossPct(quote.Price)
		gl := pos.GainLoss(quote.Price)
		sign := ""
		if gl >= 0 {
			sign = "+"
		}
		parts = append(parts, fmt.Sprintf("Current Value: $%.2f (%g shares @ $%.2f) | Gain/Loss: %s%.2f%% ($%.2f)",
			value, pos.Shares, quote.Price, sign, glPct, gl))

		days := pos.HoldingDays(ix.now())
		parts = append(parts, fmt.Sprintf("Holding Period: %d days (%d years, %d months)", days, days/365, (days%365)/30))

		fline := "Fundamentals:"
		if fund.PERatio != nil {
			fline += fmt.Sprintf(" P/E Ratio: %.2f", *fund.PERatio)
		} else {
			fline += " P/E Ratio: N/A"
		}
		if fund.DividendYield != nil {
			fline += fmt.Sprintf(" | Dividend Yield: %.2f%%", *fund.DividendYield)
		}
		if fund.MarketCap > 0 {
			if fund.MarketCap > 1e9 {
				fline += fmt.Sprintf(" | Market Cap: $%.2fB", float64(fund.MarketCap)/1e9)
			} else {
				fline += fmt.Sprintf(" | Market Cap: $%.2fM", float64(fund.MarketCap)/1e6)
			}
		}
		parts = append(parts, fline)

		if d := fund.Description; d != "" {
			if len(d) > 200 {
				d = d[:200] + "..."
			}
			parts = append(parts, "Description: "+d)
		}
	} else {
		parts = append(parts, fmt.Sprintf("Holdings: %g shares @ $%.2f", pos.Shares, pos.PurchasePrice))
		parts = append(parts, "Purchased: "+pos.PurchaseDate)
	}

	doc := strings.Join(parts, "\n")
	meta["document"] = doc
	return doc, meta
}

// SyncBook rebuilds the index from the full book: existing entries are
// removed, every position re-embedded.
func (ix *Index) SyncBook(ctx context.Context, book *portfolio.Book) error {
	if err := ix.guard(); err != nil {
		return err
	}

	existing, err := ix.store.Get(ctx, vectorstore.Filter{Namespace: ix.namespace})
	if err != nil {
		return fmt.Errorf("rag: list existing: %w", err)
	}
	if len(existing) > 0 {
		ids := make([]string, len(existing))
		for i, it := range existing {
			ids[i] = it.ID
		}
		if err := ix.store.Delete(ctx, ix.namespace, ids); err != nil {
			return fmt.Errorf("rag: clear existing: %w", err)
		}
		ix.log.Info("cleared existing embeddings", "count", len(ids))
	}

	if book.TotalPositions() == 0 {
		ix.log.Warn("portfolio empty, nothing to embed")
		return nil
	}

	docs := make([]string, 0, len(book.Positions))
	metas := make([]map[string]any, 0, len(book.Positions))
	ids := make([]string, 0, len(book.Positions))
	for _, pos := range book.Positions {
		doc, meta := ix.buildDocument(ctx, pos)
		docs = append(docs, doc)
		metas = append(metas, meta)
		ids = append(ids, docID(pos.Ticker))
	}

	vectors, err := ix.embedder.Embed(ctx, docs, nil)
	if err != nil {
		return fmt.Errorf("rag: embed: %w", err)
	}
	items := make([]vectorstore.Item, len(vectors))
	for i, vec := range vectors {
		items[i] = vectorstore.Item{
			ID:        ids[i],
			Namespace: ix.namespace,
			Vector:    vectorstore.Vector(vec),
			Metadata:  metas[i],
		}
	}
	if err := ix.store.Upsert(ctx, items); err != nil {
		return fmt.Errorf("rag: upsert: %w", err)
	}
	ix.log.Info("embedded portfolio", "positions", len(items))
	return nil
}

// UpsertPosition embeds or replaces a single position's document.
func (ix *Index) UpsertPosition(ctx context.Context, pos portfolio.Position) error {
	if err := ix.guard(); err != nil {
		return err
	}
	doc, meta := ix.buildDocument(ctx, pos)
	vectors, err := ix.embedder.Embed(ctx, []string{doc}, nil)
	if err != nil {
		return fmt.Errorf("rag: embed: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("rag: embedder returned %d vectors for 1 input", len(vectors))
	}
	return ix.store.Upsert(ctx, []vectorstore.Item{{
		ID:        docID(pos.Ticker),
		Namespace: ix.namespace,
		Vector:    vectorstore.Vector(vectors[0]),
		Metadata:  meta,
	}})
}

// DeletePosition removes a ticker's document from the index.
func (ix *Index) DeletePosition(ctx context.Context, ticker string) error {
	if err := ix.guard(); err != nil {
		return err
	}
	return ix.store.Delete(ctx, ix.namespace, []string{docID(portfolio.SanitizeTicker(ticker))})
}

// RelevantPosition is one semantic search hit.
type RelevantPosition struct {
	Ticker        string  `json:"ticker"`
	Shares        float64 `json:"shares"`
	PurchasePrice float64 `json:"purchase_price"`
	PurchaseDate  string  `json:"purchase_date"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	Relevance     float64 `json:"relevance_score"`
	Summary       string  `json:"summary"`
}

// SearchResult is the ranked answer to a semantic query.
type SearchResult struct {
	Query          string             `json:"query"`
	Positions      []RelevantPosition `json:"relevant_positions"`
	ContextSummary string             `json:"context_summary"`
	TotalResults   int                `json:"total_results"`
}

// Search embeds the query and returns the top-k positions ranked by
// similarity.
func (ix *Index) Search(ctx context.Context, query string, k int) (*SearchResult, error) {
	if err := ix.guard(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = defaultTopK
	}
	vectors, err := ix.embedder.Embed(ctx, []string{query}, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	matches, err := ix.store.Query(ctx, vectorstore.Vector(vectors[0]), k, vectorstore.Filter{Namespace: ix.namespace})
	if err != nil {
		return nil, fmt.Errorf("rag: query: %w", err)
	}

	out := &SearchResult{Query: query, Positions: []RelevantPosition{}}
	for _, m := range matches {
		out.Positions = append(out.Positions, toRelevant(m.Item.Metadata, float64(m.Score)))
	}
	out.TotalResults = len(out.Positions)
	out.ContextSummary = summarize(out.Positions)
	ix.log.Info("semantic search", "query", query, "results", out.TotalResults)
	return out, nil
}

// SectorPositions lists index entries for one sector.
type SectorPositions struct {
	Sector    string             `json:"sector"`
	Positions []RelevantPosition `json:"positions"`
	Total     int                `json:"total_positions"`
}

// BySector fetches all indexed positions in a sector via metadata filter.
func (ix *Index) BySector(ctx context.Context, sector string) (*SectorPositions, error) {
	if err := ix.guard(); err != nil {
		return nil, err
	}
	items, err := ix.store.Get(ctx, vectorstore.Filter{Namespace: ix.namespace, Equals: map[string]any{"sector": sector}})
	if err != nil {
		return nil, fmt.Errorf("rag: get by sector: %w", err)
	}
	out := &SectorPositions{Sector: sector, Positions: []RelevantPosition{}}
	for _, it := range items {
		out.Positions = append(out.Positions, toRelevant(it.Metadata, 0))
	}
	sort.Slice(out.Positions, func(i, j int) bool { return out.Positions[i].Ticker < out.Positions[j].Ticker })
	out.Total = len(out.Positions)
	return out, nil
}

// SimilarResult holds the neighbors of a target holding.
type SimilarResult struct {
	TargetTicker string             `json:"target_ticker"`
	Similar      []RelevantPosition `json:"similar_positions"`
	TotalFound   int                `json:"total_found"`
}

// SimilarTo finds the holdings closest to a ticker's own document, excluding
// the ticker itself. A ticker not in the index falls back to a plain search.
func (ix *Index) SimilarTo(ctx context.Context, ticker string, k int) (*SimilarResult, error) {
	if err := ix.guard(); err != nil {
		return nil, err
	}
	ticker = portfolio.SanitizeTicker(ticker)
	if k <= 0 {
		k = defaultTopK
	}

	items, err := ix.store.Get(ctx, vectorstore.Filter{Namespace: ix.namespace, Equals: map[string]any{"ticker": ticker}})
	if err != nil {
		return nil, fmt.Errorf("rag: get target: %w", err)
	}
	if len(items) == 0 || len(items[0].Vector) == 0 {
		res, err := ix.Search(ctx, "similar to "+ticker, k)
		if err != nil {
			return nil, err
		}
		return &SimilarResult{TargetTicker: ticker, Similar: res.Positions, TotalFound: res.TotalResults}, nil
	}

	// Query with the target's own vector; ask for one extra because the
	// target matches itself.
	matches, err := ix.store.Query(ctx, items[0].Vector, k+1, vectorstore.Filter{Namespace: ix.namespace})
	if err != nil {
		return nil, fmt.Errorf("rag: query: %w", err)
	}
	out := &SimilarResult{TargetTicker: ticker, Similar: []RelevantPosition{}}
	for _, m := range matches {
		if t, _ := m.Item.Metadata["ticker"].(string); t == ticker {
			continue
		}
		if len(out.Similar) >= k {
			break
		}
		out.Similar = append(out.Similar, toRelevant(m.Item.Metadata, float64(m.Score)))
	}
	out.TotalFound = len(out.Similar)
	return out, nil
}

func toRelevant(meta map[string]any, score float64) RelevantPosition {
	out := RelevantPosition{Sector: "Unknown", Industry: "Unknown", Relevance: score}
	if v, ok := meta["ticker"].(string); ok {
		out.Ticker = v
	}
	if v, ok := meta["shares"].(float64); ok {
		out.Shares = v
	}
	if v, ok := meta["purchase_price"].(float64); ok {
		out.PurchasePrice = v
	}
	if v, ok := meta["purchase_date"].(string); ok {
		out.PurchaseDate = v
	}
	if v, ok := meta["sector"].(string); ok && v != "" {
		out.Sector = v
	}
	if v, ok := meta["industry"].(string); ok && v != "" {
		out.Industry = v
	}
	if v, ok := meta["document"].(string); ok {
		if len(v) > 200 {
			v = v[:200] + "..."
		}
		out.Summary = v
	}
	return out
}

func summarize(positions []RelevantPosition) string {
	if len(positions) == 0 {
		return "No matching positions found"
	}
	tickers := make([]string, len(positions))
	seen := map[string]bool{}
	var sectors []string
	for i, p := range positions {
		tickers[i] = p.Ticker
		if p.Sector != "Unknown" && !seen[p.Sector] {
			seen[p.Sector] = true
			sectors = append(sectors, p.Sector)
		}
	}
	s := fmt.Sprintf("Found %d relevant position(s): %s.", len(positions), strings.Join(tickers, ", "))
	if len(sectors) > 0 {
		s += " Sectors: " + strings.Join(sectors, ", ") + "."
	}
	return s
}
