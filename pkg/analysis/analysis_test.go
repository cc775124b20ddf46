package analysis

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"

	mdfake "github.com/finsight/finsight/pkg/adapters/marketdata/fake"
	"github.com/finsight/finsight/pkg/portfolio"
)

func newTestAnalyzer(t *testing.T) (*Analyzer, *portfolio.FileStore) {
	t.Helper()
	store := portfolio.NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"), nil)
	return New(mdfake.New(), store, DefaultThresholds(), nil), store
}

func TestAnalyzeValuation(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAnalyzer(t)

	// AAPL fixture has P/E 35.2, above the overvalued threshold of 30.
	v, err := a.AnalyzeValuation(ctx, "AAPL")
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if v.IsOvervalued == nil || !*v.IsOvervalued {
		t.Fatalf("AAPL should read overvalued: %+v", v)
	}
	if !strings.HasPrefix(v.Summary, "Premium valuation") {
		t.Fatalf("summary=%q", v.Summary)
	}

	// JNJ fixture has P/E 14.2, below the value threshold of 15.
	v, err = a.AnalyzeValuation(ctx, "JNJ")
	if err != nil {
		t.Fatalf("valuation: %v", err)
	}
	if v.IsOvervalued == nil || *v.IsOvervalued {
		t.Fatalf("JNJ should not read overvalued: %+v", v)
	}
	if !strings.HasPrefix(v.Summary, "Value valuation") {
		t.Fatalf("summary=%q", v.Summary)
	}
}

func TestAnalyzeGrowthAndRisk(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAnalyzer(t)

	g, err := a.AnalyzeGrowth(ctx, "MSFT")
	if err != nil {
		t.Fatalf("growth: %v", err)
	}
	// MSFT fixture: 15.2% revenue growth -> Moderate Growth; synthetic 1y
	// history climbs ~11%.
	if g.Category != "Moderate Growth" {
		t.Fatalf("category=%q", g.Category)
	}
	if g.YearReturnPct == nil || *g.YearReturnPct <= 0 {
		t.Fatalf("year return=%+v", g.YearReturnPct)
	}

	r, err := a.AnalyzeRisk(ctx, "XOM")
	if err != nil {
		t.Fatalf("risk: %v", err)
	}
	// XOM fixture: beta 0.88, but D/E 16.4 is over the high-debt cut.
	if r.Overall != "Moderate risk" {
		t.Fatalf("overall=%q factors=%v", r.Overall, r.Factors)
	}
}

func TestComprehensiveUnknownTicker(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	if _, err := a.Comprehensive(context.Background(), "ZZZZ"); err == nil {
		t.Fatal("expected error for unknown ticker")
	}
}

func TestMetricsEmptyPortfolio(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	if _, err := a.Metrics(context.Background()); err != ErrEmptyPortfolio {
		t.Fatalf("err=%v want ErrEmptyPortfolio", err)
	}
}

func TestMetricsScoringAndConcentration(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAnalyzer(t)
	mustAdd(t, store, "AAPL", 100, 150)
	mustAdd(t, store, "MSFT", 10, 300)
	mustAdd(t, store, "JNJ", 20, 140)

	m, err := a.Metrics(ctx)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if m.TotalPositions != 3 || m.TotalSectors != 2 {
		t.Fatalf("positions=%d sectors=%d", m.TotalPositions, m.TotalSectors)
	}
	if m.SectorAllocation[0].Sector != "Technology" {
		t.Fatalf("top sector=%s want Technology", m.SectorAllocation[0].Sector)
	}
	// 3 positions of 10 -> 12 points; 2 of 8 sectors -> 7.5 points; AAPL
	// dominates value so concentration contributes 0.
	if math.Abs(m.DiversificationScore-19.5) > 0.1 {
		t.Fatalf("score=%v want 19.5", m.DiversificationScore)
	}
	if m.WellDiversified {
		t.Fatal("should not be well diversified")
	}
	// Technology is far over 40% and AAPL over 25% of value.
	foundSector, foundPosition := false, false
	for _, r := range m.ConcentrationRisks {
		if strings.Contains(r, "Technology sector overweight") {
			foundSector = true
		}
		if strings.Contains(r, "AAPL overweight") {
			foundPosition = true
		}
	}
	if !foundSector || !foundPosition {
		t.Fatalf("risks=%v", m.ConcentrationRisks)
	}
}

func TestSectorExposure(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAnalyzer(t)
	mustAdd(t, store, "AAPL", 10, 150)
	mustAdd(t, store, "XOM", 10, 100)

	exp, err := a.SectorExposure(ctx, "Technology")
	if err != nil {
		t.Fatalf("exposure: %v", err)
	}
	if exp.PositionCount != 1 || exp.Tickers[0] != "AAPL" {
		t.Fatalf("exposure=%+v", exp)
	}
	if exp.Percentage <= 40 || !exp.Overweight {
		t.Fatalf("AAPL at 232.50 x10 should dominate: %+v", exp)
	}

	exp, err = a.SectorExposure(ctx, "Utilities")
	if err != nil {
		t.Fatalf("exposure: %v", err)
	}
	if exp.Percentage != 0 || exp.Overweight {
		t.Fatalf("expected zero exposure: %+v", exp)
	}
}

func TestSummaryGainLoss(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAnalyzer(t)
	mustAdd(t, store, "AAPL", 10, 200) // quote fixture at 232.50

	s, err := a.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalPositions != 1 {
		t.Fatalf("positions=%d", s.TotalPositions)
	}
	p := s.Positions[0]
	if math.Abs(p.GainLoss-325) > 1e-9 {
		t.Fatalf("gain=%v want 325", p.GainLoss)
	}
	if math.Abs(p.GainLossPct-16.25) > 1e-9 {
		t.Fatalf("gain pct=%v want 16.25", p.GainLossPct)
	}
	if math.Abs(s.TotalGainLossPct-16.25) > 1e-9 {
		t.Fatalf("total gain pct=%v", s.TotalGainLossPct)
	}
}

func TestSummaryEmptyPortfolio(t *testing.T) {
	a, _ := newTestAnalyzer(t)
	s, err := a.Summary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.TotalPositions != 0 || s.TotalValue != 0 || len(s.Positions) != 0 {
		t.Fatalf("expected zero summary: %+v", s)
	}
}

func TestRecommendActionNewVsHeld(t *testing.T) {
	ctx := context.Background()
	a, store := newTestAnalyzer(t)

	// No position: MSFT fixture scores well (fair P/E, moderate growth,
	// positive momentum, low risk) -> BUY.
	rec, err := a.RecommendAction(ctx, "MSFT")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if rec.Action != "BUY" {
		t.Fatalf("action=%s (+%d/-%d)", rec.Action, rec.PositiveSignals, rec.NegativeSignals)
	}
	if rec.HasPosition {
		t.Fatal("should not report a position")
	}

	// Held position never yields BUY, only HOLD or SELL.
	mustAdd(t, store, "MSFT", 10, 300)
	rec, err = a.RecommendAction(ctx, "MSFT")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if !rec.HasPosition {
		t.Fatal("should report existing position")
	}
	if rec.Action != "HOLD" && rec.Action != "SELL" {
		t.Fatalf("action=%s want HOLD or SELL", rec.Action)
	}
}

func TestCompareStocksRanksAndDropsFailures(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAnalyzer(t)

	cmp, err := a.CompareStocks(ctx, []string{"MSFT", "ZZZZ", "AAPL"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(cmp.Comparisons) != 2 {
		t.Fatalf("comparisons=%d want 2 (ZZZZ dropped)", len(cmp.Comparisons))
	}
	if cmp.TopPick == "" {
		t.Fatal("expected a top pick")
	}
	if cmp.Comparisons[0].Score < cmp.Comparisons[1].Score {
		t.Fatalf("not sorted: %+v", cmp.Comparisons)
	}
}

func mustAdd(t *testing.T, store *portfolio.FileStore, ticker string, shares, price float64) {
	t.Helper()
	if _, err := store.Add(ticker, shares, price, "2024-01-02"); err != nil {
		t.Fatalf("add %s: %v", ticker, err)
	}
}
