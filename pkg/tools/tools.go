// Package tools binds market data, portfolio storage, the semantic index,
// and the analysis heuristics into the agent's capability catalog.
package tools

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/finsight/finsight/pkg/adapters/marketdata"
	"github.com/finsight/finsight/pkg/agent"
	"github.com/finsight/finsight/pkg/analysis"
	"github.com/finsight/finsight/pkg/portfolio"
	"github.com/finsight/finsight/pkg/rag"
)

// Deps are the services the capabilities call into. Index may be nil or
// unavailable; the semantic capabilities then fail with a clear message while
// everything else keeps working.
type Deps struct {
	Market   marketdata.Provider
	Store    *portfolio.FileStore
	Analyzer *analysis.Analyzer
	Index    *rag.Index
	Log      *slog.Logger
}

// All returns the full capability catalog in its canonical order.
func All(d Deps) []agent.Tool {
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return []agent.Tool{
		currentStockPrice(d),
		stockFundamentals(d),
		historicalData(d),
		stockNews(d),
		portfolioSummary(d),
		positionDetails(d),
		addPosition(d),
		removePosition(d),
		searchPortfolioContext(d),
		sectorExposure(d),
		findSimilarHoldings(d),
		analyzeStockValuation(d),
		calculatePortfolioMetrics(d),
		recommendAction(d),
	}
}

// index returns the semantic index or an error when it is absent or was
// constructed unavailable.
func (d Deps) index() (*rag.Index, error) {
	if d.Index == nil {
		return nil, fmt.Errorf("semantic search is not available")
	}
	if !d.Index.Available() {
		return nil, fmt.Errorf("semantic search is not available: %s", d.Index.Reason())
	}
	return d.Index, nil
}

// tickerArg extracts, sanitizes, and validates the ticker argument.
func tickerArg(args map[string]any) (string, error) {
	raw, _ := args["ticker"].(string)
	ticker := portfolio.SanitizeTicker(raw)
	if !portfolio.ValidTicker(ticker) {
		return "", fmt.Errorf("invalid ticker symbol: %s", ticker)
	}
	return ticker, nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func numberArg(args map[string]any, key string) (float64, bool) {
	v, ok := args[key].(float64)
	return v, ok
}

// intArg reads an integer argument, falling back to def when absent or not
// positive. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	v, ok := args[key].(float64)
	if !ok || v <= 0 {
		return def
	}
	return int(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// na renders an optional figure the way the model expects: the rounded value,
// or "N/A" when the source has none.
func na(p *float64) any {
	if p == nil {
		return "N/A"
	}
	return round2(*p)
}
