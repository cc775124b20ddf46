// Package analysis implements the valuation, growth, risk, and portfolio
// heuristics behind the recommendation capabilities.
package analysis

import (
	"log/slog"
	"time"

	"github.com/finsight/finsight/pkg/adapters/marketdata"
	"github.com/finsight/finsight/pkg/portfolio"
)

// Thresholds are the tunable cut-points the heuristics compare against. They
// are configuration, not fixed rules.
type Thresholds struct {
	// OvervaluedPE marks a trailing P/E above which a stock reads as
	// premium-priced.
	OvervaluedPE float64
	// ValuePE marks a trailing P/E below which a stock reads as value-priced.
	ValuePE float64
	// HighSectorConcentrationPct flags a sector above this share of portfolio
	// value.
	HighSectorConcentrationPct float64
	// MinDiversificationStocks is the position count that earns the full
	// position-count score.
	MinDiversificationStocks int

	HighMarginPct     float64
	ModerateMarginPct float64
	HighBeta          float64
	ModerateBeta      float64
	HighDebtToEquity  float64
	ModerateDebt      float64
}

// DefaultThresholds returns the stock defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OvervaluedPE:               30,
		ValuePE:                    15,
		HighSectorConcentrationPct: 40,
		MinDiversificationStocks:   10,
		HighMarginPct:              20,
		ModerateMarginPct:          10,
		HighBeta:                   1.5,
		ModerateBeta:               1.0,
		HighDebtToEquity:           2.0,
		ModerateDebt:               1.0,
	}
}

// Analyzer runs the heuristics against a market data provider and, for the
// portfolio-aware ones, the position store.
type Analyzer struct {
	market     marketdata.Provider
	store      *portfolio.FileStore
	thresholds Thresholds
	log        *slog.Logger
	now        func() time.Time
}

// New constructs an Analyzer. store may be nil when only per-stock analysis
// is needed.
func New(market marketdata.Provider, store *portfolio.FileStore, thresholds Thresholds, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{market: market, store: store, thresholds: thresholds, log: log, now: time.Now}
}
