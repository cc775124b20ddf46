// Package marketdata defines the market data interface the capability layer
// reads stock quotes, fundamentals, history, and news through, plus a factory
// registry for concrete providers.
package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Quote is a snapshot of current trading data for one ticker.
type Quote struct {
	Ticker        string
	Price         float64
	PreviousClose float64
	ChangePercent float64
	Volume        int64
	MarketCap     int64
	Currency      string
}

// Fundamentals carries valuation and profile data for one ticker. Ratio
// fields are pointers: nil means the upstream source has no figure, which the
// analysis heuristics treat differently from zero.
type Fundamentals struct {
	Ticker      string
	CompanyName string
	Sector      string
	Industry    string
	Description string

	MarketCap      int64
	PERatio        *float64
	ForwardPE      *float64
	EPS            *float64
	DividendYield  *float64 // percent
	Beta           *float64
	High52Week     *float64
	Low52Week      *float64
	RevenueGrowth  *float64 // percent
	EarningsGrowth *float64 // percent
	ProfitMargin   *float64 // percent
	DebtToEquity   *float64
}

// HistoryPoint is one daily close.
type HistoryPoint struct {
	Date   time.Time
	Close  float64
	Volume int64
}

// History is a price series for one ticker over a named period.
type History struct {
	Ticker string
	Period string
	Points []HistoryPoint
}

// TotalReturnPct returns the percentage change from the first to the last
// close, or 0 for series shorter than two points.
func (h *History) TotalReturnPct() float64 {
	if len(h.Points) < 2 || h.Points[0].Close == 0 {
		return 0
	}
	first, last := h.Points[0].Close, h.Points[len(h.Points)-1].Close
	return (last - first) / first * 100
}

// NewsItem is one news headline for a ticker.
type NewsItem struct {
	Title     string
	Publisher string
	Link      string
	Published time.Time
}

// ValidPeriods enumerates the accepted history period names.
var ValidPeriods = []string{"1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}

// ValidPeriod reports whether period is an accepted history range.
func ValidPeriod(period string) bool {
	for _, p := range ValidPeriods {
		if p == period {
			return true
		}
	}
	return false
}

// Provider abstracts a market data source. All methods honor ctx and report
// upstream failures as errors; callers convert them to structured outcomes.
type Provider interface {
	Name() string
	Quote(ctx context.Context, ticker string) (*Quote, error)
	Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
	History(ctx context.Context, ticker, period string) (*History, error)
	News(ctx context.Context, ticker string, limit int) ([]NewsItem, error)
}

// Factory constructs a Provider from a provider-specific configuration map.
type Factory func(ctx context.Context, cfg map[string]any) (Provider, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a Provider factory under a provider name.
func Register(name string, f Factory) error {
	if name == "" {
		return fmt.Errorf("marketdata: empty provider name")
	}
	if f == nil {
		return fmt.Errorf("marketdata: nil factory for %q", name)
	}
	regMu.Lock()
	defer regMu.Unlock()
	if _, exists := factories[name]; exists {
		return fmt.Errorf("marketdata: provider %q already registered", name)
	}
	factories[name] = f
	return nil
}

// Resolve gets a registered factory by name.
func Resolve(name string) (Factory, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Range iterates all registered factories.
func Range(fn func(name string, f Factory)) {
	regMu.RLock()
	defer regMu.RUnlock()
	for n, f := range factories {
		fn(n, f)
	}
}
