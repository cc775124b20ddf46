// Package fake is a deterministic in-memory marketdata.Provider for tests and
// offline runs.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finsight/finsight/pkg/adapters/marketdata"
)

// Provider serves fixture data keyed by ticker.
type Provider struct {
	mu           sync.RWMutex
	quotes       map[string]marketdata.Quote
	fundamentals map[string]marketdata.Fundamentals
	news         map[string][]marketdata.NewsItem
}

// New returns a provider pre-loaded with a small set of well-known tickers.
func New() *Provider {
	p := &Provider{
		quotes:       map[string]marketdata.Quote{},
		fundamentals: map[string]marketdata.Fundamentals{},
		news:         map[string][]marketdata.NewsItem{},
	}
	p.seed()
	return p
}

func (p *Provider) Name() string { return "fake" }

func (p *Provider) Quote(ctx context.Context, ticker string) (*marketdata.Quote, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	q, ok := p.quotes[ticker]
	if !ok {
		return nil, fmt.Errorf("fake: unknown ticker %s", ticker)
	}
	return &q, nil
}

func (p *Provider) Fundamentals(ctx context.Context, ticker string) (*marketdata.Fundamentals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	f, ok := p.fundamentals[ticker]
	if !ok {
		return nil, fmt.Errorf("fake: unknown ticker %s", ticker)
	}
	return &f, nil
}

// History synthesizes a deterministic daily series drifting from 90% of the
// current quote price up to the quote price.
func (p *Provider) History(ctx context.Context, ticker, period string) (*marketdata.History, error) {
	if !marketdata.ValidPeriod(period) {
		return nil, fmt.Errorf("fake: invalid period %q", period)
	}
	q, err := p.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	days := periodDays(period)
	out := &marketdata.History{Ticker: ticker, Period: period}
	start := q.Price * 0.9
	base := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
	for i := 0; i < days; i++ {
		frac := float64(i) / float64(days-1)
		out.Points = append(out.Points, marketdata.HistoryPoint{
			Date:   base.AddDate(0, 0, i),
			Close:  start + (q.Price-start)*frac,
			Volume: q.Volume,
		})
	}
	return out, nil
}

func (p *Provider) News(ctx context.Context, ticker string, limit int) ([]marketdata.NewsItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, ok := p.quotes[ticker]; !ok {
		return nil, fmt.Errorf("fake: unknown ticker %s", ticker)
	}
	items := p.news[ticker]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]marketdata.NewsItem, len(items))
	copy(out, items)
	return out, nil
}

// SetQuote installs or replaces a quote fixture.
func (p *Provider) SetQuote(q marketdata.Quote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[q.Ticker] = q
}

// SetFundamentals installs or replaces a fundamentals fixture.
func (p *Provider) SetFundamentals(f marketdata.Fundamentals) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fundamentals[f.Ticker] = f
}

// SetNews installs news fixtures for a ticker.
func (p *Provider) SetNews(ticker string, items []marketdata.NewsItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.news[ticker] = items
}

func periodDays(period string) int {
	switch period {
	case "1d":
		return 2
	case "5d":
		return 5
	case "1mo":
		return 21
	case "3mo":
		return 63
	case "6mo":
		return 126
	case "2y":
		return 504
	case "5y":
		return 1260
	case "10y":
		return 2520
	default: // 1y, ytd, max
		return 252
	}
}

func f64(v float64) *float64 { return &v }

func (p *Provider) seed() {
	p.quotes["AAPL"] = marketdata.Quote{Ticker: "AAPL", Price: 232.50, PreviousClose: 230.00, ChangePercent: 1.09, Volume: 48_000_000, MarketCap: 3_500_000_000_000, Currency: "USD"}
	p.fundamentals["AAPL"] = marketdata.Fundamentals{
		Ticker: "AAPL", CompanyName: "Apple Inc.", Sector: "Technology", Industry: "Consumer Electronics",
		MarketCap: 3_500_000_000_000, PERatio: f64(35.2), ForwardPE: f64(28.1), EPS: f64(6.60),
		DividendYield: f64(0.44), Beta: f64(1.25), High52Week: f64(245.0), Low52Week: f64(164.0),
		RevenueGrowth: f64(4.9), EarningsGrowth: f64(7.8), ProfitMargin: f64(24.3), DebtToEquity: f64(154.5),
	}
	p.quotes["MSFT"] = marketdata.Quote{Ticker: "MSFT", Price: 425.00, PreviousClose: 421.00, ChangePercent: 0.95, Volume: 22_000_000, MarketCap: 3_160_000_000_000, Currency: "USD"}
	p.fundamentals["MSFT"] = marketdata.Fundamentals{
		Ticker: "MSFT", CompanyName: "Microsoft Corporation", Sector: "Technology", Industry: "Software - Infrastructure",
		MarketCap: 3_160_000_000_000, PERatio: f64(32.8), ForwardPE: f64(27.5), EPS: f64(12.95),
		DividendYield: f64(0.72), Beta: f64(0.92), High52Week: f64(445.0), Low52Week: f64(310.0),
		RevenueGrowth: f64(15.2), EarningsGrowth: f64(18.3), ProfitMargin: f64(36.7), DebtToEquity: f64(33.7),
	}
	p.quotes["JNJ"] = marketdata.Quote{Ticker: "JNJ", Price: 158.20, PreviousClose: 158.90, ChangePercent: -0.44, Volume: 7_500_000, MarketCap: 381_000_000_000, Currency: "USD"}
	p.fundamentals["JNJ"] = marketdata.Fundamentals{
		Ticker: "JNJ", CompanyName: "Johnson & Johnson", Sector: "Healthcare", Industry: "Drug Manufacturers - General",
		MarketCap: 381_000_000_000, PERatio: f64(14.2), ForwardPE: f64(13.8), EPS: f64(11.14),
		DividendYield: f64(3.12), Beta: f64(0.53), High52Week: f64(168.8), Low52Week: f64(140.7),
		RevenueGrowth: f64(2.1), EarningsGrowth: f64(3.4), ProfitMargin: f64(19.8), DebtToEquity: f64(44.2),
	}
	p.quotes["XOM"] = marketdata.Quote{Ticker: "XOM", Price: 114.30, PreviousClose: 113.10, ChangePercent: 1.06, Volume: 15_000_000, MarketCap: 455_000_000_000, Currency: "USD"}
	p.fundamentals["XOM"] = marketdata.Fundamentals{
		Ticker: "XOM", CompanyName: "Exxon Mobil Corporation", Sector: "Energy", Industry: "Oil & Gas Integrated",
		MarketCap: 455_000_000_000, PERatio: f64(13.1), ForwardPE: f64(12.4), EPS: f64(8.72),
		DividendYield: f64(3.35), Beta: f64(0.88), High52Week: f64(126.3), Low52Week: f64(97.8),
		RevenueGrowth: f64(-1.8), EarningsGrowth: f64(-5.2), ProfitMargin: f64(9.9), DebtToEquity: f64(16.4),
	}
	p.news["AAPL"] = []marketdata.NewsItem{
		{Title: "Apple unveils new silicon roadmap", Publisher: "Newswire", Link: "https://example.com/aapl-1", Published: time.Date(2026, 8, 28, 14, 0, 0, 0, time.UTC)},
		{Title: "Services revenue hits record", Publisher: "Market Daily", Link: "https://example.com/aapl-2", Published: time.Date(2026, 8, 27, 9, 30, 0, 0, time.UTC)},
	}
}

// Factory constructs the fixture provider. No config keys.
func Factory(ctx context.Context, cfg map[string]any) (marketdata.Provider, error) { // nolint: revive
	_, _ = ctx, cfg
	return New(), nil
}

func init() {
	_ = marketdata.Register("fake", Factory)
}
