// Package portfolio holds the stock position book and its JSON file store.
package portfolio

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// tickerRE accepts 1-5 uppercase letters with an optional class suffix
// (e.g. BRK.B).
var tickerRE = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)

const dateLayout = "2006-01-02"

// Position is a single stock holding. PurchaseDate is the original
// acquisition date in YYYY-MM-DD; adding to an existing position averages the
// cost but keeps this date.
type Position struct {
	Ticker        string  `json:"ticker"`
	Shares        float64 `json:"shares"`
	PurchasePrice float64 `json:"purchase_price"`
	PurchaseDate  string  `json:"purchase_date"`
}

// SanitizeTicker uppercases and trims a ticker symbol.
func SanitizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidTicker reports whether ticker (already sanitized) is a plausible
// symbol.
func ValidTicker(ticker string) bool {
	return tickerRE.MatchString(ticker)
}

// Validate checks the position's fields.
func (p *Position) Validate() error {
	if !ValidTicker(p.Ticker) {
		return fmt.Errorf("portfolio: invalid ticker symbol: %s", p.Ticker)
	}
	if p.Shares <= 0 {
		return fmt.Errorf("portfolio: shares must be positive, got %v", p.Shares)
	}
	if p.PurchasePrice <= 0 {
		return fmt.Errorf("portfolio: purchase price must be positive, got %v", p.PurchasePrice)
	}
	if _, err := time.Parse(dateLayout, p.PurchaseDate); err != nil {
		return fmt.Errorf("portfolio: purchase date must be YYYY-MM-DD, got %q", p.PurchaseDate)
	}
	return nil
}

// CurrentValue is the position's value at the given price.
func (p *Position) CurrentValue(price float64) float64 {
	return p.Shares * price
}

// GainLoss is the dollar gain or loss at the given price.
func (p *Position) GainLoss(price float64) float64 {
	return (price - p.PurchasePrice) * p.Shares
}

// GainLossPct is the percentage gain or loss at the given price.
func (p *Position) GainLossPct(price float64) float64 {
	if p.PurchasePrice == 0 {
		return 0
	}
	return (price - p.PurchasePrice) / p.PurchasePrice * 100
}

// HoldingDays is the number of days since purchase as of now.
func (p *Position) HoldingDays(now time.Time) int {
	d, err := time.Parse(dateLayout, p.PurchaseDate)
	if err != nil {
		return 0
	}
	return int(now.Sub(d).Hours() / 24)
}

// Book is the full portfolio as persisted to disk.
type Book struct {
	Positions   []Position `json:"positions"`
	LastUpdated string     `json:"last_updated,omitempty"`
}

// Get returns the position for ticker, or nil.
func (b *Book) Get(ticker string) *Position {
	ticker = SanitizeTicker(ticker)
	for i := range b.Positions {
		if b.Positions[i].Ticker == ticker {
			return &b.Positions[i]
		}
	}
	return nil
}

// Has reports whether ticker is held.
func (b *Book) Has(ticker string) bool {
	return b.Get(ticker) != nil
}

// TotalPositions is the number of distinct holdings.
func (b *Book) TotalPositions() int {
	return len(b.Positions)
}
