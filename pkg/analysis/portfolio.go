package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrEmptyPortfolio is returned by Metrics when no positions are held.
var ErrEmptyPortfolio = errors.New("analysis: portfolio is empty")

// SectorAllocation is one sector's share of portfolio value.
type SectorAllocation struct {
	Sector     string   `json:"sector"`
	Value      float64  `json:"value"`
	Percentage float64  `json:"percentage"`
	Tickers    []string `json:"tickers"`
}

// Metrics is the portfolio-wide diversification picture. The score out of 100
// is the sum of a position-count component (40), a sector-spread component
// (30), and a concentration component (30).
type Metrics struct {
	TotalValue           float64            `json:"total_value"`
	TotalPositions       int                `json:"total_positions"`
	TotalSectors         int                `json:"total_sectors"`
	DiversificationScore float64            `json:"diversification_score"`
	SectorAllocation     []SectorAllocation `json:"sector_allocation"`
	ConcentrationRisks   []string           `json:"concentration_risks"`
	WellDiversified      bool               `json:"is_well_diversified"`
}

// Metrics prices every position, aggregates by sector, and scores
// diversification. Positions whose market data cannot be fetched are skipped.
func (a *Analyzer) Metrics(ctx context.Context) (*Metrics, error) {
	book, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if book.TotalPositions() == 0 {
		return nil, ErrEmptyPortfolio
	}

	type sectorBucket struct {
		value   float64
		tickers []string
	}
	sectors := map[string]*sectorBucket{}
	var totalValue float64
	type posValue struct {
		ticker string
		value  float64
	}
	var positionValues []posValue

	for _, pos := range book.Positions {
		quote, err := a.market.Quote(ctx, pos.Ticker)
		if err != nil {
			a.log.Warn("skipping position, quote unavailable", "ticker", pos.Ticker, "error", err)
			continue
		}
		value := pos.CurrentValue(quote.Price)
		totalValue += value
		positionValues = append(positionValues, posValue{ticker: pos.Ticker, value: value})

		sector := "Unknown"
		if f, err := a.market.Fundamentals(ctx, pos.Ticker); err == nil && f.Sector != "" {
			sector = f.Sector
		}
		bucket := sectors[sector]
		if bucket == nil {
			bucket = &sectorBucket{}
			sectors[sector] = bucket
		}
		bucket.value += value
		bucket.tickers = append(bucket.tickers, pos.Ticker)
	}

	allocation := make([]SectorAllocation, 0, len(sectors))
	for sector, bucket := range sectors {
		pct := 0.0
		if totalValue > 0 {
			pct = bucket.value / totalValue * 100
		}
		allocation = append(allocation, SectorAllocation{
			Sector:     sector,
			Value:      bucket.value,
			Percentage: pct,
			Tickers:    bucket.tickers,
		})
	}
	sort.Slice(allocation, func(i, j int) bool { return allocation[i].Percentage > allocation[j].Percentage })

	numPositions := book.TotalPositions()
	numSectors := len(sectors)

	positionScore := float64(numPositions) / float64(a.thresholds.MinDiversificationStocks) * 40
	if positionScore > 40 {
		positionScore = 40
	}
	sectorScore := float64(numSectors) / 8 * 30 // 8 major sectors
	if sectorScore > 30 {
		sectorScore = 30
	}
	concentrationScore := 0.0
	if totalValue > 0 {
		maxPct := 0.0
		for _, pv := range positionValues {
			if pct := pv.value / totalValue * 100; pct > maxPct {
				maxPct = pct
			}
		}
		concentrationScore = 30 - (maxPct-10)*2
		if concentrationScore < 0 {
			concentrationScore = 0
		}
		if concentrationScore > 30 {
			concentrationScore = 30
		}
	}

	var risks []string
	if numPositions < 5 {
		risks = append(risks, "Too few positions (< 5)")
	}
	for _, s := range allocation {
		if s.Percentage > a.thresholds.HighSectorConcentrationPct {
			risks = append(risks, fmt.Sprintf("%s sector overweight (%.1f%%)", s.Sector, s.Percentage))
		}
	}
	if totalValue > 0 {
		for _, pv := range positionValues {
			if pct := pv.value / totalValue * 100; pct > 25 {
				risks = append(risks, fmt.Sprintf("%s overweight (%.1f%%)", pv.ticker, pct))
			}
		}
	}

	score := positionScore + sectorScore + concentrationScore
	out := &Metrics{
		TotalValue:           totalValue,
		TotalPositions:       numPositions,
		TotalSectors:         numSectors,
		DiversificationScore: score,
		SectorAllocation:     allocation,
		ConcentrationRisks:   risks,
		WellDiversified:      score >= 60 && len(risks) == 0,
	}
	a.log.Info("portfolio metrics", "positions", numPositions, "score", score)
	return out, nil
}

// SectorExposure is one sector's weight in the portfolio.
type SectorExposure struct {
	Sector         string   `json:"sector"`
	Value          float64  `json:"value"`
	Percentage     float64  `json:"percentage"`
	PositionCount  int      `json:"position_count"`
	Tickers        []string `json:"tickers"`
	Overweight     bool     `json:"is_overweight"`
	Recommendation string   `json:"recommendation"`
}

// SectorExposure reports the portfolio's weight in one sector. Zero exposure
// is a valid result, not an error.
func (a *Analyzer) SectorExposure(ctx context.Context, sector string) (*SectorExposure, error) {
	metrics, err := a.Metrics(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range metrics.SectorAllocation {
		if s.Sector != sector {
			continue
		}
		overweight := s.Percentage > a.thresholds.HighSectorConcentrationPct
		rec := fmt.Sprintf("%s exposure is balanced", sector)
		if overweight {
			rec = fmt.Sprintf("Reduce %s exposure", sector)
		}
		return &SectorExposure{
			Sector:         sector,
			Value:          s.Value,
			Percentage:     s.Percentage,
			PositionCount:  len(s.Tickers),
			Tickers:        s.Tickers,
			Overweight:     overweight,
			Recommendation: rec,
		}, nil
	}
	return &SectorExposure{
		Sector:         sector,
		Tickers:        []string{},
		Recommendation: fmt.Sprintf("No exposure to %s sector", sector),
	}, nil
}

// PositionSummary is the valued view of one holding.
type PositionSummary struct {
	Ticker        string  `json:"ticker"`
	Shares        float64 `json:"shares"`
	PurchasePrice float64 `json:"purchase_price"`
	CurrentPrice  float64 `json:"current_price"`
	CurrentValue  float64 `json:"current_value"`
	CostBasis     float64 `json:"cost_basis"`
	GainLoss      float64 `json:"gain_loss"`
	GainLossPct   float64 `json:"gain_loss_pct"`
	Sector        string  `json:"sector"`
	HoldingDays   int     `json:"holding_days"`
}

// Summary is the high-level portfolio view.
type Summary struct {
	TotalValue       float64           `json:"total_value"`
	TotalCost        float64           `json:"total_cost"`
	TotalPositions   int               `json:"total_positions"`
	TotalGainLoss    float64           `json:"total_gain_loss"`
	TotalGainLossPct float64           `json:"total_gain_loss_pct"`
	Positions        []PositionSummary `json:"positions"`
}

// Summary values each holding at the current quote. An empty portfolio
// yields a zero summary. Positions whose quote cannot be fetched are skipped.
func (a *Analyzer) Summary(ctx context.Context) (*Summary, error) {
	book, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	out := &Summary{Positions: []PositionSummary{}}
	if book.TotalPositions() == 0 {
		return out, nil
	}

	now := a.now()
	for _, pos := range book.Positions {
		quote, err := a.market.Quote(ctx, pos.Ticker)
		if err != nil {
			a.log.Warn("skipping position, quote unavailable", "ticker", pos.Ticker, "error", err)
			continue
		}
		sector := "Unknown"
		if f, err := a.market.Fundamentals(ctx, pos.Ticker); err == nil && f.Sector != "" {
			sector = f.Sector
		}
		value := pos.CurrentValue(quote.Price)
		cost := pos.Shares * pos.PurchasePrice
		out.TotalValue += value
		out.TotalCost += cost
		out.Positions = append(out.Positions, PositionSummary{
			Ticker:        pos.Ticker,
			Shares:        pos.Shares,
			PurchasePrice: pos.PurchasePrice,
			CurrentPrice:  quote.Price,
			CurrentValue:  value,
			CostBasis:     cost,
			GainLoss:      pos.GainLoss(quote.Price),
			GainLossPct:   pos.GainLossPct(quote.Price),
			Sector:        sector,
			HoldingDays:   pos.HoldingDays(now),
		})
	}

	out.TotalPositions = len(out.Positions)
	out.TotalGainLoss = out.TotalValue - out.TotalCost
	if out.TotalCost > 0 {
		out.TotalGainLossPct = out.TotalGainLoss / out.TotalCost * 100
	}
	a.log.Info("portfolio summary", "value", out.TotalValue, "return_pct", out.TotalGainLossPct)
	return out, nil
}
