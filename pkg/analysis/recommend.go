package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Recommendation is a buy/sell/hold/pass call with the signal tally and the
// reasoning behind it.
type Recommendation struct {
	Ticker          string  `json:"ticker"`
	Action          string  `json:"action"`     // BUY, SELL, HOLD, PASS
	Confidence      string  `json:"confidence"` // HIGH, MODERATE
	Summary         string  `json:"summary"`
	Reasoning       string  `json:"reasoning"`
	PositiveSignals int     `json:"positive_signals"`
	NegativeSignals int     `json:"negative_signals"`
	HasPosition     bool    `json:"has_existing_position"`
	CurrentPrice    float64 `json:"current_price"`
}

// RecommendAction tallies valuation, growth, momentum, risk, and portfolio
// context signals into an action. Existing positions decide between HOLD and
// SELL; new candidates between BUY and PASS.
func (a *Analyzer) RecommendAction(ctx context.Context, ticker string) (*Recommendation, error) {
	comp, err := a.Comprehensive(ctx, ticker)
	if err != nil {
		return nil, err
	}

	hasPosition := false
	if a.store != nil {
		if book, err := a.store.Load(); err == nil {
			hasPosition = book.Has(ticker)
		}
	}

	var metrics *Metrics
	if a.store != nil {
		metrics, _ = a.Metrics(ctx) // empty portfolio is fine, just no context
	}

	var factors []string
	positive, negative := 0, 0

	// Valuation
	if ov := comp.Valuation.IsOvervalued; ov != nil {
		if *ov {
			negative++
			factors = append(factors, "- Overvalued: "+comp.Valuation.Summary)
		} else {
			positive++
			factors = append(factors, "+ Fair/Value pricing: "+comp.Valuation.Summary)
		}
	}

	// Growth
	switch comp.Growth.Category {
	case "High Growth", "Moderate Growth":
		positive++
		rg := "N/A"
		if comp.Growth.RevenueGrowth != nil {
			rg = fmt.Sprintf("%.1f%%", *comp.Growth.RevenueGrowth)
		}
		factors = append(factors, fmt.Sprintf("+ %s: %s revenue growth", comp.Growth.Category, rg))
	case "Declining":
		negative++
		factors = append(factors, "- Declining revenues")
	}

	// Momentum
	momentum := comp.Growth.Momentum
	switch {
	case strings.HasPrefix(momentum, "Strong positive"), strings.HasPrefix(momentum, "Positive"):
		positive++
		factors = append(factors, "+ "+momentum)
	case strings.Contains(momentum, "Negative"), strings.Contains(momentum, "negative"):
		negative++
		factors = append(factors, "- "+momentum)
	}

	// Risk
	switch comp.Risk.Overall {
	case "High risk":
		negative++
		factors = append(factors, "- High risk: "+strings.Join(comp.Risk.Factors, ", "))
	case "Low risk":
		positive++
		factors = append(factors, "+ Low risk profile")
	}

	// Portfolio sector context
	if metrics != nil {
		for _, s := range metrics.SectorAllocation {
			if s.Sector != comp.Sector {
				continue
			}
			if s.Percentage > a.thresholds.HighSectorConcentrationPct {
				negative++
				factors = append(factors, fmt.Sprintf("- %s sector overweight in portfolio (%.1f%%)", comp.Sector, s.Percentage))
			} else if s.Percentage < 20 {
				positive++
				factors = append(factors, fmt.Sprintf("+ %s sector underweight in portfolio (%.1f%%)", comp.Sector, s.Percentage))
			}
			break
		}
	}

	// Existing position gain/loss notes
	if hasPosition {
		if book, err := a.store.Load(); err == nil {
			if pos := book.Get(ticker); pos != nil {
				glPct := pos.GainLossPct(comp.CurrentPrice)
				if glPct > 50 {
					factors = append(factors, fmt.Sprintf("note: Strong gain on existing position (+%.1f%%), consider taking profits", glPct))
				} else if glPct < -20 {
					factors = append(factors, fmt.Sprintf("note: Significant loss on existing position (%.1f%%), review holding", glPct))
				}
			}
		}
	}

	total := positive + negative
	if total == 0 {
		total = 1
	}
	ratio := float64(positive) / float64(total)

	var action, confidence, summary string
	if hasPosition {
		switch {
		case negative >= 3 || ratio < 0.3:
			action = "SELL"
			confidence = "HIGH"
			if negative == 3 {
				confidence = "MODERATE"
			}
			summary = fmt.Sprintf("Consider selling %s. Multiple negative factors suggest it may underperform.", ticker)
		case ratio < 0.5:
			action, confidence = "HOLD", "MODERATE"
			summary = fmt.Sprintf("Hold %s for now. Mixed signals suggest waiting for clearer direction.", ticker)
		default:
			action, confidence = "HOLD", "MODERATE"
			summary = fmt.Sprintf("Continue holding %s. Positive fundamentals support the position.", ticker)
		}
	} else {
		switch {
		case ratio >= 0.7 && positive >= 3:
			action, confidence = "BUY", "HIGH"
			summary = fmt.Sprintf("Strong buy signal for %s. Multiple positive factors align.", ticker)
		case ratio >= 0.5 && positive >= 2:
			action, confidence = "BUY", "MODERATE"
			summary = fmt.Sprintf("Cautious buy for %s. Consider a small position (5-10%%).", ticker)
		default:
			action, confidence = "PASS", "MODERATE"
			summary = fmt.Sprintf("Pass on %s for now. Wait for better entry point or clearer fundamentals.", ticker)
		}
	}

	reasoning := []string{summary, "", "Key Factors:"}
	for _, f := range factors {
		reasoning = append(reasoning, "  "+f)
	}
	if metrics != nil {
		reasoning = append(reasoning, "", "Portfolio Context:")
		reasoning = append(reasoning, fmt.Sprintf("  Total positions: %d", metrics.TotalPositions))
		reasoning = append(reasoning, fmt.Sprintf("  Diversification score: %.1f/100", metrics.DiversificationScore))
		if len(metrics.ConcentrationRisks) > 0 {
			reasoning = append(reasoning, "  Concentration risks:")
			risks := metrics.ConcentrationRisks
			if len(risks) > 3 {
				risks = risks[:3]
			}
			for _, r := range risks {
				reasoning = append(reasoning, "    - "+r)
			}
		}
	}

	out := &Recommendation{
		Ticker:          ticker,
		Action:          action,
		Confidence:      confidence,
		Summary:         summary,
		Reasoning:       strings.Join(reasoning, "\n"),
		PositiveSignals: positive,
		NegativeSignals: negative,
		HasPosition:     hasPosition,
		CurrentPrice:    comp.CurrentPrice,
	}
	a.log.Info("recommendation", "ticker", ticker, "action", action, "confidence", confidence)
	return out, nil
}

// Comparison is one stock's standing in a CompareStocks ranking.
type Comparison struct {
	Ticker     string `json:"ticker"`
	Action     string `json:"action"`
	Confidence string `json:"confidence"`
	Score      int    `json:"score"`
	Summary    string `json:"summary"`
}

// StockComparison ranks candidates by net signals.
type StockComparison struct {
	Comparisons    []Comparison `json:"comparisons"`
	TopPick        string       `json:"top_pick"`
	Recommendation string       `json:"recommendation"`
}

// CompareStocks runs RecommendAction for each ticker and ranks by net
// positive signals. Tickers whose analysis fails are dropped from the
// ranking.
func (a *Analyzer) CompareStocks(ctx context.Context, tickers []string) (*StockComparison, error) {
	out := &StockComparison{Comparisons: []Comparison{}, Recommendation: "No clear winner"}
	for _, ticker := range tickers {
		rec, err := a.RecommendAction(ctx, ticker)
		if err != nil {
			a.log.Warn("dropping ticker from comparison", "ticker", ticker, "error", err)
			continue
		}
		out.Comparisons = append(out.Comparisons, Comparison{
			Ticker:     ticker,
			Action:     rec.Action,
			Confidence: rec.Confidence,
			Score:      rec.PositiveSignals - rec.NegativeSignals,
			Summary:    rec.Summary,
		})
	}
	// Stable sort keeps input order for equal scores.
	sort.SliceStable(out.Comparisons, func(i, j int) bool {
		return out.Comparisons[i].Score > out.Comparisons[j].Score
	})
	if len(out.Comparisons) > 0 {
		out.TopPick = out.Comparisons[0].Ticker
		out.Recommendation = fmt.Sprintf("Based on analysis, %s is the top pick", out.TopPick)
	}
	return out, nil
}
