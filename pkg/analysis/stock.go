package analysis

import (
	"context"
	"fmt"
	"strings"
)

// Valuation is the result of AnalyzeValuation. IsOvervalued is nil when no
// P/E figure is available.
type Valuation struct {
	Ticker        string   `json:"ticker"`
	CompanyName   string   `json:"company_name"`
	Sector        string   `json:"sector"`
	PERatio       *float64 `json:"pe_ratio"`
	ForwardPE     *float64 `json:"forward_pe"`
	IsOvervalued  *bool    `json:"is_overvalued"`
	Summary       string   `json:"valuation_summary"`
	Profitability string   `json:"profitability"`
	ProfitMargin  *float64 `json:"profit_margin"`
	DebtToEquity  *float64 `json:"debt_to_equity"`
}

// AnalyzeValuation classifies a stock as premium, fair, or value priced by
// trailing P/E, with profitability read from margins.
func (a *Analyzer) AnalyzeValuation(ctx context.Context, ticker string) (*Valuation, error) {
	f, err := a.market.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}

	out := &Valuation{
		Ticker:        ticker,
		CompanyName:   f.CompanyName,
		Sector:        f.Sector,
		PERatio:       f.PERatio,
		ForwardPE:     f.ForwardPE,
		Summary:       "N/A",
		Profitability: "N/A",
		ProfitMargin:  f.ProfitMargin,
		DebtToEquity:  f.DebtToEquity,
	}

	if pe := f.PERatio; pe != nil {
		overvalued := false
		switch {
		case *pe > a.thresholds.OvervaluedPE:
			overvalued = true
			out.Summary = fmt.Sprintf("Premium valuation with P/E of %.2f", *pe)
		case *pe < a.thresholds.ValuePE:
			out.Summary = fmt.Sprintf("Value valuation with P/E of %.2f", *pe)
		default:
			out.Summary = fmt.Sprintf("Fair valuation with P/E of %.2f", *pe)
		}
		out.IsOvervalued = &overvalued
	}
	if fpe := f.ForwardPE; fpe != nil && out.Summary != "N/A" {
		out.Summary += fmt.Sprintf(" (Forward P/E: %.2f)", *fpe)
	}

	if m := f.ProfitMargin; m != nil {
		switch {
		case *m > a.thresholds.HighMarginPct:
			out.Profitability = fmt.Sprintf("High profitability (%.1f%% margin)", *m)
		case *m > a.thresholds.ModerateMarginPct:
			out.Profitability = fmt.Sprintf("Moderate profitability (%.1f%% margin)", *m)
		default:
			out.Profitability = fmt.Sprintf("Low profitability (%.1f%% margin)", *m)
		}
	}

	a.log.Info("valuation analysis", "ticker", ticker, "summary", out.Summary)
	return out, nil
}

// Growth is the result of AnalyzeGrowth.
type Growth struct {
	Ticker         string   `json:"ticker"`
	CompanyName    string   `json:"company_name"`
	RevenueGrowth  *float64 `json:"revenue_growth"`
	EarningsGrowth *float64 `json:"earnings_growth"`
	Category       string   `json:"growth_category"`
	YearReturnPct  *float64 `json:"year_return_pct"`
	Momentum       string   `json:"momentum"`
	Summary        string   `json:"growth_summary"`
}

// AnalyzeGrowth categorizes revenue growth and reads one-year price momentum
// from history. A history fetch failure degrades momentum to N/A rather than
// failing the analysis.
func (a *Analyzer) AnalyzeGrowth(ctx context.Context, ticker string) (*Growth, error) {
	f, err := a.market.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}

	out := &Growth{
		Ticker:         ticker,
		CompanyName:    f.CompanyName,
		RevenueGrowth:  f.RevenueGrowth,
		EarningsGrowth: f.EarningsGrowth,
		Category:       "N/A",
		Momentum:       "N/A",
	}

	if g := f.RevenueGrowth; g != nil {
		switch {
		case *g > 20:
			out.Category = "High Growth"
		case *g > 10:
			out.Category = "Moderate Growth"
		case *g > 0:
			out.Category = "Low Growth"
		default:
			out.Category = "Declining"
		}
	}

	if hist, err := a.market.History(ctx, ticker, "1y"); err == nil {
		ret := hist.TotalReturnPct()
		out.YearReturnPct = &ret
		switch {
		case ret > 30:
			out.Momentum = fmt.Sprintf("Strong positive momentum (+%.1f%% YoY)", ret)
		case ret > 10:
			out.Momentum = fmt.Sprintf("Positive momentum (+%.1f%% YoY)", ret)
		case ret > 0:
			out.Momentum = fmt.Sprintf("Slight positive momentum (+%.1f%% YoY)", ret)
		case ret > -10:
			out.Momentum = fmt.Sprintf("Slight negative momentum (%.1f%% YoY)", ret)
		default:
			out.Momentum = fmt.Sprintf("Negative momentum (%.1f%% YoY)", ret)
		}
	} else {
		a.log.Warn("history unavailable for momentum", "ticker", ticker, "error", err)
	}

	out.Summary = fmt.Sprintf("%s company with %s", out.Category, out.Momentum)
	a.log.Info("growth analysis", "ticker", ticker, "category", out.Category)
	return out, nil
}

// Risk is the result of AnalyzeRisk.
type Risk struct {
	Ticker         string   `json:"ticker"`
	CompanyName    string   `json:"company_name"`
	Beta           *float64 `json:"beta"`
	DebtToEquity   *float64 `json:"debt_to_equity"`
	VolatilityRisk string   `json:"volatility_risk"`
	FinancialRisk  string   `json:"financial_risk"`
	Overall        string   `json:"overall_risk"`
	Factors        []string `json:"risk_factors"`
	Summary        string   `json:"risk_summary"`
}

// AnalyzeRisk reads volatility risk from beta and financial risk from
// leverage, then composes an overall rating from the count of high-risk
// factors.
func (a *Analyzer) AnalyzeRisk(ctx context.Context, ticker string) (*Risk, error) {
	f, err := a.market.Fundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}

	out := &Risk{
		Ticker:         ticker,
		CompanyName:    f.CompanyName,
		Beta:           f.Beta,
		DebtToEquity:   f.DebtToEquity,
		VolatilityRisk: "N/A",
		FinancialRisk:  "N/A",
		Factors:        []string{},
	}

	if b := f.Beta; b != nil {
		switch {
		case *b > a.thresholds.HighBeta:
			out.VolatilityRisk = fmt.Sprintf("High volatility (Beta > %.1f)", a.thresholds.HighBeta)
			out.Factors = append(out.Factors, "high price volatility")
		case *b > a.thresholds.ModerateBeta:
			out.VolatilityRisk = fmt.Sprintf("Moderate volatility (Beta > %.1f)", a.thresholds.ModerateBeta)
		default:
			out.VolatilityRisk = fmt.Sprintf("Low volatility (Beta < %.1f)", a.thresholds.ModerateBeta)
		}
	}

	if d := f.DebtToEquity; d != nil {
		switch {
		case *d > a.thresholds.HighDebtToEquity:
			out.FinancialRisk = fmt.Sprintf("High debt (D/E > %.1f)", a.thresholds.HighDebtToEquity)
			out.Factors = append(out.Factors, "high financial leverage")
		case *d > a.thresholds.ModerateDebt:
			out.FinancialRisk = fmt.Sprintf("Moderate debt (D/E > %.1f)", a.thresholds.ModerateDebt)
		default:
			out.FinancialRisk = fmt.Sprintf("Low debt (D/E < %.1f)", a.thresholds.ModerateDebt)
		}
	}

	switch {
	case len(out.Factors) >= 2:
		out.Overall = "High risk"
	case len(out.Factors) == 0:
		out.Overall = "Low risk"
	default:
		out.Overall = "Moderate risk"
	}

	if len(out.Factors) > 0 {
		out.Summary = fmt.Sprintf("%s - %s", out.Overall, strings.Join(out.Factors, ", "))
	} else {
		out.Summary = out.Overall + " - No major risk factors identified"
	}

	a.log.Info("risk analysis", "ticker", ticker, "overall", out.Overall)
	return out, nil
}

// Comprehensive combines valuation, growth, risk, and the current quote.
type Comprehensive struct {
	Ticker       string     `json:"ticker"`
	CompanyName  string     `json:"company_name"`
	Sector       string     `json:"sector"`
	CurrentPrice float64    `json:"current_price"`
	Valuation    *Valuation `json:"valuation"`
	Growth       *Growth    `json:"growth"`
	Risk         *Risk      `json:"risk"`
}

// Comprehensive runs all three stock analyses plus a quote and composes them.
func (a *Analyzer) Comprehensive(ctx context.Context, ticker string) (*Comprehensive, error) {
	valuation, err := a.AnalyzeValuation(ctx, ticker)
	if err != nil {
		return nil, err
	}
	growth, err := a.AnalyzeGrowth(ctx, ticker)
	if err != nil {
		return nil, err
	}
	risk, err := a.AnalyzeRisk(ctx, ticker)
	if err != nil {
		return nil, err
	}
	quote, err := a.market.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return &Comprehensive{
		Ticker:       ticker,
		CompanyName:  valuation.CompanyName,
		Sector:       valuation.Sector,
		CurrentPrice: quote.Price,
		Valuation:    valuation,
		Growth:       growth,
		Risk:         risk,
	}, nil
}
