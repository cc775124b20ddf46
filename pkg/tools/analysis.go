package tools

import (
	"context"

	"github.com/finsight/finsight/pkg/agent"
)

const analyzeStockValuationSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    }
  },
  "required": ["ticker"]
}`

func analyzeStockValuation(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "analyze_stock_valuation",
			Description: "Analyzes a stock's valuation metrics including P/E ratio, profitability, and debt levels. Determines if the stock is overvalued, fairly valued, or undervalued. Use this before making buy recommendations.",
			InputSchema: []byte(analyzeStockValuationSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			return d.Analyzer.AnalyzeValuation(ctx, ticker)
		},
	}
}

const calculatePortfolioMetricsSchema = `{
  "type": "object",
  "properties": {},
  "required": []
}`

func calculatePortfolioMetrics(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "calculate_portfolio_metrics",
			Description: "Calculates comprehensive portfolio metrics including diversification score (0-100), sector allocation, and concentration risks. Use this to understand portfolio health and balance.",
			InputSchema: []byte(calculatePortfolioMetricsSchema),
		},
		Fn: func(ctx context.Context, _ map[string]any) (any, error) {
			return d.Analyzer.Metrics(ctx)
		},
	}
}

const recommendActionSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    },
    "context": {
      "type": "object",
      "description": "Optional context from previous analysis or user query"
    }
  },
  "required": ["ticker"]
}`

func recommendAction(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "recommend_action",
			Description: "Generates a buy/sell/hold/pass recommendation for a stock based on comprehensive analysis of valuation, growth, risk, and portfolio context. Returns action, confidence level, and detailed reasoning. This is the primary tool for making investment recommendations.",
			InputSchema: []byte(recommendActionSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			return d.Analyzer.RecommendAction(ctx, ticker)
		},
	}
}
