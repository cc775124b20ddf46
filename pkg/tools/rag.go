package tools

import (
	"context"
	"fmt"

	"github.com/finsight/finsight/pkg/agent"
)

const searchPortfolioContextSchema = `{
  "type": "object",
  "properties": {
    "query": {
      "type": "string",
      "description": "Natural language search query"
    },
    "n_results": {
      "type": "integer",
      "description": "Maximum number of results to return (default 5)"
    }
  },
  "required": ["query"]
}`

const defaultSearchResults = 5

func searchPortfolioContext(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "search_portfolio_context",
			Description: "Performs semantic search over the portfolio using natural language queries. Use this to find relevant positions (e.g., 'tech stocks', 'high growth companies', 'dividend stocks'). Returns relevant positions with summaries.",
			InputSchema: []byte(searchPortfolioContextSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ix, err := d.index()
			if err != nil {
				return nil, err
			}
			query := stringArg(args, "query")
			if query == "" {
				return nil, fmt.Errorf("empty search query")
			}
			return ix.Search(ctx, query, intArg(args, "n_results", defaultSearchResults))
		},
	}
}

const sectorExposureSchema = `{
  "type": "object",
  "properties": {
    "sector": {
      "type": "string",
      "description": "Sector name (e.g., Technology, Healthcare, Financials, Energy, Consumer Cyclical)"
    }
  },
  "required": ["sector"]
}`

func sectorExposure(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_sector_exposure",
			Description: "Gets all positions in a specific sector and calculates the portfolio's exposure to that sector as a percentage of total value. Useful for analyzing sector concentration.",
			InputSchema: []byte(sectorExposureSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			sector := stringArg(args, "sector")
			if sector == "" {
				return nil, fmt.Errorf("empty sector name")
			}
			return d.Analyzer.SectorExposure(ctx, sector)
		},
	}
}

const findSimilarHoldingsSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol to find similar holdings for"
    },
    "n_results": {
      "type": "integer",
      "description": "Number of similar positions to return (default 3)"
    }
  },
  "required": ["ticker"]
}`

const defaultSimilarResults = 3

func findSimilarHoldings(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "find_similar_holdings",
			Description: "Finds portfolio positions that are similar to a given ticker based on sector, industry, and company characteristics. Useful for identifying potential overlap or correlation.",
			InputSchema: []byte(findSimilarHoldingsSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ix, err := d.index()
			if err != nil {
				return nil, err
			}
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			return ix.SimilarTo(ctx, ticker, intArg(args, "n_results", defaultSimilarResults))
		},
	}
}
