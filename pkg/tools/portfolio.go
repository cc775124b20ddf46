package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight/finsight/pkg/agent"
)

const portfolioSummarySchema = `{
  "type": "object",
  "properties": {},
  "required": []
}`

func portfolioSummary(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_portfolio_summary",
			Description: "Gets a complete summary of the user's portfolio including total value, total gain/loss, and details for each position (shares, current value, gain/loss %). Use this to understand the full portfolio state.",
			InputSchema: []byte(portfolioSummarySchema),
		},
		Fn: func(ctx context.Context, _ map[string]any) (any, error) {
			return d.Analyzer.Summary(ctx)
		},
	}
}

const positionDetailsSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    }
  },
  "required": ["ticker"]
}`

func positionDetails(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_position_details",
			Description: "Gets detailed information about a specific position in the portfolio including shares owned, purchase price, current value, and gain/loss.",
			InputSchema: []byte(positionDetailsSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			book, err := d.Store.Load()
			if err != nil {
				return nil, err
			}
			pos := book.Get(ticker)
			if pos == nil {
				return map[string]any{
					"ticker":  ticker,
					"exists":  false,
					"message": fmt.Sprintf("No position found for %s", ticker),
				}, nil
			}
			quote, err := d.Market.Quote(ctx, ticker)
			if err != nil {
				return nil, fmt.Errorf("could not fetch price data for %s: %w", ticker, err)
			}
			d.Log.Info("retrieved position details", "ticker", ticker)
			return map[string]any{
				"ticker":              ticker,
				"exists":              true,
				"shares":              pos.Shares,
				"purchase_price":      pos.PurchasePrice,
				"purchase_date":       pos.PurchaseDate,
				"current_price":       round2(quote.Price),
				"current_value":       round2(pos.CurrentValue(quote.Price)),
				"cost_basis":          round2(pos.Shares * pos.PurchasePrice),
				"gain_loss":           round2(pos.GainLoss(quote.Price)),
				"gain_loss_pct":       round2(pos.GainLossPct(quote.Price)),
				"holding_period_days": pos.HoldingDays(time.Now()),
			}, nil
		},
	}
}

const addPositionSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    },
    "shares": {
      "type": "number",
      "description": "Number of shares to add (must be positive)"
    },
    "price": {
      "type": "number",
      "description": "Purchase price per share"
    },
    "date": {
      "type": "string",
      "description": "Purchase date in YYYY-MM-DD format (optional, defaults to today)"
    }
  },
  "required": ["ticker", "shares", "price"]
}`

func addPosition(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "add_position",
			Description: "Adds a new position to the portfolio or updates an existing one. If the position already exists, this will average the cost basis. Automatically updates embeddings.",
			InputSchema: []byte(addPositionSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			shares, ok := numberArg(args, "shares")
			if !ok || shares <= 0 {
				return nil, fmt.Errorf("invalid shares quantity: %v", args["shares"])
			}
			price, ok := numberArg(args, "price")
			if !ok || price <= 0 {
				return nil, fmt.Errorf("invalid price: %v", args["price"])
			}

			book, err := d.Store.Load()
			if err != nil {
				return nil, err
			}
			action := "added"
			if book.Has(ticker) {
				action = "updated"
			}

			pos, err := d.Store.Add(ticker, shares, price, stringArg(args, "date"))
			if err != nil {
				return nil, err
			}

			if ix, err := d.index(); err == nil {
				if err := ix.UpsertPosition(ctx, *pos); err != nil {
					d.Log.Warn("embedding refresh failed after add", "ticker", ticker, "error", err)
				}
			}

			d.Log.Info("position added", "ticker", ticker, "shares", shares, "price", price)
			return map[string]any{
				"success":      true,
				"action":       action,
				"ticker":       ticker,
				"total_shares": pos.Shares,
				"avg_price":    round2(pos.PurchasePrice),
				"message":      fmt.Sprintf("Successfully added %g shares of %s @ $%g", shares, ticker, price),
			}, nil
		},
	}
}

const removePositionSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    },
    "shares": {
      "type": "number",
      "description": "Number of shares to remove (optional, omit to remove entire position)"
    }
  },
  "required": ["ticker"]
}`

func removePosition(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "remove_position",
			Description: "Removes shares from a position or the entire position from the portfolio. If shares parameter is omitted or equals/exceeds total shares, removes the entire position. Automatically updates embeddings.",
			InputSchema: []byte(removePositionSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			shares, sharesGiven := numberArg(args, "shares")
			if sharesGiven && shares <= 0 {
				return nil, fmt.Errorf("invalid shares quantity: %v", args["shares"])
			}

			book, err := d.Store.Load()
			if err != nil {
				return nil, err
			}
			pos := book.Get(ticker)
			if pos == nil {
				return nil, fmt.Errorf("no position found for %s", ticker)
			}
			originalShares := pos.Shares

			remaining, err := d.Store.Remove(ticker, shares)
			if err != nil {
				return nil, err
			}

			if ix, ierr := d.index(); ierr == nil {
				if remaining == nil {
					err = ix.DeletePosition(ctx, ticker)
				} else {
					err = ix.UpsertPosition(ctx, *remaining)
				}
				if err != nil {
					d.Log.Warn("embedding refresh failed after remove", "ticker", ticker, "error", err)
				}
			}

			removed := originalShares
			described := "all"
			if sharesGiven {
				removed = shares
				described = fmt.Sprintf("%g", shares)
			}
			remainingShares := 0.0
			if remaining != nil {
				remainingShares = remaining.Shares
			}
			d.Log.Info("position removed", "ticker", ticker, "removed", removed, "remaining", remainingShares)
			return map[string]any{
				"success":          true,
				"ticker":           ticker,
				"shares_removed":   removed,
				"remaining_shares": remainingShares,
				"fully_removed":    remaining == nil,
				"message":          fmt.Sprintf("Successfully removed %s shares of %s", described, ticker),
			}, nil
		},
	}
}
