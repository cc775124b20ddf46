package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/finsight/finsight/pkg/agent"
)

const currentStockPriceSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol (e.g., AAPL, MSFT, GOOGL)"
    }
  },
  "required": ["ticker"]
}`

func currentStockPrice(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_current_stock_price",
			Description: "Fetches the current stock price, volume, market cap, and daily change percentage for a given ticker symbol. Use this to get real-time stock data.",
			InputSchema: []byte(currentStockPriceSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			quote, err := d.Market.Quote(ctx, ticker)
			if err != nil {
				return nil, fmt.Errorf("could not fetch price data for %s: %w", ticker, err)
			}
			d.Log.Info("fetched price", "ticker", ticker, "price", quote.Price)
			return map[string]any{
				"ticker":         ticker,
				"price":          round2(quote.Price),
				"volume":         quote.Volume,
				"market_cap":     quote.MarketCap,
				"change_percent": round2(quote.ChangePercent),
				"previous_close": round2(quote.PreviousClose),
				"currency":       quote.Currency,
			}, nil
		},
	}
}

const stockFundamentalsSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    }
  },
  "required": ["ticker"]
}`

func stockFundamentals(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_stock_fundamentals",
			Description: "Fetches fundamental data for a stock including P/E ratio, EPS, dividend yield, sector, industry, market cap, and growth metrics. Essential for valuation analysis.",
			InputSchema: []byte(stockFundamentalsSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			f, err := d.Market.Fundamentals(ctx, ticker)
			if err != nil {
				return nil, fmt.Errorf("could not fetch fundamentals for %s: %w", ticker, err)
			}
			d.Log.Info("fetched fundamentals", "ticker", ticker)
			return map[string]any{
				"ticker":          ticker,
				"company_name":    f.CompanyName,
				"sector":          f.Sector,
				"industry":        f.Industry,
				"pe_ratio":        na(f.PERatio),
				"forward_pe":      na(f.ForwardPE),
				"eps":             na(f.EPS),
				"dividend_yield":  na(f.DividendYield),
				"market_cap":      f.MarketCap,
				"beta":            na(f.Beta),
				"52_week_high":    na(f.High52Week),
				"52_week_low":     na(f.Low52Week),
				"revenue_growth":  na(f.RevenueGrowth),
				"earnings_growth": na(f.EarningsGrowth),
				"profit_margin":   na(f.ProfitMargin),
				"debt_to_equity":  na(f.DebtToEquity),
			}, nil
		},
	}
}

const historicalDataSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    },
    "period": {
      "type": "string",
      "description": "Time period (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max)",
      "enum": ["1d", "5d", "1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"]
    }
  },
  "required": ["ticker"]
}`

// defaultHistoricalPeriod is used when the model omits the period argument.
const defaultHistoricalPeriod = "1y"

// historyTail caps how many recent points are echoed back to the model.
const historyTail = 30

func historicalData(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_historical_data",
			Description: "Fetches historical price data for a stock over a specified period. Returns dates, prices, returns, and summary statistics. Useful for analyzing trends and momentum.",
			InputSchema: []byte(historicalDataSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			period := stringArg(args, "period")
			if period == "" {
				period = defaultHistoricalPeriod
			}
			hist, err := d.Market.History(ctx, ticker, period)
			if err != nil {
				return nil, fmt.Errorf("could not fetch historical data for %s: %w", ticker, err)
			}
			if len(hist.Points) == 0 {
				return nil, fmt.Errorf("no historical data available for %s", ticker)
			}

			var volumeSum int64
			dates := make([]string, len(hist.Points))
			prices := make([]float64, len(hist.Points))
			for i, p := range hist.Points {
				dates[i] = p.Date.Format(time.DateOnly)
				prices[i] = round2(p.Close)
				volumeSum += p.Volume
			}
			returns := make([]float64, 0, len(prices))
			for i := 1; i < len(hist.Points); i++ {
				prev := hist.Points[i-1].Close
				if prev != 0 {
					returns = append(returns, round2((hist.Points[i].Close-prev)/prev*100))
				}
			}

			tail := func(n int) int {
				if n > historyTail {
					return n - historyTail
				}
				return 0
			}
			d.Log.Info("fetched historical data", "ticker", ticker, "period", period, "points", len(dates))
			return map[string]any{
				"ticker":           ticker,
				"period":           period,
				"start_date":       dates[0],
				"end_date":         dates[len(dates)-1],
				"start_price":      prices[0],
				"end_price":        prices[len(prices)-1],
				"total_return_pct": round2(hist.TotalReturnPct()),
				"avg_daily_volume": volumeSum / int64(len(hist.Points)),
				"data_points":      len(dates),
				"dates":            dates[tail(len(dates)):],
				"prices":           prices[tail(len(prices)):],
				"returns_pct":      returns[tail(len(returns)):],
			}, nil
		},
	}
}

const stockNewsSchema = `{
  "type": "object",
  "properties": {
    "ticker": {
      "type": "string",
      "description": "Stock ticker symbol"
    }
  },
  "required": ["ticker"]
}`

const defaultNewsLimit = 5

func stockNews(d Deps) agent.Tool {
	return agent.Func{
		Desc: agent.Descriptor{
			Name:        "get_stock_news",
			Description: "Fetches recent news articles about a stock. Provides news titles, publishers, and links.",
			InputSchema: []byte(stockNewsSchema),
		},
		Fn: func(ctx context.Context, args map[string]any) (any, error) {
			ticker, err := tickerArg(args)
			if err != nil {
				return nil, err
			}
			items, err := d.Market.News(ctx, ticker, defaultNewsLimit)
			if err != nil {
				return nil, fmt.Errorf("could not fetch news for %s: %w", ticker, err)
			}
			if len(items) == 0 {
				return map[string]any{
					"ticker":     ticker,
					"news_items": []any{},
					"message":    "No recent news available",
				}, nil
			}
			news := make([]map[string]any, len(items))
			for i, it := range items {
				published := "Unknown"
				if !it.Published.IsZero() {
					published = it.Published.Format("2006-01-02 15:04")
				}
				news[i] = map[string]any{
					"title":     it.Title,
					"publisher": it.Publisher,
					"link":      it.Link,
					"published": published,
				}
			}
			d.Log.Info("fetched news", "ticker", ticker, "items", len(news))
			return map[string]any{
				"ticker":     ticker,
				"news_count": len(news),
				"news_items": news,
			}, nil
		},
	}
}
