// Package yahoo is a marketdata.Provider speaking Yahoo Finance's public
// HTTP endpoints directly: quoteSummary for quotes and fundamentals, chart
// for price history, and search for news.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/finsight/finsight/pkg/adapters/marketdata"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// Yahoo rejects requests without a browser-like user agent.
const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

type client struct {
	baseURL string
	http    *http.Client
}

func (c *client) Name() string { return "yahoo" }

func (c *client) Quote(ctx context.Context, ticker string) (*marketdata.Quote, error) {
	var resp quoteSummaryResponse
	q := url.Values{"modules": {"price"}}
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	price, err := resp.result(ticker)
	if err != nil {
		return nil, err
	}
	p := price.Price
	if p == nil || p.RegularMarketPrice.Raw == nil {
		return nil, fmt.Errorf("yahoo: no price data for %s", ticker)
	}
	out := &marketdata.Quote{
		Ticker:   ticker,
		Price:    *p.RegularMarketPrice.Raw,
		Currency: p.Currency,
	}
	if v := p.RegularMarketPreviousClose.Raw; v != nil {
		out.PreviousClose = *v
		if *v != 0 {
			out.ChangePercent = (out.Price - *v) / *v * 100
		}
	}
	if v := p.RegularMarketVolume.Raw; v != nil {
		out.Volume = int64(*v)
	}
	if v := p.MarketCap.Raw; v != nil {
		out.MarketCap = int64(*v)
	}
	return out, nil
}

func (c *client) Fundamentals(ctx context.Context, ticker string) (*marketdata.Fundamentals, error) {
	var resp quoteSummaryResponse
	q := url.Values{"modules": {"price,summaryDetail,defaultKeyStatistics,financialData,assetProfile"}}
	if err := c.getJSON(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	r, err := resp.result(ticker)
	if err != nil {
		return nil, err
	}

	out := &marketdata.Fundamentals{Ticker: ticker, CompanyName: ticker, Sector: "Unknown", Industry: "Unknown"}
	if p := r.Price; p != nil {
		if p.LongName != "" {
			out.CompanyName = p.LongName
		}
		if v := p.MarketCap.Raw; v != nil {
			out.MarketCap = int64(*v)
		}
	}
	if a := r.AssetProfile; a != nil {
		if a.Sector != "" {
			out.Sector = a.Sector
		}
		if a.Industry != "" {
			out.Industry = a.Industry
		}
		out.Description = a.LongBusinessSummary
	}
	if d := r.SummaryDetail; d != nil {
		out.PERatio = d.TrailingPE.Raw
		out.ForwardPE = d.ForwardPE.Raw
		out.DividendYield = pct(d.DividendYield.Raw)
		out.Beta = d.Beta.Raw
		out.High52Week = d.FiftyTwoWeekHigh.Raw
		out.Low52Week = d.FiftyTwoWeekLow.Raw
	}
	if k := r.DefaultKeyStatistics; k != nil {
		out.EPS = k.TrailingEps.Raw
	}
	if f := r.FinancialData; f != nil {
		out.RevenueGrowth = pct(f.RevenueGrowth.Raw)
		out.EarningsGrowth = pct(f.EarningsGrowth.Raw)
		out.ProfitMargin = pct(f.ProfitMargins.Raw)
		out.DebtToEquity = f.DebtToEquity.Raw
	}
	return out, nil
}

func (c *client) History(ctx context.Context, ticker, period string) (*marketdata.History, error) {
	if !marketdata.ValidPeriod(period) {
		return nil, fmt.Errorf("yahoo: invalid period %q", period)
	}
	var resp chartResponse
	q := url.Values{"range": {period}, "interval": {"1d"}}
	if err := c.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: chart error for %s: %s", ticker, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no historical data for %s", ticker)
	}
	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no quote series for %s", ticker)
	}
	closes := r.Indicators.Quote[0].Close
	volumes := r.Indicators.Quote[0].Volume

	out := &marketdata.History{Ticker: ticker, Period: period}
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		pt := marketdata.HistoryPoint{Date: time.Unix(ts, 0).UTC(), Close: *closes[i]}
		if i < len(volumes) && volumes[i] != nil {
			pt.Volume = *volumes[i]
		}
		out.Points = append(out.Points, pt)
	}
	if len(out.Points) == 0 {
		return nil, fmt.Errorf("yahoo: no historical data for %s", ticker)
	}
	return out, nil
}

func (c *client) News(ctx context.Context, ticker string, limit int) ([]marketdata.NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}
	var resp searchResponse
	q := url.Values{"q": {ticker}, "newsCount": {strconv.Itoa(limit)}, "quotesCount": {"0"}}
	if err := c.getJSON(ctx, "/v1/finance/search", q, &resp); err != nil {
		return nil, err
	}
	out := make([]marketdata.NewsItem, 0, len(resp.News))
	for _, n := range resp.News {
		if len(out) >= limit {
			break
		}
		out = append(out, marketdata.NewsItem{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
			Published: time.Unix(n.ProviderPublishTime, 0).UTC(),
		})
	}
	return out, nil
}

func (c *client) getJSON(ctx context.Context, p string, q url.Values, out any) error {
	u := c.baseURL + p
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("user-agent", userAgent)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("yahoo: symbol not found: GET %s => %s", p, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("yahoo: GET %s => %s", p, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// pct converts a fraction to a percentage, preserving nil.
func pct(v *float64) *float64 {
	if v == nil {
		return nil
	}
	p := *v * 100
	return &p
}

// Wire types. Yahoo wraps numbers as {"raw": n, "fmt": "n"}.

type yNumber struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []quoteSummaryResult `json:"result"`
		Error  *apiError            `json:"error"`
	} `json:"quoteSummary"`
}

func (r *quoteSummaryResponse) result(ticker string) (*quoteSummaryResult, error) {
	if r.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo: %s: %s", ticker, r.QuoteSummary.Error.Description)
	}
	if len(r.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no data for %s", ticker)
	}
	return &r.QuoteSummary.Result[0], nil
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteSummaryResult struct {
	Price *struct {
		LongName                   string  `json:"longName"`
		Currency                   string  `json:"currency"`
		RegularMarketPrice         yNumber `json:"regularMarketPrice"`
		RegularMarketPreviousClose yNumber `json:"regularMarketPreviousClose"`
		RegularMarketVolume        yNumber `json:"regularMarketVolume"`
		MarketCap                  yNumber `json:"marketCap"`
	} `json:"price"`
	SummaryDetail *struct {
		TrailingPE       yNumber `json:"trailingPE"`
		ForwardPE        yNumber `json:"forwardPE"`
		DividendYield    yNumber `json:"dividendYield"`
		Beta             yNumber `json:"beta"`
		FiftyTwoWeekHigh yNumber `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow  yNumber `json:"fiftyTwoWeekLow"`
	} `json:"summaryDetail"`
	DefaultKeyStatistics *struct {
		TrailingEps yNumber `json:"trailingEps"`
	} `json:"defaultKeyStatistics"`
	FinancialData *struct {
		RevenueGrowth  yNumber `json:"revenueGrowth"`
		EarningsGrowth yNumber `json:"earningsGrowth"`
		ProfitMargins  yNumber `json:"profitMargins"`
		DebtToEquity   yNumber `json:"debtToEquity"`
	} `json:"financialData"`
	AssetProfile *struct {
		Sector              string `json:"sector"`
		Industry            string `json:"industry"`
		LongBusinessSummary string `json:"longBusinessSummary"`
	} `json:"assetProfile"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// Factory constructs the Yahoo client. Config keys: base_url (also
// FINSIGHT_YAHOO_URL, for tests against a stub server).
func Factory(ctx context.Context, cfg map[string]any) (marketdata.Provider, error) { // nolint: revive
	_ = ctx
	base := os.Getenv("FINSIGHT_YAHOO_URL")
	if v, ok := cfg["base_url"].(string); ok && v != "" {
		base = v
	}
	if base == "" {
		base = defaultBaseURL
	}
	return &client{
		baseURL: base,
		http: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func init() {
	_ = marketdata.Register("yahoo", Factory)
}
