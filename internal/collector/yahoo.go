package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		BaseURL: yahooBaseURL,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return 0
	}
	return *vs[i]
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, rng string) ([]model.Bar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), rng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo status %d, body: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrUpstream, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo: %s", ErrSymbolNotFound, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: yahoo returned no data for %s", ErrSymbolNotFound, symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.Bar{
			Date:   calendar.FromTime(time.Unix(ts, 0).UTC()),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: int64(at(quote.Volume, i)),
		})
	}
	return forecast.NormalizeBars(bars), nil
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	rng := "5y"
	switch {
	case days <= 20:
		rng = "1mo"
	case days <= 60:
		rng = "3mo"
	case days <= 120:
		rng = "6mo"
	case days <= 250:
		rng = "1y"
	case days <= 500:
		rng = "2y"
	}
	bars, err := f.fetchChart(ctx, symbol, rng)
	if err != nil {
		return nil, err
	}
	return trimTail(bars, days), nil
}

// FetchQuote derives a quote from the two most recent daily bars.
func (f *YahooFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	bars, err := f.fetchChart(ctx, symbol, "5d")
	if err != nil {
		return nil, err
	}
	return quoteFromBars(symbol, bars)
}

func quoteFromBars(symbol string, bars []model.Bar) (*model.Quote, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no price data for %s", ErrSymbolNotFound, symbol)
	}
	last := bars[len(bars)-1]
	q := &model.Quote{
		Symbol:           symbol,
		Open:             last.Open,
		High:             last.High,
		Low:              last.Low,
		Price:            last.Close,
		Volume:           last.Volume,
		LatestTradingDay: last.Date,
		PreviousClose:    last.Open,
	}
	if len(bars) > 1 {
		q.PreviousClose = bars[len(bars)-2].Close
	}
	q.Change = q.Price - q.PreviousClose
	if q.PreviousClose != 0 {
		q.ChangePercent = q.Change / q.PreviousClose * 100
	}
	return q, nil
}
