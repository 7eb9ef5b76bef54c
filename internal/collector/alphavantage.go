package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/model"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	alphaVantageBaseURL = "https://www.alphavantage.co/query"
	// compact returns the latest 100 data points, full returns 20+ years
	outputSizeCompact      = "compact"
	outputSizeFull         = "full"
	compactOutputSizeLimit = 100
	// bars older than this are dropped
	historyYears = 5

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

// AlphaVantageFetcher implements Fetcher and Searcher on the Alpha Vantage REST API.
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client

	limiter *rate.Limiter
	now     func() time.Time
}

// NewAlphaVantageFetcher creates a fetcher limited to requestsPerMinute calls.
func NewAlphaVantageFetcher(apiKey string, requestsPerMinute int) *AlphaVantageFetcher {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 5
	}
	return &AlphaVantageFetcher{
		BaseURL: alphaVantageBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60), 1),
		now:     time.Now,
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

// avStatus captures the informational payloads Alpha Vantage returns with HTTP 200.
type avStatus struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (s avStatus) err() error {
	switch {
	case s.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrSymbolNotFound, s.ErrorMessage)
	case s.Note != "":
		return fmt.Errorf("%w: %s", ErrUpstream, s.Note)
	case s.Information != "":
		return fmt.Errorf("%w: %s", ErrUpstream, s.Information)
	}
	return nil
}

type avDailyResponse struct {
	avStatus
	MetaData struct {
		Symbol        string `json:"2. Symbol"`
		LastRefreshed string `json:"3. Last Refreshed"`
		TimeZone      string `json:"5. Time Zone"`
	} `json:"Meta Data"`
	TimeSeries map[string]avDailyPrice `json:"Time Series (Daily)"`
}

type avDailyPrice struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type avQuoteResponse struct {
	avStatus
	Quote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

type avSearchResponse struct {
	avStatus
	BestMatches []struct {
		Symbol     string `json:"1. symbol"`
		Name       string `json:"2. name"`
		Type       string `json:"3. type"`
		Region     string `json:"4. region"`
		Currency   string `json:"8. currency"`
		MatchScore string `json:"9. matchScore"`
	} `json:"bestMatches"`
}

type avOverviewResponse struct {
	avStatus
	Symbol        string `json:"Symbol"`
	Name          string `json:"Name"`
	Description   string `json:"Description"`
	Exchange      string `json:"Exchange"`
	Currency      string `json:"Currency"`
	Country       string `json:"Country"`
	Sector        string `json:"Sector"`
	Industry      string `json:"Industry"`
	MarketCap     string `json:"MarketCapitalization"`
	PERatio       string `json:"PERatio"`
	EPS           string `json:"EPS"`
	DividendYield string `json:"DividendYield"`
	Beta          string `json:"Beta"`
	Week52High    string `json:"52WeekHigh"`
	Week52Low     string `json:"52WeekLow"`
	MA50          string `json:"50DayMovingAverage"`
	MA200         string `json:"200DayMovingAverage"`
}

// FetchDailyBars retrieves TIME_SERIES_DAILY, keeps the last five years and
// trims to the most recent days bars.
func (f *AlphaVantageFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	outputSize := outputSizeCompact
	if days > compactOutputSizeLimit {
		outputSize = outputSizeFull
	}
	var resp avDailyResponse
	if err := f.query(ctx, url.Values{
		"function":   {"TIME_SERIES_DAILY"},
		"symbol":     {symbol},
		"outputsize": {outputSize},
	}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if len(resp.TimeSeries) == 0 {
		return nil, fmt.Errorf("%w: no daily data for %s", ErrSymbolNotFound, symbol)
	}

	cutoff := calendar.FromTime(f.now().AddDate(-historyYears, 0, 0))
	bars := make([]model.Bar, 0, len(resp.TimeSeries))
	for day, p := range resp.TimeSeries {
		d, err := calendar.Parse(day)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if d.Before(cutoff) {
			continue
		}
		bar, err := p.toBar(d)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %s: %v", ErrUpstream, symbol, day, err)
		}
		bars = append(bars, bar)
	}
	return trimTail(forecast.NormalizeBars(bars), days), nil
}

func (p avDailyPrice) toBar(d calendar.Date) (model.Bar, error) {
	var (
		bar = model.Bar{Date: d}
		err error
	)
	if bar.Open, err = parseFloat(p.Open); err != nil {
		return bar, err
	}
	if bar.High, err = parseFloat(p.High); err != nil {
		return bar, err
	}
	if bar.Low, err = parseFloat(p.Low); err != nil {
		return bar, err
	}
	if bar.Close, err = parseFloat(p.Close); err != nil {
		return bar, err
	}
	if bar.Volume, err = parseVolume(p.Volume); err != nil {
		return bar, err
	}
	return bar, nil
}

// FetchQuote retrieves GLOBAL_QUOTE and maps the numbered fields onto model.Quote.
func (f *AlphaVantageFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	var resp avQuoteResponse
	if err := f.query(ctx, url.Values{
		"function": {"GLOBAL_QUOTE"},
		"symbol":   {symbol},
	}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	q := resp.Quote
	if q.Symbol == "" {
		return nil, fmt.Errorf("%w: no quote for %s", ErrSymbolNotFound, symbol)
	}

	out := &model.Quote{Symbol: q.Symbol}
	var err error
	fields := []struct {
		dst *float64
		src string
	}{
		{&out.Open, q.Open},
		{&out.High, q.High},
		{&out.Low, q.Low},
		{&out.Price, q.Price},
		{&out.PreviousClose, q.PreviousClose},
		{&out.Change, q.Change},
		{&out.ChangePercent, strings.TrimSuffix(q.ChangePercent, "%")},
	}
	for _, fld := range fields {
		if *fld.dst, err = parseFloat(fld.src); err != nil {
			return nil, fmt.Errorf("%w: quote %s: %v", ErrUpstream, symbol, err)
		}
	}
	if out.Volume, err = parseVolume(q.Volume); err != nil {
		return nil, fmt.Errorf("%w: quote %s: %v", ErrUpstream, symbol, err)
	}
	if q.LatestTradingDay != "" {
		if out.LatestTradingDay, err = calendar.Parse(q.LatestTradingDay); err != nil {
			return nil, fmt.Errorf("%w: quote %s: %v", ErrUpstream, symbol, err)
		}
	}
	return out, nil
}

// FetchOverview calls OVERVIEW. Alpha Vantage answers unknown symbols with an
// empty object, which maps to ErrSymbolNotFound.
func (f *AlphaVantageFetcher) FetchOverview(ctx context.Context, symbol string) (*model.CompanyOverview, error) {
	var resp avOverviewResponse
	if err := f.query(ctx, url.Values{
		"function": {"OVERVIEW"},
		"symbol":   {symbol},
	}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	if resp.Symbol == "" {
		return nil, fmt.Errorf("%w: no overview for %s", ErrSymbolNotFound, symbol)
	}

	out := &model.CompanyOverview{
		Symbol:      resp.Symbol,
		Name:        resp.Name,
		Description: resp.Description,
		Exchange:    resp.Exchange,
		Currency:    resp.Currency,
		Country:     resp.Country,
		Sector:      resp.Sector,
		Industry:    resp.Industry,
	}
	var err error
	fields := []struct {
		name string
		dst  *float64
		src  string
	}{
		{"PERatio", &out.PERatio, resp.PERatio},
		{"EPS", &out.EPS, resp.EPS},
		{"DividendYield", &out.DividendYield, resp.DividendYield},
		{"Beta", &out.Beta, resp.Beta},
		{"52WeekHigh", &out.Week52High, resp.Week52High},
		{"52WeekLow", &out.Week52Low, resp.Week52Low},
		{"50DayMovingAverage", &out.MA50, resp.MA50},
		{"200DayMovingAverage", &out.MA200, resp.MA200},
	}
	for _, fld := range fields {
		if *fld.dst, err = parseOptionalFloat(fld.src); err != nil {
			return nil, fmt.Errorf("%w: overview %s %s: %v", ErrUpstream, symbol, fld.name, err)
		}
	}
	if !unavailable(resp.MarketCap) {
		if out.MarketCap, err = parseVolume(resp.MarketCap); err != nil {
			return nil, fmt.Errorf("%w: overview %s MarketCapitalization: %v", ErrUpstream, symbol, err)
		}
	}
	return out, nil
}

// SearchSymbols calls SYMBOL_SEARCH.
func (f *AlphaVantageFetcher) SearchSymbols(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	var resp avSearchResponse
	if err := f.query(ctx, url.Values{
		"function": {"SYMBOL_SEARCH"},
		"keywords": {keywords},
	}, &resp); err != nil {
		return nil, err
	}
	if err := resp.err(); err != nil {
		return nil, err
	}
	matches := make([]model.SymbolMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		score, _ := strconv.ParseFloat(m.MatchScore, 64)
		matches = append(matches, model.SymbolMatch{
			Symbol:     m.Symbol,
			Name:       m.Name,
			Type:       m.Type,
			Region:     m.Region,
			Currency:   m.Currency,
			MatchScore: score,
		})
	}
	return matches, nil
}

func (f *AlphaVantageFetcher) query(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", f.APIKey)
	reqURL := fmt.Sprintf("%s?%s", f.BaseURL, params.Encode())
	return f.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return f.Client.Do(req)
	}, out)
}

// doWithRetry runs fn under the rate limiter, retrying transport errors,
// 429 and 5xx with exponential backoff.
func (f *AlphaVantageFetcher) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("%w: request failed after %d retries: %v", ErrUpstream, maxRetries, err)
			}
			sleepBackoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			log.Warn().Str("source", f.Name()).Int("status", resp.StatusCode).Int("attempt", attempt+1).Msg("retrying market data request")
			if attempt == maxRetries {
				return fmt.Errorf("%w: status %d after %d retries", ErrUpstream, resp.StatusCode, maxRetries)
			}
			sleepBackoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
		}
		return nil
	}
	return fmt.Errorf("%w: exhausted %d retries", ErrUpstream, maxRetries)
}

// sleepBackoff waits 2^attempt * baseRetryWait or until ctx is done.
func sleepBackoff(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * baseRetryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// unavailable reports the placeholders Alpha Vantage uses for missing figures.
func unavailable(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "None", "-":
		return true
	}
	return false
}

func parseOptionalFloat(s string) (float64, error) {
	if unavailable(s) {
		return 0, nil
	}
	return parseFloat(s)
}

func parseVolume(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}
