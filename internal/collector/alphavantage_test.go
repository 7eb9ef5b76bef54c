package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const dailyFixture = `{
  "Meta Data": {"2. Symbol": "IBM", "3. Last Refreshed": "2024-01-10", "5. Time Zone": "US/Eastern"},
  "Time Series (Daily)": {
    "2024-01-10": {"1. open": "160.0", "2. high": "162.5", "3. low": "159.0", "4. close": "161.0", "5. volume": "4100000"},
    "2024-01-08": {"1. open": "157.0", "2. high": "159.5", "3. low": "156.0", "4. close": "159.0", "5. volume": "3900000"},
    "2024-01-09": {"1. open": "159.0", "2. high": "160.5", "3. low": "158.0", "4. close": "160.0", "5. volume": "4000000"},
    "2017-05-01": {"1. open": "100.0", "2. high": "101.0", "3. low": "99.0", "4. close": "100.5", "5. volume": "1000"}
  }
}`

func newTestAlphaVantage(t *testing.T, h http.HandlerFunc) *AlphaVantageFetcher {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	f := NewAlphaVantageFetcher("demo", 5)
	f.BaseURL = srv.URL
	f.limiter = rate.NewLimiter(rate.Inf, 1)
	f.now = func() time.Time { return time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC) }
	return f
}

func TestAlphaVantage_FetchDailyBars(t *testing.T) {
	var gotQuery atomic.Value
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query())
		w.Write([]byte(dailyFixture))
	})

	bars, err := f.FetchDailyBars(context.Background(), "IBM", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-09", bars[0].Date.String())
	assert.Equal(t, "2024-01-10", bars[1].Date.String())
	assert.Equal(t, 161.0, bars[1].Close)
	assert.Equal(t, int64(4100000), bars[1].Volume)

	q := gotQuery.Load().(url.Values)
	assert.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
	assert.Equal(t, "compact", q.Get("outputsize"))
	assert.Equal(t, "demo", q.Get("apikey"))
}

func TestAlphaVantage_DropsBarsOlderThanFiveYears(t *testing.T) {
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		w.Write([]byte(dailyFixture))
	})
	bars, err := f.FetchDailyBars(context.Background(), "IBM", 1000)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
}

func TestAlphaVantage_ErrorPayloads(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"error message", `{"Error Message": "Invalid API call."}`, ErrSymbolNotFound},
		{"rate note", `{"Note": "Thank you for using Alpha Vantage!"}`, ErrUpstream},
		{"information", `{"Information": "premium endpoint"}`, ErrUpstream},
		{"empty series", `{}`, ErrSymbolNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := f.FetchDailyBars(context.Background(), "XXXX", 10)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAlphaVantage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(dailyFixture))
	})
	bars, err := f.FetchDailyBars(context.Background(), "IBM", 10)
	require.NoError(t, err)
	assert.Len(t, bars, 3)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAlphaVantage_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	})
	_, err := f.FetchDailyBars(context.Background(), "IBM", 10)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAlphaVantage_FetchQuote(t *testing.T) {
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		w.Write([]byte(`{"Global Quote": {
			"01. symbol": "IBM", "02. open": "160.00", "03. high": "162.50", "04. low": "159.00",
			"05. price": "161.00", "06. volume": "4100000", "07. latest trading day": "2024-01-10",
			"08. previous close": "160.00", "09. change": "1.00", "10. change percent": "0.6250%"}}`))
	})
	q, err := f.FetchQuote(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, "IBM", q.Symbol)
	assert.Equal(t, 161.0, q.Price)
	assert.Equal(t, 0.625, q.ChangePercent)
	assert.Equal(t, int64(4100000), q.Volume)
	assert.Equal(t, "2024-01-10", q.LatestTradingDay.String())
}

func TestAlphaVantage_EmptyQuote(t *testing.T) {
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"Global Quote": {}}`))
	})
	_, err := f.FetchQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestAlphaVantage_SearchSymbols(t *testing.T) {
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tesco", r.URL.Query().Get("keywords"))
		w.Write([]byte(`{"bestMatches": [
			{"1. symbol": "TSCO.LON", "2. name": "Tesco PLC", "3. type": "Equity", "4. region": "United Kingdom", "8. currency": "GBX", "9. matchScore": "0.7273"},
			{"1. symbol": "TSCDF", "2. name": "Tesco plc", "3. type": "Equity", "4. region": "United States", "8. currency": "USD", "9. matchScore": "0.7143"}]}`))
	})
	matches, err := f.SearchSymbols(context.Background(), "tesco")
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "TSCO.LON", matches[0].Symbol)
	assert.Equal(t, "GBX", matches[0].Currency)
	assert.InDelta(t, 0.7273, matches[0].MatchScore, 1e-9)
}

func TestAlphaVantage_FetchOverview(t *testing.T) {
	f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OVERVIEW", r.URL.Query().Get("function"))
		assert.Equal(t, "IBM", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"Symbol": "IBM", "Name": "International Business Machines", "Exchange": "NYSE",
			"Currency": "USD", "Country": "USA", "Sector": "TECHNOLOGY", "Industry": "COMPUTER & OFFICE EQUIPMENT",
			"MarketCapitalization": "146718409000", "PERatio": "22.07", "EPS": "7.28", "DividendYield": "None",
			"Beta": "0.721", "52WeekHigh": "162.76", "52WeekLow": "120.55",
			"50DayMovingAverage": "154.05", "200DayMovingAverage": "-"}`))
	})
	o, err := f.FetchOverview(context.Background(), "IBM")
	require.NoError(t, err)
	assert.Equal(t, "International Business Machines", o.Name)
	assert.Equal(t, "TECHNOLOGY", o.Sector)
	assert.Equal(t, int64(146718409000), o.MarketCap)
	assert.Equal(t, 22.07, o.PERatio)
	assert.Equal(t, 162.76, o.Week52High)
	assert.Zero(t, o.DividendYield)
	assert.Zero(t, o.MA200)
}

func TestAlphaVantage_OverviewErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown symbol", `{}`, ErrSymbolNotFound},
		{"error message", `{"Error Message": "Invalid API call."}`, ErrSymbolNotFound},
		{"bad number", `{"Symbol": "IBM", "PERatio": "abc"}`, ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			_, err := f.FetchOverview(context.Background(), "IBM")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
