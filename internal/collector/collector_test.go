package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"StockForecaster/internal/cache"
	"StockForecaster/internal/calendar"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	Fetcher
	bars   atomic.Int32
	quotes atomic.Int32
	err    error
}

func (c *countingFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	c.bars.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.Fetcher.FetchDailyBars(ctx, symbol, days)
}

func (c *countingFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	c.quotes.Add(1)
	return c.Fetcher.FetchQuote(ctx, symbol)
}

func simulated(t *testing.T, s model.Scenario) *SimulatedFetcher {
	t.Helper()
	f, err := NewSimulatedFetcher(s, DefaultVolatility, 42)
	require.NoError(t, err)
	f.End = calendar.MustParse("2024-06-28")
	return f
}

func TestSimulatedFetcher_Deterministic(t *testing.T) {
	ctx := context.Background()
	a, err := simulated(t, model.ScenarioVolatile).FetchDailyBars(ctx, "SIM", 120)
	require.NoError(t, err)
	b, err := simulated(t, model.ScenarioVolatile).FetchDailyBars(ctx, "SIM", 120)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "2024-06-28", a[len(a)-1].Date.String())
	require.NoError(t, forecast.ValidateBars(a, 120))
}

func TestSimulatedFetcher_ScenarioDirection(t *testing.T) {
	ctx := context.Background()
	bull, err := simulated(t, model.ScenarioBull).FetchDailyBars(ctx, "SIM", DefaultTimeframe)
	require.NoError(t, err)
	bear, err := simulated(t, model.ScenarioBear).FetchDailyBars(ctx, "SIM", DefaultTimeframe)
	require.NoError(t, err)

	assert.Greater(t, bull[len(bull)-1].Close, 1000.0)
	assert.Less(t, bear[len(bear)-1].Close, 1000.0)
	for _, b := range bull {
		assert.LessOrEqual(t, b.Low, b.Close)
		assert.GreaterOrEqual(t, b.High, b.Close)
		assert.GreaterOrEqual(t, b.Volume, int64(1_000_000))
		assert.Less(t, b.Volume, int64(2_000_000))
	}
}

func TestNewSimulatedFetcher_Validation(t *testing.T) {
	_, err := NewSimulatedFetcher("crash", 50, 1)
	assert.Error(t, err)
	_, err = NewSimulatedFetcher(model.ScenarioBull, 101, 1)
	assert.Error(t, err)
}

func TestCachedFetcher_ReusesResponses(t *testing.T) {
	ctx := context.Background()
	inner := &countingFetcher{Fetcher: simulated(t, model.ScenarioSideways)}
	clock := time.Date(2024, 6, 28, 12, 0, 0, 0, time.UTC)
	mem := cache.NewMemoryCache(cache.WithClock(func() time.Time { return clock }))
	f := NewCachedFetcher(inner, mem, 0)

	first, err := f.FetchDailyBars(ctx, "SIM", 30)
	require.NoError(t, err)
	second, err := f.FetchDailyBars(ctx, "SIM", 30)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.bars.Load())

	_, err = f.FetchDailyBars(ctx, "SIM", 31)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.bars.Load())

	clock = clock.Add(DefaultCacheTTL)
	_, err = f.FetchDailyBars(ctx, "SIM", 30)
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.bars.Load())

	_, err = f.FetchQuote(ctx, "SIM")
	require.NoError(t, err)
	_, err = f.FetchQuote(ctx, "SIM")
	require.NoError(t, err)
	assert.Equal(t, int32(1), inner.quotes.Load())
}

func TestCachedFetcher_DoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	inner := &countingFetcher{Fetcher: simulated(t, model.ScenarioBull), err: ErrUpstream}
	f := NewCachedFetcher(inner, cache.NewMemoryCache(), time.Minute)

	_, err := f.FetchDailyBars(ctx, "SIM", 10)
	assert.ErrorIs(t, err, ErrUpstream)
	_, err = f.FetchDailyBars(ctx, "SIM", 10)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, int32(2), inner.bars.Load())

	_, err = f.SearchSymbols(ctx, "x")
	assert.ErrorIs(t, err, ErrSearchUnsupported)
	_, err = f.FetchOverview(ctx, "SIM")
	assert.ErrorIs(t, err, ErrOverviewUnsupported)
}

func TestCachedFetcher_CachesOverview(t *testing.T) {
	var calls atomic.Int32
	av := newTestAlphaVantage(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"Symbol": "IBM", "Name": "IBM", "PERatio": "22.07"}`))
	})
	f := NewCachedFetcher(av, cache.NewMemoryCache(), time.Minute)

	for range 2 {
		o, err := f.FetchOverview(context.Background(), "IBM")
		require.NoError(t, err)
		assert.Equal(t, 22.07, o.PERatio)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollector_Collect(t *testing.T) {
	c := NewCollector(simulated(t, model.ScenarioBull))
	snap, err := c.Collect(context.Background(), " sim ", 260)
	require.NoError(t, err)
	assert.Equal(t, "SIM", snap.Symbol)
	assert.Len(t, snap.Bars, 260)
	assert.Equal(t, snap.Bars[259].Close, snap.Stats.LastClose)
	assert.NotZero(t, snap.Stats.MA50)
	assert.GreaterOrEqual(t, snap.Stats.High52w, snap.Stats.Low52w)
}

func TestCollector_FetchError(t *testing.T) {
	inner := &countingFetcher{Fetcher: simulated(t, model.ScenarioBull), err: errors.New("boom")}
	_, err := NewCollector(inner).Collect(context.Background(), "SIM", 10)
	assert.ErrorContains(t, err, "fetch daily bars")
}

func TestYahooFetcher_SkipsNullBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/%5EGSPC", r.URL.EscapedPath())
		w.Write([]byte(`{"chart": {"result": [{
			"timestamp": [1704724200, 1704810600, 1704897000],
			"indicators": {"quote": [{
				"open":   [4700.0, null, 4760.0],
				"high":   [4770.0, null, 4790.0],
				"low":    [4690.0, null, 4750.0],
				"close":  [4763.5, null, 4783.4],
				"volume": [3700000000, null, 3900000000]
			}]}}], "error": null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchDailyBars(context.Background(), "SPX", 10)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "2024-01-08", bars[0].Date.String())
	assert.Equal(t, "2024-01-10", bars[1].Date.String())
	assert.Equal(t, int64(3900000000), bars[1].Volume)

	q, err := f.FetchQuote(context.Background(), "SPX")
	require.NoError(t, err)
	assert.Equal(t, 4783.4, q.Price)
	assert.Equal(t, 4763.5, q.PreviousClose)
}

func TestYahooFetcher_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchDailyBars(context.Background(), "ZZZZ", 10)
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}
