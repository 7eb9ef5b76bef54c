package collector

import (
	"context"
	"errors"
	"time"

	"StockForecaster/internal/cache"
	"StockForecaster/internal/model"

	"github.com/rs/zerolog/log"
)

// DefaultCacheTTL is how long fetched market data is reused.
const DefaultCacheTTL = time.Hour

// CachedFetcher decorates a Fetcher with a response cache. Cache failures are
// logged and fall through to the wrapped fetcher.
type CachedFetcher struct {
	inner Fetcher
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedFetcher wraps inner. A non-positive ttl uses DefaultCacheTTL.
func NewCachedFetcher(inner Fetcher, c cache.Cache, ttl time.Duration) *CachedFetcher {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedFetcher{inner: inner, cache: c, ttl: ttl}
}

func (f *CachedFetcher) Name() string { return f.inner.Name() }

func (f *CachedFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	return cached(ctx, f, cache.Key("bars", f.inner.Name(), symbol, days), func() ([]model.Bar, error) {
		return f.inner.FetchDailyBars(ctx, symbol, days)
	})
}

func (f *CachedFetcher) FetchQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	return cached(ctx, f, cache.Key("quote", f.inner.Name(), symbol), func() (*model.Quote, error) {
		return f.inner.FetchQuote(ctx, symbol)
	})
}

// SearchSymbols delegates to the wrapped fetcher when it can search.
func (f *CachedFetcher) SearchSymbols(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	s, ok := f.inner.(Searcher)
	if !ok {
		return nil, ErrSearchUnsupported
	}
	return cached(ctx, f, cache.Key("search", f.inner.Name(), keywords), func() ([]model.SymbolMatch, error) {
		return s.SearchSymbols(ctx, keywords)
	})
}

// FetchOverview delegates to the wrapped fetcher when it has fundamentals.
func (f *CachedFetcher) FetchOverview(ctx context.Context, symbol string) (*model.CompanyOverview, error) {
	o, ok := f.inner.(OverviewFetcher)
	if !ok {
		return nil, ErrOverviewUnsupported
	}
	return cached(ctx, f, cache.Key("overview", f.inner.Name(), symbol), func() (*model.CompanyOverview, error) {
		return o.FetchOverview(ctx, symbol)
	})
}

func cached[T any](ctx context.Context, f *CachedFetcher, key string, load func() (T, error)) (T, error) {
	v, err := cache.GetJSON[T](ctx, f.cache, key)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := cache.SetJSON(ctx, f.cache, key, v, f.ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return v, nil
}
