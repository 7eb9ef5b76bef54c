package collector

import (
	"context"
	"errors"

	"StockForecaster/internal/model"
)

var (
	// ErrUpstream marks failures of the remote market-data provider.
	ErrUpstream = errors.New("market data provider error")
	// ErrSymbolNotFound is returned when the provider does not know the symbol.
	ErrSymbolNotFound = errors.New("symbol not found")
	// ErrSearchUnsupported is returned by sources that cannot search symbols.
	ErrSearchUnsupported = errors.New("symbol search not supported")
	// ErrOverviewUnsupported is returned by sources without company fundamentals.
	ErrOverviewUnsupported = errors.New("company overview not supported")
)

// Fetcher defines the interface for fetching market data.
// Bars come back ascending by date with no duplicates.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error)
	FetchQuote(ctx context.Context, symbol string) (*model.Quote, error)
	Name() string
}

// Searcher looks up ticker symbols by keyword.
type Searcher interface {
	SearchSymbols(ctx context.Context, keywords string) ([]model.SymbolMatch, error)
}

// OverviewFetcher returns company fundamentals.
type OverviewFetcher interface {
	FetchOverview(ctx context.Context, symbol string) (*model.CompanyOverview, error)
}

// trimTail keeps the last n bars.
func trimTail(bars []model.Bar, n int) []model.Bar {
	if n > 0 && len(bars) > n {
		return bars[len(bars)-n:]
	}
	return bars
}
