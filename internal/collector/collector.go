package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StockForecaster/internal/calculator"
	"StockForecaster/internal/model"

	"github.com/rs/zerolog/log"
)

// Snapshot is the data gathered for one symbol before forecasting.
type Snapshot struct {
	Symbol    string      `json:"symbol"`
	Bars      []model.Bar `json:"bars"`
	Stats     model.Stats `json:"stats"`
	FetchedAt time.Time   `json:"fetched_at"`
}

// Collector orchestrates data fetching and indicator computation.
type Collector struct {
	Fetcher Fetcher
	now     func() time.Time
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher, now: time.Now}
}

// Collect fetches daily bars and computes the summary statistics.
// Statistics that cannot be computed are logged and left zero.
func (c *Collector) Collect(ctx context.Context, symbol string, days int) (*Snapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, days)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch daily bars: %w: %s", ErrSymbolNotFound, symbol)
	}

	snap := &Snapshot{Symbol: symbol, Bars: bars, FetchedAt: c.now()}
	stats, err := calculator.ComputeStats(bars)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("stats calculation incomplete")
	}
	snap.Stats = stats
	return snap, nil
}

// Quotes fetches quotes for every symbol, skipping the ones that fail.
func (c *Collector) Quotes(ctx context.Context, symbols []string) []model.Quote {
	quotes := make([]model.Quote, 0, len(symbols))
	for _, sym := range symbols {
		q, err := c.Fetcher.FetchQuote(ctx, sym)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("quote fetch failed")
			continue
		}
		quotes = append(quotes, *q)
	}
	return quotes
}
