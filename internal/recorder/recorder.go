package recorder

import (
	"context"
	"time"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/forecast"
)

// Run is one completed forecast as written to the history log.
type Run struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Source    string          `json:"source"`
	Horizon   int             `json:"horizon"`
	Window    int             `json:"window"`
	BarCount  int             `json:"bar_count"`
	LastDate  calendar.Date   `json:"last_date"`
	LastClose float64         `json:"last_close"`
	CreatedAt time.Time       `json:"created_at"`
	Results   forecast.Bundle `json:"results"`
}

// Recorder persists forecast history for later comparison against realized prices.
type Recorder interface {
	RecordForecast(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, symbol string, limit int) ([]Run, error)
	Close() error
}
