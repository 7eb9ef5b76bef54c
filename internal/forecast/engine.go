package forecast

import (
	"context"
	"fmt"

	"StockForecaster/internal/model"

	"golang.org/x/sync/errgroup"
)

// Minimum bar counts per model.
const (
	minTrendBars  = 2
	minForestBars = lagCloses + 1
)

// Engine runs the forecasting models with a fixed set of Options.
// It holds no state between calls and is safe for concurrent use.
type Engine struct {
	opts Options
}

// New validates opts and returns an Engine.
func New(opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Engine{opts: opts}, nil
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Run executes a single model.
func (e *Engine) Run(id ModelID, bars []model.Bar, horizon int) (Result, error) {
	switch id {
	case LinearRegression:
		return e.LinearTrend(bars, horizon)
	case MovingAverage:
		return e.SmoothedAverage(bars, horizon, e.opts.Window)
	case RandomForest:
		return e.EnsembleRegressor(bars, horizon)
	default:
		return Result{}, &InvalidParameterError{Name: "model", Value: id, Reason: "unknown model"}
	}
}

// Forecast runs every model concurrently over the same bars and horizon.
// Any model failure aborts the whole bundle. When several models fail, the
// error of the earliest one in Models order is returned.
func (e *Engine) Forecast(ctx context.Context, bars []model.Bar, horizon int) (Bundle, error) {
	if err := e.checkHorizon(horizon); err != nil {
		return nil, err
	}

	results := make([]Result, len(Models))
	errs := make([]error, len(Models))
	var g errgroup.Group
	for i, id := range Models {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = e.Run(id, bars, horizon)
			return nil
		})
	}
	g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("forecast: %w", err)
		}
	}

	bundle := make(Bundle, len(Models))
	for i, id := range Models {
		bundle[id] = results[i]
	}
	return bundle, nil
}
