package forecast

import (
	"StockForecaster/internal/calculator"
	"StockForecaster/internal/calendar"
	"StockForecaster/internal/model"
)

// SmoothedAverage predicts each trading day as the mean of the trailing window
// closes. Every prediction is appended to the working series, so later steps
// average over earlier forecasts as well as history.
func (e *Engine) SmoothedAverage(bars []model.Bar, horizon, window int) (Result, error) {
	if err := e.checkHorizon(horizon); err != nil {
		return Result{}, err
	}
	if err := positive("window", window); err != nil {
		return Result{}, err
	}
	if err := checkBars(MovingAverage, bars, minTrendBars); err != nil {
		return Result{}, err
	}

	n := len(bars)
	steps := calendar.TradingSteps(bars[n-1].Date, horizon)
	series := make([]float64, n, n+len(steps))
	copy(series, model.Closes(bars))

	preds := make([]PredictionPoint, 0, len(steps))
	for _, s := range steps {
		avg, err := calculator.TrailingMean(series, window)
		if err != nil {
			return Result{}, &ComputationError{Model: MovingAverage, Bars: n, Err: err}
		}
		if !finite(avg) {
			return Result{}, &ComputationError{Model: MovingAverage, Bars: n, Err: errNotFinite}
		}
		series = append(series, avg)
		preds = append(preds, PredictionPoint{Date: s.Date, Predicted: avg})
	}
	return Result{Predictions: preds, Model: movingAverageLabel(window)}, nil
}
