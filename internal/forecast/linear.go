package forecast

import (
	"fmt"
	"math"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/model"

	"gonum.org/v1/gonum/stat"
)

// LinearTrend fits close against the bar index by ordinary least squares and
// extends the line over the trading days of the horizon. R2 is measured on the
// training range; a constant series reports 1.
func (e *Engine) LinearTrend(bars []model.Bar, horizon int) (Result, error) {
	if err := e.checkHorizon(horizon); err != nil {
		return Result{}, err
	}
	if err := checkBars(LinearRegression, bars, minTrendBars); err != nil {
		return Result{}, err
	}

	n := len(bars)
	xs := make([]float64, n)
	ys := model.Closes(bars)
	for i := range xs {
		xs[i] = float64(i)
	}

	var alpha, beta, r2 float64
	if isConstant(ys) {
		alpha, beta, r2 = ys[0], 0, 1
	} else {
		alpha, beta = stat.LinearRegression(xs, ys, nil, false)
		r2 = stat.RSquared(xs, ys, nil, alpha, beta)
	}
	if !finite(alpha, beta, r2) {
		return Result{}, &ComputationError{
			Model: LinearRegression,
			Bars:  n,
			Err:   fmt.Errorf("least squares fit: %w", errNotFinite),
		}
	}

	steps := calendar.TradingSteps(bars[n-1].Date, horizon)
	preds := make([]PredictionPoint, 0, len(steps))
	for _, s := range steps {
		v := alpha + beta*float64(n-1+s.Index)
		if !finite(v) {
			return Result{}, &ComputationError{Model: LinearRegression, Bars: n, Err: errNotFinite}
		}
		preds = append(preds, PredictionPoint{Date: s.Date, Predicted: v})
	}
	return Result{Predictions: preds, Model: linearLabel, R2: &r2}, nil
}

func isConstant(vs []float64) bool {
	for _, v := range vs[1:] {
		if v != vs[0] {
			return false
		}
	}
	return true
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
