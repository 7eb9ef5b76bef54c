package calculator

import (
	"errors"

	"StockForecaster/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// TrailingMean averages the last window prices, or all of them when fewer exist.
func TrailingMean(prices []float64, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(prices) == 0 {
		return 0, errors.New("no prices provided")
	}
	if len(prices) < window {
		window = len(prices)
	}
	return CalculateSMA(prices, window)
}

// CalculateMA20 returns the 20-day simple moving average from daily bars.
func CalculateMA20(dailyBars []model.Bar) (float64, error) {
	return CalculateSMA(model.Closes(dailyBars), 20)
}

// CalculateMA50 returns the 50-day simple moving average from daily bars.
func CalculateMA50(dailyBars []model.Bar) (float64, error) {
	return CalculateSMA(model.Closes(dailyBars), 50)
}
