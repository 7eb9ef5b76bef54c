package model

import "StockForecaster/internal/calendar"

// Bar is one trading day of OHLCV data.
type Bar struct {
	Date   calendar.Date `json:"date"`
	Open   float64       `json:"open"`
	High   float64       `json:"high"`
	Low    float64       `json:"low"`
	Close  float64       `json:"close"`
	Volume int64         `json:"volume"`
}

// Range returns the intraday high-low spread.
func (b Bar) Range() float64 { return b.High - b.Low }

// Closes extracts closing prices in bar order.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
