package model

import "StockForecaster/internal/calendar"

// Quote is the latest trading snapshot for a symbol, independent of any provider's schema.
type Quote struct {
	Symbol           string        `json:"symbol"`
	Open             float64       `json:"open"`
	High             float64       `json:"high"`
	Low              float64       `json:"low"`
	Price            float64       `json:"price"`
	Volume           int64         `json:"volume"`
	LatestTradingDay calendar.Date `json:"latest_trading_day"`
	PreviousClose    float64       `json:"previous_close"`
	Change           float64       `json:"change"`
	ChangePercent    float64       `json:"change_percent"`
}

// SymbolMatch is one hit from a ticker search.
type SymbolMatch struct {
	Symbol     string  `json:"symbol"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Region     string  `json:"region"`
	Currency   string  `json:"currency"`
	MatchScore float64 `json:"match_score"`
}
