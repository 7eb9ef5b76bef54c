package model

// CompanyOverview is the fundamentals profile of a listed company.
// Figures the provider reports as unavailable are left zero.
type CompanyOverview struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Exchange      string  `json:"exchange"`
	Currency      string  `json:"currency"`
	Country       string  `json:"country"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     int64   `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	EPS           float64 `json:"eps"`
	DividendYield float64 `json:"dividend_yield"`
	Beta          float64 `json:"beta"`
	Week52High    float64 `json:"week_52_high"`
	Week52Low     float64 `json:"week_52_low"`
	MA50          float64 `json:"ma_50"`
	MA200         float64 `json:"ma_200"`
}

// IndexQuote is one row of the market indices board. Available is false for
// placeholder rows whose quote could not be fetched on any exchange.
type IndexQuote struct {
	Name          string  `json:"name"`
	Symbol        string  `json:"symbol,omitempty"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	Available     bool    `json:"available"`
}
