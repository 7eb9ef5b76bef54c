package model

// Stats summarizes a bar history for display next to a forecast.
type Stats struct {
	LastClose     float64 `json:"last_close"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	High52w       float64 `json:"high_52w"`
	Low52w        float64 `json:"low_52w"`
	Position52w   float64 `json:"position_52w"` // 0.0 ~ 1.0
	AvgVolume     float64 `json:"avg_volume"`
	MA20          float64 `json:"ma20"`
	MA50          float64 `json:"ma50,omitempty"`
	RSI14         float64 `json:"rsi14"`
}

// Scenario names a synthetic market regime for simulated data.
type Scenario string

const (
	ScenarioBull     Scenario = "bull"
	ScenarioBear     Scenario = "bear"
	ScenarioSideways Scenario = "sideways"
	ScenarioVolatile Scenario = "volatile"
)

// Valid reports whether s is a known scenario.
func (s Scenario) Valid() bool {
	switch s {
	case ScenarioBull, ScenarioBear, ScenarioSideways, ScenarioVolatile:
		return true
	}
	return false
}
