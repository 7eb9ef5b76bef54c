package forecast

import (
	"fmt"

	"StockForecaster/internal/calendar"
)

// ModelID keys a Result inside a Bundle.
type ModelID string

const (
	LinearRegression ModelID = "linearRegression"
	MovingAverage    ModelID = "movingAverage"
	RandomForest     ModelID = "randomForest"
)

// Models lists every model the dispatcher runs, in bundle order.
var Models = []ModelID{LinearRegression, MovingAverage, RandomForest}

// ParseModelID accepts one of the bundle keys.
func ParseModelID(s string) (ModelID, error) {
	for _, id := range Models {
		if string(id) == s {
			return id, nil
		}
	}
	return "", &InvalidParameterError{Name: "model", Value: s, Reason: "unknown model"}
}

// PredictionPoint is one forecast trading day. Actual is never set at generation time.
type PredictionPoint struct {
	Date      calendar.Date `json:"date"`
	Predicted float64       `json:"predicted"`
	Actual    *float64      `json:"actual"`
}

// Result is the output of a single model.
type Result struct {
	Predictions []PredictionPoint `json:"predictions"`
	Model       string            `json:"model"`
	R2          *float64          `json:"r2,omitempty"`
}

// Bundle maps each model to its result for one dispatcher call.
type Bundle map[ModelID]Result

func movingAverageLabel(window int) string {
	return fmt.Sprintf("Moving Average (%d days)", window)
}

const (
	linearLabel = "Linear Regression"
	forestLabel = "Random Forest"
)
