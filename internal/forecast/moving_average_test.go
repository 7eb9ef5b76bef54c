package forecast

import (
	"testing"

	"StockForecaster/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmoothedAverage_MeanOfWindow(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	// Monday, so the single step lands on Tuesday
	res, err := e.SmoothedAverage(barsEnding("2024-01-08", 10, 20, 30), 1, 3)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, 20.0, res.Predictions[0].Predicted)
	assert.Equal(t, "2024-01-09", res.Predictions[0].Date.String())
	assert.Equal(t, "Moving Average (3 days)", res.Model)
	assert.Nil(t, res.R2)
}

func TestSmoothedAverage_Compounds(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	res, err := e.SmoothedAverage(barsEnding("2024-01-08", 10, 20, 30), 2, 3)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 2)
	assert.InDelta(t, 20.0, res.Predictions[0].Predicted, 1e-12)
	assert.InDelta(t, (20.0+30.0+20.0)/3, res.Predictions[1].Predicted, 1e-12)
}

func TestSmoothedAverage_WindowLargerThanHistory(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	res, err := e.SmoothedAverage(barsEnding("2024-01-08", 4, 8), 1, 20)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, 6.0, res.Predictions[0].Predicted)
	assert.Equal(t, "Moving Average (20 days)", res.Model)
}

func TestSmoothedAverage_WeekendStepsDoNotCompound(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	// Friday: steps 1 and 2 are the weekend, step 3 is Monday
	res, err := e.SmoothedAverage(barsEnding("2024-01-05", 10, 20, 30), 3, 3)
	require.NoError(t, err)
	require.Len(t, res.Predictions, 1)
	assert.Equal(t, 20.0, res.Predictions[0].Predicted)
	assert.Equal(t, "2024-01-08", res.Predictions[0].Date.String())
}

func TestSmoothedAverage_InvalidWindow(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	_, err := e.SmoothedAverage(barsEnding("2024-01-08", 10, 20, 30), 1, 0)
	assert.ErrorIs(t, err, ErrInvalidParameter)

	_, err = e.SmoothedAverage(barsEnding("2024-01-08", 10), 1, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSmoothedAverage_Idempotent(t *testing.T) {
	e := newEngine(t, DefaultOptions())
	bars := barsEnding("2024-01-08", 12, 15, 11, 19, 14, 18, 21)
	orig := append([]model.Bar(nil), bars...)

	// a 30 day horizon spans four weekends
	a, err := e.SmoothedAverage(bars, 30, 3)
	require.NoError(t, err)
	b, err := e.SmoothedAverage(bars, 30, 3)
	require.NoError(t, err)

	assert.Len(t, a.Predictions, 22)
	assert.Equal(t, a, b)
	assert.Equal(t, orig, bars)
}
