package forecast

import (
	"math"
	"testing"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBars(t *testing.T) {
	good := barsEnding("2024-01-10", 1, 2, 3)
	require.NoError(t, ValidateBars(good, 2))
	assert.ErrorIs(t, ValidateBars(good, 4), ErrInsufficientData)

	dup := append([]model.Bar{}, good...)
	dup[2].Date = dup[1].Date
	assert.ErrorIs(t, ValidateBars(dup, 1), ErrInvalidParameter)

	neg := append([]model.Bar{}, good...)
	neg[0].Low = -1
	assert.ErrorIs(t, ValidateBars(neg, 1), ErrInvalidParameter)

	nan := append([]model.Bar{}, good...)
	nan[1].Close = math.NaN()
	assert.ErrorIs(t, ValidateBars(nan, 1), ErrInvalidParameter)

	vol := append([]model.Bar{}, good...)
	vol[1].Volume = -5
	assert.ErrorIs(t, ValidateBars(vol, 1), ErrInvalidParameter)
}

func TestNormalizeBars(t *testing.T) {
	d := calendar.MustParse
	in := []model.Bar{
		{Date: d("2024-01-09"), Close: 2},
		{Date: d("2024-01-08"), Close: 1},
		{Date: d("2024-01-09"), Close: 3},
	}
	out := NormalizeBars(in)
	require.Len(t, out, 2)
	assert.Equal(t, d("2024-01-08"), out[0].Date)
	assert.Equal(t, 3.0, out[1].Close)
	assert.Equal(t, 2.0, in[0].Close, "input must not be modified")
	require.NoError(t, ValidateBars(out, 2))
}
