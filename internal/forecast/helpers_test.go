package forecast

import (
	"testing"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/model"

	"github.com/stretchr/testify/require"
)

// barsEnding builds weekday bars whose last date is end.
func barsEnding(end string, closes ...float64) []model.Bar {
	days := calendar.PreviousWeekdays(calendar.MustParse(end), len(closes))
	bars := make([]model.Bar, len(closes))
	for i, c := range closes {
		bars[i] = model.Bar{
			Date:   days[i],
			Open:   c,
			High:   c + 2,
			Low:    c - 1,
			Close:  c,
			Volume: int64(1_000_000 + 1000*i),
		}
	}
	return bars
}

func linearCloses(n int, intercept, slope float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = intercept + slope*float64(i)
	}
	return out
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	require.NoError(t, err)
	return e
}
