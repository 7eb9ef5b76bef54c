package forecast

import "StockForecaster/internal/model"

const (
	lagCloses    = 5
	featureCount = lagCloses + 2
)

// trainingSet builds one example per bar t >= 5: the five prior closes newest
// first, then the prior day's volume and high-low range. The label is close(t).
func trainingSet(bars []model.Bar) (xs [][]float64, ys []float64) {
	for t := lagCloses; t < len(bars); t++ {
		x := make([]float64, 0, featureCount)
		for k := 1; k <= lagCloses; k++ {
			x = append(x, bars[t-k].Close)
		}
		prev := bars[t-1]
		x = append(x, float64(prev.Volume), prev.Range())
		xs = append(xs, x)
		ys = append(ys, bars[t].Close)
	}
	return xs, ys
}

// rollingFeatures produces the autoregressive inputs for forecasting. Volume
// and range stay at their last observed values for every step; only the close
// window moves.
type rollingFeatures struct {
	closes [lagCloses]float64 // newest first
	volume float64
	rng    float64
}

func newRollingFeatures(bars []model.Bar) *rollingFeatures {
	n := len(bars)
	last := bars[n-1]
	f := &rollingFeatures{volume: float64(last.Volume), rng: last.Range()}
	for k := range lagCloses {
		f.closes[k] = bars[n-1-k].Close
	}
	return f
}

func (f *rollingFeatures) vector() []float64 {
	x := make([]float64, 0, featureCount)
	x = append(x, f.closes[:]...)
	return append(x, f.volume, f.rng)
}

// push makes v the newest close and drops the oldest.
func (f *rollingFeatures) push(v float64) {
	copy(f.closes[1:], f.closes[:lagCloses-1])
	f.closes[0] = v
}
