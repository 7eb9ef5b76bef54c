package forecast

import (
	"fmt"
	"math"
	"slices"

	"StockForecaster/internal/model"
)

// ValidateBars checks that bars are usable model input: at least need of them,
// strictly ascending dates, finite non-negative prices and volumes.
func ValidateBars(bars []model.Bar, need int) error {
	return checkBars("", bars, need)
}

func checkBars(id ModelID, bars []model.Bar, need int) error {
	if len(bars) < need {
		return &InsufficientDataError{Model: id, Have: len(bars), Need: need}
	}
	for i, b := range bars {
		if i > 0 && !bars[i-1].Date.Before(b.Date) {
			return &InvalidParameterError{
				Name:   "bars",
				Value:  b.Date.String(),
				Reason: fmt.Sprintf("bar %d is not after %s", i, bars[i-1].Date),
			}
		}
		for _, p := range [...]float64{b.Open, b.High, b.Low, b.Close} {
			if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return &InvalidParameterError{
					Name:   "bars",
					Value:  p,
					Reason: fmt.Sprintf("bar %s has a negative or non-finite price", b.Date),
				}
			}
		}
		if b.Volume < 0 {
			return &InvalidParameterError{
				Name:   "bars",
				Value:  b.Volume,
				Reason: fmt.Sprintf("bar %s has negative volume", b.Date),
			}
		}
	}
	return nil
}

// NormalizeBars returns a copy sorted ascending by date. When a date repeats
// the later occurrence wins.
func NormalizeBars(bars []model.Bar) []model.Bar {
	out := slices.Clone(bars)
	slices.SortStableFunc(out, func(a, b model.Bar) int {
		return a.Date.Time().Compare(b.Date.Time())
	})
	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date == b.Date {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

func (e *Engine) checkHorizon(h int) error {
	if err := positive("horizon", h); err != nil {
		return err
	}
	if h > e.opts.MaxHorizon {
		return &InvalidParameterError{
			Name:   "horizon",
			Value:  h,
			Reason: fmt.Sprintf("exceeds maximum of %d", e.opts.MaxHorizon),
		}
	}
	return nil
}
