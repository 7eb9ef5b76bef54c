package calculator

import (
	"errors"

	"StockForecaster/internal/model"
)

// AverageVolume returns the mean volume of the most recent lookback bars.
func AverageVolume(bars []model.Bar, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, errors.New("lookback must be positive")
	}
	if len(bars) == 0 {
		return 0, errors.New("no daily bars provided")
	}
	start := max(len(bars)-lookback, 0)
	var sum float64
	for _, b := range bars[start:] {
		sum += float64(b.Volume)
	}
	return sum / float64(len(bars)-start), nil
}

// DayChange returns the last close's move against the previous close, absolute and in percent.
func DayChange(bars []model.Bar) (change, pct float64, err error) {
	if len(bars) < 2 {
		return 0, 0, errors.New("need at least two bars for day change")
	}
	last, prev := bars[len(bars)-1].Close, bars[len(bars)-2].Close
	change = last - prev
	if prev != 0 {
		pct = change / prev * 100
	}
	return change, pct, nil
}

// ComputeStats builds the summary shown alongside a forecast.
// Indicators that lack enough history are left at zero.
func ComputeStats(bars []model.Bar) (model.Stats, error) {
	if len(bars) == 0 {
		return model.Stats{}, errors.New("no daily bars provided")
	}
	st := model.Stats{LastClose: bars[len(bars)-1].Close}

	if change, pct, err := DayChange(bars); err == nil {
		st.Change, st.ChangePercent = change, pct
	}

	high, low, err := Calculate52WeekRange(bars)
	if err != nil {
		return st, err
	}
	st.High52w, st.Low52w = high, low
	if st.Position52w, err = Calculate52WeekPosition(st.LastClose, high, low); err != nil {
		return st, err
	}

	if st.AvgVolume, err = AverageVolume(bars, TradingDaysPerYear); err != nil {
		return st, err
	}
	if ma, err := CalculateMA20(bars); err == nil {
		st.MA20 = ma
	}
	if ma, err := CalculateMA50(bars); err == nil {
		st.MA50 = ma
	}
	if st.RSI14, err = CalculateRSI(bars, 14); err != nil {
		return st, err
	}
	return st, nil
}
