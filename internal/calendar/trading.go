package calendar

import "time"

// Step is a forecast slot: Index is the raw calendar step (1-based) that produced Date.
type Step struct {
	Index int
	Date  Date
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func IsWeekend(d Date) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// TradingSteps walks h calendar days forward from last and returns the ones that
// are not weekends. The budget is h raw days, so fewer than h steps come back
// whenever the window crosses a weekend.
func TradingSteps(last Date, h int) []Step {
	if h <= 0 {
		return nil
	}
	steps := make([]Step, 0, h)
	for i := 1; i <= h; i++ {
		next := last.AddDays(i)
		if IsWeekend(next) {
			continue
		}
		steps = append(steps, Step{Index: i, Date: next})
	}
	return steps
}

// PreviousWeekdays returns the n weekdays ending on or before end, oldest first.
func PreviousWeekdays(end Date, n int) []Date {
	if n <= 0 {
		return nil
	}
	out := make([]Date, n)
	d := end
	for i := n - 1; i >= 0; {
		if !IsWeekend(d) {
			out[i] = d
			i--
		}
		d = d.AddDays(-1)
	}
	return out
}
