package notifier

import (
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"StockForecaster/internal/forecast"
	"StockForecaster/internal/service"
	"StockForecaster/internal/watchlist"

	"github.com/olekukonko/tablewriter"
)

// Checkpoints are the 1-based prediction positions shown in summaries.
var Checkpoints = []int{7, 15, 30}

// FormatVolume abbreviates a traded volume using crore, lakh and thousand units.
func FormatVolume(v int64) string {
	f := float64(v)
	switch {
	case v >= 10_000_000:
		return fmt.Sprintf("%.2fCr", f/10_000_000)
	case v >= 100_000:
		return fmt.Sprintf("%.2fL", f/100_000)
	case v >= 1_000:
		return fmt.Sprintf("%.2fK", f/1_000)
	}
	return strconv.FormatInt(v, 10)
}

// checkpoint returns the prediction at 1-based position n, or "N/A".
func checkpoint(r forecast.Result, n int) string {
	if n < 1 || n > len(r.Predictions) {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", r.Predictions[n-1].Predicted)
}

func finalPoint(r forecast.Result, last float64) string {
	if len(r.Predictions) == 0 {
		return "N/A"
	}
	p := r.Predictions[len(r.Predictions)-1]
	pct := 0.0
	if last != 0 {
		pct = (p.Predicted - last) / last * 100
	}
	return fmt.Sprintf("%.2f (%+.1f%%) on %s", p.Predicted, pct, p.Date)
}

// FormatForecastDigest renders a report as a Telegram HTML message.
func FormatForecastDigest(r *service.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📈 <b>%s</b> forecast | %s\n\n", html.EscapeString(r.Symbol), r.GeneratedAt.Format("2006-01-02"))
	fmt.Fprintf(&b, "Last close: %.2f (%s)\n", r.LastClose, r.LastDate)
	fmt.Fprintf(&b, "Day change: %+.2f (%+.2f%%)\n", r.Stats.Change, r.Stats.ChangePercent)
	if r.Stats.High52w > 0 {
		fmt.Fprintf(&b, "52w range: %.2f - %.2f (%.0f%%)\n", r.Stats.Low52w, r.Stats.High52w, r.Stats.Position52w*100)
	}
	if r.Stats.AvgVolume > 0 {
		fmt.Fprintf(&b, "Avg volume: %s\n", FormatVolume(int64(r.Stats.AvgVolume)))
	}
	fmt.Fprintf(&b, "Horizon: %d days\n", r.Horizon)

	for _, id := range forecast.Models {
		res, ok := r.Bundle[id]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n<b>%s</b>\n", html.EscapeString(res.Model))
		for _, n := range Checkpoints {
			fmt.Fprintf(&b, "  Day %d: %s\n", n, checkpoint(res, n))
		}
		fmt.Fprintf(&b, "  End: %s\n", finalPoint(res, r.LastClose))
		if res.R2 != nil {
			fmt.Fprintf(&b, "  R²: %.2f%%\n", *res.R2*100)
		}
	}
	return b.String()
}

// FormatWatchlist lists saved symbols for a chat reply.
func FormatWatchlist(entries []watchlist.Entry) string {
	if len(entries) == 0 {
		return "Your watchlist is empty. Add a symbol with /watch SYMBOL"
	}
	var b strings.Builder
	b.WriteString("⭐ <b>Watchlist</b>\n\n")
	for _, e := range entries {
		if e.Name != "" {
			fmt.Fprintf(&b, "• %s (%s)\n", html.EscapeString(e.Symbol), html.EscapeString(e.Name))
		} else {
			fmt.Fprintf(&b, "• %s\n", html.EscapeString(e.Symbol))
		}
	}
	return b.String()
}

// PrintForecastTable writes one row per model to w.
func PrintForecastTable(w io.Writer, r *service.Report) error {
	fmt.Fprintf(w, "\n  %s | source %s | last close %.2f on %s | horizon %d days\n\n",
		r.Symbol, r.Source, r.LastClose, r.LastDate, r.Horizon)

	table := tablewriter.NewWriter(w)
	header := []any{"Model"}
	for _, n := range Checkpoints {
		header = append(header, fmt.Sprintf("Day %d", n))
	}
	header = append(header, "End", "R²")
	table.Header(header...)

	for _, id := range forecast.Models {
		res, ok := r.Bundle[id]
		if !ok {
			continue
		}
		row := []any{res.Model}
		for _, n := range Checkpoints {
			row = append(row, checkpoint(res, n))
		}
		r2 := "-"
		if res.R2 != nil {
			r2 = fmt.Sprintf("%.4f", *res.R2)
		}
		row = append(row, finalPoint(res, r.LastClose), r2)
		if err := table.Append(row...); err != nil {
			return err
		}
	}
	return table.Render()
}
