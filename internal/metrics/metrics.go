package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the Prometheus collectors of the service.
type Recorder struct {
	forecastRuns     *prometheus.CounterVec
	forecastDuration *prometheus.HistogramVec
	fetchErrors      *prometheus.CounterVec
	lastClose        *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		forecastRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecaster_runs_total",
				Help: "Forecast runs by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		forecastDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecaster_run_duration_seconds",
				Help:    "Duration of forecast runs in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecaster_fetch_errors_total",
				Help: "Market data fetch failures by source",
			},
			[]string{"source"},
		),
		lastClose: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forecaster_last_close",
				Help: "Last observed close per forecasted symbol",
			},
			[]string{"symbol"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forecaster_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forecaster_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method", "class"},
		),
	}
}

// RecordForecast counts a run and observes its duration. model is "all" for bundles.
func (r *Recorder) RecordForecast(model string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.forecastRuns.WithLabelValues(model, outcome).Inc()
	r.forecastDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordFetchError counts a failed market data call.
func (r *Recorder) RecordFetchError(source string) {
	r.fetchErrors.WithLabelValues(source).Inc()
}

// RecordLastClose records the last close for a symbol.
func (r *Recorder) RecordLastClose(symbol string, price float64) {
	r.lastClose.WithLabelValues(symbol).Set(price)
}

// RecordHTTP records one served request.
func (r *Recorder) RecordHTTP(route, method string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method, StatusClass(status)).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status code as "2xx", "4xx" and so on.
func StatusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
