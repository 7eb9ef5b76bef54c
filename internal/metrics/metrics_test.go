package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counts(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.RecordForecast("all", 20*time.Millisecond, nil)
	r.RecordForecast("all", 5*time.Millisecond, errors.New("boom"))
	r.RecordForecast("all", 5*time.Millisecond, nil)
	r.RecordFetchError("alphavantage")
	r.RecordHTTP("/api/forecast", "GET", 422, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.forecastRuns.WithLabelValues("all", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.forecastRuns.WithLabelValues("all", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("alphavantage")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.httpRequests.WithLabelValues("/api/forecast", "GET", "422")))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(204))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(502))
}
