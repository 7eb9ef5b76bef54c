package api

import (
	"time"

	"StockForecaster/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// observe logs each request and records its metrics under the route template.
// It resolves handler errors itself so the final status is known.
func observe(m *metrics.Recorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req, res := c.Request(), c.Response()
			latency := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.RecordHTTP(route, req.Method, res.Status, latency)
			}
			log.Debug().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Int("status", res.Status).
				Dur("latency", latency).
				Msg("http request")
			return nil
		}
	}
}
