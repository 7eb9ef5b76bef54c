package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"StockForecaster/internal/config"
	"StockForecaster/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Server wraps the echo instance serving the API.
type Server struct {
	echo *echo.Echo
	cfg  config.ServerConfig
}

// NewServer builds the echo stack. gatherer backs /metrics and may be nil.
func NewServer(cfg config.ServerConfig, h *Handler, m *metrics.Recorder, gatherer prometheus.Gatherer) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover())
	e.Use(observe(m))
	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, OwnerHeader},
		}))
	}

	if h != nil {
		h.RegisterRoutes(e)
	}
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return &Server{echo: e, cfg: cfg}
}

// Start listens in the background. Listen failures are logged.
func (s *Server) Start() {
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	log.Info().Msg("http server stopped")
	return nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }
