package api

import (
	"context"
	"net/http"

	"StockForecaster/internal/model"
	"StockForecaster/internal/recorder"
	"StockForecaster/internal/service"
	"StockForecaster/internal/watchlist"

	"github.com/labstack/echo/v4"
)

// Forecaster is the part of the forecast service the API exposes.
type Forecaster interface {
	Forecast(ctx context.Context, req service.Request) (*service.Report, error)
	Simulate(ctx context.Context, req service.SimulationRequest) (*service.Report, error)
	Search(ctx context.Context, keywords string) ([]model.SymbolMatch, error)
	Stats(ctx context.Context, symbol string) (*model.Stats, error)
	History(ctx context.Context, symbol string, days int) ([]model.Bar, error)
	Runs(ctx context.Context, symbol string, limit int) ([]recorder.Run, error)
	Movers(ctx context.Context) (*service.Movers, error)
	Indices(ctx context.Context) ([]model.IndexQuote, error)
	Overview(ctx context.Context, symbol string) (*model.CompanyOverview, error)
	Source() string
}

// Watchlist stores saved symbols per owner.
type Watchlist interface {
	Add(ctx context.Context, owner, symbol, name string) error
	Remove(ctx context.Context, owner, symbol string) (bool, error)
	List(ctx context.Context, owner string) ([]watchlist.Entry, error)
}

// OwnerHeader carries the caller id for watchlist routes.
const OwnerHeader = "X-User-ID"

const defaultOwner = "default"

// Handler serves the REST API.
type Handler struct {
	svc       Forecaster
	watchlist Watchlist
}

// NewHandler creates a Handler. A nil watchlist disables the watchlist routes.
func NewHandler(svc Forecaster, wl Watchlist) *Handler {
	return &Handler{svc: svc, watchlist: wl}
}

// RegisterRoutes mounts every route on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.health)

	g := e.Group("/api")
	g.GET("/forecast", h.forecast)
	g.GET("/simulate", h.simulate)
	g.GET("/runs", h.runs)
	g.GET("/market/movers", h.movers)
	g.GET("/market/indices", h.indices)
	g.GET("/stocks/search", h.search)
	g.GET("/stocks/:symbol/stats", h.stats)
	g.GET("/stocks/:symbol/history", h.history)
	g.GET("/stocks/:symbol/overview", h.overview)

	if h.watchlist != nil {
		g.GET("/watchlist", h.listWatchlist)
		g.POST("/watchlist", h.addWatchlist)
		g.DELETE("/watchlist/:symbol", h.removeWatchlist)
	}
}

type forecastRequest struct {
	Symbol string `query:"symbol" validate:"required,max=16"`
	Days   int    `query:"days" validate:"gte=0"`
	Window int    `query:"window" validate:"gte=0,lte=250"`
	Model  string `query:"model" validate:"omitempty,oneof=linearRegression movingAverage randomForest"`
}

type simulateRequest struct {
	Scenario   string `query:"scenario" default:"bull" validate:"oneof=bull bear sideways volatile"`
	Timeframe  int    `query:"timeframe" default:"180" validate:"gte=6,lte=1825"`
	Volatility int    `query:"volatility" default:"50" validate:"gte=0,lte=100"`
	Days       int    `query:"days" validate:"gte=0"`
	Seed       uint64 `query:"seed" default:"42"`
}

type searchRequest struct {
	Keywords string `query:"q" validate:"required,max=64"`
}

type symbolRequest struct {
	Symbol string `param:"symbol" validate:"required,max=16"`
}

type historyRequest struct {
	Symbol string `param:"symbol" validate:"required,max=16"`
	Days   int    `query:"days" default:"100" validate:"gte=1,lte=1825"`
}

type runsRequest struct {
	Symbol string `query:"symbol" validate:"max=16"`
	Limit  int    `query:"limit" default:"20" validate:"gte=1,lte=200"`
}

type watchRequest struct {
	Symbol string `json:"symbol" validate:"required,max=16"`
	Name   string `json:"name" validate:"max=128"`
}

func (h *Handler) health(c echo.Context) error {
	return SuccessResponse(c, map[string]string{"status": "ok", "source": h.svc.Source()})
}

func (h *Handler) forecast(c echo.Context) error {
	var req forecastRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	report, err := h.svc.Forecast(c.Request().Context(), service.Request{
		Symbol: req.Symbol,
		Days:   req.Days,
		Window: req.Window,
		Model:  req.Model,
	})
	if err != nil {
		return err
	}
	return SuccessResponse(c, report)
}

// simulate treats volatility=0 as unset, so a flat regime needs volatility=1.
func (h *Handler) simulate(c echo.Context) error {
	var req simulateRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	report, err := h.svc.Simulate(c.Request().Context(), service.SimulationRequest{
		Scenario:   model.Scenario(req.Scenario),
		Timeframe:  req.Timeframe,
		Volatility: req.Volatility,
		Days:       req.Days,
		Seed:       req.Seed,
	})
	if err != nil {
		return err
	}
	return SuccessResponse(c, report)
}

func (h *Handler) search(c echo.Context) error {
	var req searchRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	matches, err := h.svc.Search(c.Request().Context(), req.Keywords)
	if err != nil {
		return err
	}
	return SuccessResponse(c, matches)
}

func (h *Handler) stats(c echo.Context) error {
	var req symbolRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	stats, err := h.svc.Stats(c.Request().Context(), req.Symbol)
	if err != nil {
		return err
	}
	return SuccessResponse(c, stats)
}

func (h *Handler) history(c echo.Context) error {
	var req historyRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	bars, err := h.svc.History(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		return err
	}
	return SuccessResponse(c, bars)
}

func (h *Handler) runs(c echo.Context) error {
	var req runsRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	runs, err := h.svc.Runs(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		return err
	}
	return SuccessResponse(c, runs)
}

func (h *Handler) movers(c echo.Context) error {
	m, err := h.svc.Movers(c.Request().Context())
	if err != nil {
		return err
	}
	return SuccessResponse(c, m)
}

func (h *Handler) indices(c echo.Context) error {
	rows, err := h.svc.Indices(c.Request().Context())
	if err != nil {
		return err
	}
	return SuccessResponse(c, rows)
}

func (h *Handler) overview(c echo.Context) error {
	var req symbolRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	o, err := h.svc.Overview(c.Request().Context(), req.Symbol)
	if err != nil {
		return err
	}
	return SuccessResponse(c, o)
}

func owner(c echo.Context) string {
	if v := c.Request().Header.Get(OwnerHeader); v != "" {
		return v
	}
	return defaultOwner
}

func (h *Handler) listWatchlist(c echo.Context) error {
	entries, err := h.watchlist.List(c.Request().Context(), owner(c))
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []watchlist.Entry{}
	}
	return SuccessResponse(c, entries)
}

func (h *Handler) addWatchlist(c echo.Context) error {
	var req watchRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	if err := h.watchlist.Add(c.Request().Context(), owner(c), req.Symbol, req.Name); err != nil {
		return err
	}
	return CreatedResponse(c, req)
}

func (h *Handler) removeWatchlist(c echo.Context) error {
	var req symbolRequest
	if err := ReadAndValidateRequest(c, &req); err != nil {
		return err
	}
	removed, err := h.watchlist.Remove(c.Request().Context(), owner(c), req.Symbol)
	if err != nil {
		return err
	}
	if !removed {
		return NotFoundError("%s is not in the watchlist", req.Symbol)
	}
	return c.NoContent(http.StatusNoContent)
}
