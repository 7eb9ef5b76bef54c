package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"StockForecaster/internal/calendar"
	"StockForecaster/internal/collector"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/metrics"
	"StockForecaster/internal/model"
	"StockForecaster/internal/recorder"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidRequest marks caller mistakes that never reach the models.
var ErrInvalidRequest = errors.New("invalid request")

// moversLimit caps each movers list.
const moversLimit = 5

// Index is a market index shown on the indices board.
type Index struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	Name   string `json:"name" yaml:"name"`
}

// DefaultIndices are the Indian benchmark indices.
var DefaultIndices = []Index{
	{Symbol: "NIFTY", Name: "NIFTY 50"},
	{Symbol: "SENSEX", Name: "BSE SENSEX"},
	{Symbol: "BANKNIFTY", Name: "NIFTY BANK"},
	{Symbol: "NIFTYIT", Name: "NIFTY IT"},
}

// indexExchanges are tried in order for every index.
var indexExchanges = []string{".BSE", ".NS"}

// Request asks for a forecast of one symbol.
type Request struct {
	Symbol string
	// Days is the calendar-day horizon; zero uses the configured default.
	Days int
	// Window overrides the moving average window when non-zero.
	Window int
	// Model restricts the run to one model; empty runs the full bundle.
	Model string
}

// SimulationRequest asks for a forecast over a synthetic market regime.
type SimulationRequest struct {
	Scenario   model.Scenario
	Timeframe  int // history bars
	Volatility int // 0-100
	Days       int
	Seed       uint64
	End        calendar.Date // zero means today
}

// Report is the outcome of one forecast call.
type Report struct {
	RunID       string          `json:"run_id"`
	Symbol      string          `json:"symbol"`
	Source      string          `json:"source"`
	Horizon     int             `json:"horizon"`
	Window      int             `json:"window"`
	LastDate    calendar.Date   `json:"last_date"`
	LastClose   float64         `json:"last_close"`
	GeneratedAt time.Time       `json:"generated_at"`
	Stats       model.Stats     `json:"stats"`
	Bundle      forecast.Bundle `json:"predictions"`
	// Bars is only filled for simulations, where the caller has no other way to see the history.
	Bars []model.Bar `json:"bars,omitempty"`
}

// Movers ranks a quote universe the way the market overview does.
type Movers struct {
	Gainers    []model.Quote `json:"gainers"`
	Losers     []model.Quote `json:"losers"`
	MostActive []model.Quote `json:"most_active"`
}

// Deps wires a ForecastService.
type Deps struct {
	Collector      *collector.Collector
	Engine         *forecast.Engine
	Recorder       recorder.Recorder // nil disables the history log
	Metrics        *metrics.Recorder // nil disables metrics
	HistoryDays    int
	DefaultHorizon int
	MarketSymbols  []string
	// Indices defaults to DefaultIndices.
	Indices        []Index
}

// ForecastService runs forecasts against live or simulated market data.
type ForecastService struct {
	collector      *collector.Collector
	engine         *forecast.Engine
	recorder       recorder.Recorder
	metrics        *metrics.Recorder
	historyDays    int
	defaultHorizon int
	marketSymbols  []string
	indices        []Index
	now            func() time.Time
}

// New builds a ForecastService. Collector and Engine are required.
func New(d Deps) (*ForecastService, error) {
	if d.Collector == nil || d.Engine == nil {
		return nil, errors.New("service: collector and engine are required")
	}
	if d.Recorder == nil {
		d.Recorder = recorder.NewNoopRecorder()
	}
	if d.HistoryDays <= 0 {
		d.HistoryDays = 365
	}
	if d.DefaultHorizon <= 0 {
		d.DefaultHorizon = 30
	}
	if len(d.Indices) == 0 {
		d.Indices = DefaultIndices
	}
	return &ForecastService{
		collector:      d.Collector,
		engine:         d.Engine,
		recorder:       d.Recorder,
		metrics:        d.Metrics,
		historyDays:    d.HistoryDays,
		defaultHorizon: d.DefaultHorizon,
		marketSymbols:  d.MarketSymbols,
		indices:        d.Indices,
		now:            time.Now,
	}, nil
}

// Source names the market data provider behind the service.
func (s *ForecastService) Source() string { return s.collector.Fetcher.Name() }

// DefaultHorizon is the horizon used when a request leaves Days at zero.
func (s *ForecastService) DefaultHorizon() int { return s.defaultHorizon }

// Forecast fetches history for req.Symbol, runs the requested models and
// records the run. Recording failures are logged, not returned.
func (s *ForecastService) Forecast(ctx context.Context, req Request) (*Report, error) {
	symbol := normalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}

	snap, err := s.collector.Collect(ctx, symbol, s.historyDays)
	if err != nil {
		s.fetchFailed()
		return nil, err
	}

	report, err := s.run(ctx, snap, req)
	if err != nil {
		return nil, err
	}
	report.Source = s.Source()
	s.record(ctx, report, len(snap.Bars))
	return report, nil
}

// Simulate forecasts over bars generated for a market scenario. Simulated runs are not recorded.
func (s *ForecastService) Simulate(ctx context.Context, req SimulationRequest) (*Report, error) {
	if req.Timeframe == 0 {
		req.Timeframe = collector.DefaultTimeframe
	}
	if req.Timeframe < 0 {
		return nil, fmt.Errorf("%w: timeframe must be positive", ErrInvalidRequest)
	}
	sim, err := collector.NewSimulatedFetcher(req.Scenario, req.Volatility, req.Seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	sim.End = req.End

	snap, err := collector.NewCollector(sim).Collect(ctx, "SIM-"+string(req.Scenario), req.Timeframe)
	if err != nil {
		return nil, err
	}
	report, err := s.run(ctx, snap, Request{Days: req.Days})
	if err != nil {
		return nil, err
	}
	report.Source = sim.Name()
	report.Bars = snap.Bars
	return report, nil
}

func (s *ForecastService) run(ctx context.Context, snap *collector.Snapshot, req Request) (*Report, error) {
	horizon := req.Days
	if horizon == 0 {
		horizon = s.defaultHorizon
	}

	engine := s.engine
	if req.Window != 0 && req.Window != engine.Options().Window {
		opts := engine.Options()
		opts.Window = req.Window
		var err error
		if engine, err = forecast.New(opts); err != nil {
			return nil, err
		}
	}

	label := "all"
	start := time.Now()
	var bundle forecast.Bundle
	var err error
	if req.Model == "" {
		bundle, err = engine.Forecast(ctx, snap.Bars, horizon)
	} else {
		var id forecast.ModelID
		if id, err = forecast.ParseModelID(req.Model); err == nil {
			label = string(id)
			var r forecast.Result
			if r, err = engine.Run(id, snap.Bars, horizon); err == nil {
				bundle = forecast.Bundle{id: r}
			}
		}
	}
	if s.metrics != nil {
		s.metrics.RecordForecast(label, time.Since(start), err)
	}
	if err != nil {
		log.Warn().Err(err).Str("symbol", snap.Symbol).Int("horizon", horizon).Msg("forecast failed")
		return nil, err
	}

	last := snap.Bars[len(snap.Bars)-1]
	if s.metrics != nil {
		s.metrics.RecordLastClose(snap.Symbol, last.Close)
	}
	return &Report{
		RunID:       uuid.NewString(),
		Symbol:      snap.Symbol,
		Horizon:     horizon,
		Window:      engine.Options().Window,
		LastDate:    last.Date,
		LastClose:   last.Close,
		GeneratedAt: s.now().UTC(),
		Stats:       snap.Stats,
		Bundle:      bundle,
	}, nil
}

func (s *ForecastService) record(ctx context.Context, r *Report, bars int) {
	run := &recorder.Run{
		ID:        r.RunID,
		Symbol:    r.Symbol,
		Source:    r.Source,
		Horizon:   r.Horizon,
		Window:    r.Window,
		BarCount:  bars,
		LastDate:  r.LastDate,
		LastClose: r.LastClose,
		CreatedAt: r.GeneratedAt,
		Results:   r.Bundle,
	}
	if err := s.recorder.RecordForecast(ctx, run); err != nil {
		log.Error().Err(err).Str("symbol", r.Symbol).Str("run_id", r.RunID).Msg("record forecast")
	}
}

// Search looks up symbols by keyword when the provider supports it.
func (s *ForecastService) Search(ctx context.Context, keywords string) ([]model.SymbolMatch, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return nil, fmt.Errorf("%w: keywords are required", ErrInvalidRequest)
	}
	searcher, ok := s.collector.Fetcher.(collector.Searcher)
	if !ok {
		return nil, collector.ErrSearchUnsupported
	}
	matches, err := searcher.SearchSymbols(ctx, keywords)
	if err != nil {
		s.fetchFailed()
		return nil, err
	}
	return matches, nil
}

// Stats returns the summary statistics of a symbol's recent history.
func (s *ForecastService) Stats(ctx context.Context, symbol string) (*model.Stats, error) {
	snap, err := s.snapshot(ctx, symbol, s.historyDays)
	if err != nil {
		return nil, err
	}
	return &snap.Stats, nil
}

// History returns up to days of daily bars, oldest first.
func (s *ForecastService) History(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if days <= 0 {
		days = s.historyDays
	}
	snap, err := s.snapshot(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	return snap.Bars, nil
}

// Runs lists recorded forecasts, newest first.
func (s *ForecastService) Runs(ctx context.Context, symbol string, limit int) ([]recorder.Run, error) {
	return s.recorder.ListRuns(ctx, normalizeSymbol(symbol), limit)
}

// Movers ranks the configured market universe by change percent and volume.
func (s *ForecastService) Movers(ctx context.Context) (*Movers, error) {
	if len(s.marketSymbols) == 0 {
		return nil, fmt.Errorf("%w: no market symbols configured", ErrInvalidRequest)
	}
	quotes := s.collector.Quotes(ctx, s.marketSymbols)
	if len(quotes) == 0 {
		s.fetchFailed()
		return nil, fmt.Errorf("%w: no quotes available", collector.ErrUpstream)
	}
	return RankMovers(quotes, moversLimit), nil
}

// Overview returns company fundamentals when the provider has them.
func (s *ForecastService) Overview(ctx context.Context, symbol string) (*model.CompanyOverview, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	of, ok := s.collector.Fetcher.(collector.OverviewFetcher)
	if !ok {
		return nil, collector.ErrOverviewUnsupported
	}
	o, err := of.FetchOverview(ctx, symbol)
	if err != nil {
		s.fetchFailed()
		return nil, err
	}
	return o, nil
}

// Indices quotes every configured index, trying each exchange suffix in turn.
// An index no exchange can quote is returned as a placeholder row.
func (s *ForecastService) Indices(ctx context.Context) ([]model.IndexQuote, error) {
	rows := make([]model.IndexQuote, len(s.indices))
	var g errgroup.Group
	for i, idx := range s.indices {
		g.Go(func() error {
			rows[i] = s.indexQuote(ctx, idx)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ForecastService) indexQuote(ctx context.Context, idx Index) model.IndexQuote {
	for _, suffix := range indexExchanges {
		sym := idx.Symbol + suffix
		q, err := s.collector.Fetcher.FetchQuote(ctx, sym)
		if err != nil {
			log.Warn().Err(err).Str("symbol", sym).Msg("index quote failed")
			continue
		}
		return model.IndexQuote{
			Name:          idx.Name,
			Symbol:        sym,
			Price:         q.Price,
			ChangePercent: q.ChangePercent,
			Volume:        q.Volume,
			Available:     true,
		}
	}
	s.fetchFailed()
	return model.IndexQuote{Name: idx.Name}
}

// RankMovers returns the top n gainers, losers and most traded quotes.
func RankMovers(quotes []model.Quote, n int) *Movers {
	top := func(less func(a, b model.Quote) bool) []model.Quote {
		sorted := append([]model.Quote(nil), quotes...)
		sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
		if len(sorted) > n {
			sorted = sorted[:n]
		}
		return sorted
	}
	return &Movers{
		Gainers:    top(func(a, b model.Quote) bool { return a.ChangePercent > b.ChangePercent }),
		Losers:     top(func(a, b model.Quote) bool { return a.ChangePercent < b.ChangePercent }),
		MostActive: top(func(a, b model.Quote) bool { return a.Volume > b.Volume }),
	}
}

func (s *ForecastService) snapshot(ctx context.Context, symbol string, days int) (*collector.Snapshot, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidRequest)
	}
	snap, err := s.collector.Collect(ctx, symbol, days)
	if err != nil {
		s.fetchFailed()
		return nil, err
	}
	return snap, nil
}

func (s *ForecastService) fetchFailed() {
	if s.metrics != nil {
		s.metrics.RecordFetchError(s.Source())
	}
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
