package scheduler

import (
	"context"
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"

	"StockForecaster/internal/notifier"
	"StockForecaster/internal/service"
	"StockForecaster/internal/watchlist"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Forecaster runs a forecast for one symbol.
type Forecaster interface {
	Forecast(ctx context.Context, req service.Request) (*service.Report, error)
}

// Watchlist is the saved-symbol store the chat commands edit.
type Watchlist interface {
	Add(ctx context.Context, owner, symbol, name string) error
	Remove(ctx context.Context, owner, symbol string) (bool, error)
	List(ctx context.Context, owner string) ([]watchlist.Entry, error)
	Symbols(ctx context.Context) ([]string, error)
}

type retrier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

// Scheduler manages the cron tasks and answers chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Service   Forecaster
	Watchlist Watchlist
	Notifier  notifier.Notifier
	Symbols   []string
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler. symbols are forecast daily in
// addition to every watched symbol. wl may be nil.
func NewScheduler(ctx context.Context, svc Forecaster, wl Watchlist, n notifier.Notifier, symbols []string) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Service:   svc,
		Watchlist: wl,
		Notifier:  n,
		Symbols:   symbols,
		Ctx:       ctx,
	}
}

// Register adds the daily forecast task.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyForecast); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunDailyNow executes the daily task immediately.
func (s *Scheduler) RunDailyNow() {
	s.dailyForecast()
}

// targets merges configured and watched symbols, sorted and deduplicated.
func (s *Scheduler) targets() []string {
	set := make([]string, 0, len(s.Symbols))
	for _, sym := range s.Symbols {
		set = append(set, strings.ToUpper(strings.TrimSpace(sym)))
	}
	if s.Watchlist != nil {
		watched, err := s.Watchlist.Symbols(s.Ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load watched symbols")
		}
		set = append(set, watched...)
	}
	slices.Sort(set)
	set = slices.Compact(set)
	if len(set) > 0 && set[0] == "" {
		set = set[1:]
	}
	return set
}

func (s *Scheduler) dailyForecast() {
	symbols := s.targets()
	log.Info().Int("symbols", len(symbols)).Msg("running daily forecast")

	var failed []string
	for _, sym := range symbols {
		if s.Ctx.Err() != nil {
			return
		}
		report, err := s.Service.Forecast(s.Ctx, service.Request{Symbol: sym})
		if err != nil {
			log.Error().Err(err).Str("symbol", sym).Msg("daily forecast")
			failed = append(failed, sym)
			continue
		}
		s.trySend(notifier.FormatForecastDigest(report))
	}
	if len(failed) > 0 {
		s.trySend(fmt.Sprintf("❌ Daily forecast failed for: %s", html.EscapeString(strings.Join(failed, ", "))))
	}
}

func (s *Scheduler) trySend(text string) {
	var err error
	if r, ok := s.Notifier.(retrier); ok {
		err = r.SendWithRetry(s.Ctx, text, sendRetries)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}

const helpText = `Available commands:
/forecast SYMBOL [days] - run all models
/watch SYMBOL [name] - add to your watchlist
/unwatch SYMBOL - remove from your watchlist
/list - show your watchlist`

// HandleCommand processes a chat command and returns the reply. The chat id
// owns the watchlist entries it edits.
func (s *Scheduler) HandleCommand(ctx context.Context, cmd notifier.Command) string {
	fields := strings.Fields(cmd.Text)
	if len(fields) == 0 {
		return helpText
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	// Commands in groups arrive as /forecast@botname.
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "/forecast":
		return s.forecastCommand(ctx, args)
	case "/watch", "/unwatch", "/list":
		if s.Watchlist == nil {
			return "Watchlist is not available."
		}
		return s.watchlistCommand(ctx, cmd.ChatID, name, args)
	default:
		return helpText
	}
}

func (s *Scheduler) forecastCommand(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: /forecast SYMBOL [days]"
	}
	req := service.Request{Symbol: args[0]}
	if len(args) > 1 {
		days, err := strconv.Atoi(args[1])
		if err != nil || days <= 0 {
			return fmt.Sprintf("Invalid days %q, expected a positive number.", html.EscapeString(args[1]))
		}
		req.Days = days
	}
	report, err := s.Service.Forecast(ctx, req)
	if err != nil {
		return fmt.Sprintf("❌ Forecast for %s failed: %s", html.EscapeString(strings.ToUpper(args[0])), html.EscapeString(err.Error()))
	}
	return notifier.FormatForecastDigest(report)
}

func (s *Scheduler) watchlistCommand(ctx context.Context, owner, name string, args []string) string {
	if name == "/list" {
		entries, err := s.Watchlist.List(ctx, owner)
		if err != nil {
			log.Error().Err(err).Str("owner", owner).Msg("list watchlist")
			return "❌ Could not load your watchlist."
		}
		return notifier.FormatWatchlist(entries)
	}

	if len(args) == 0 {
		return fmt.Sprintf("Usage: %s SYMBOL", name)
	}
	symbol := strings.ToUpper(args[0])
	shown := html.EscapeString(symbol)
	if name == "/watch" {
		if err := s.Watchlist.Add(ctx, owner, symbol, strings.Join(args[1:], " ")); err != nil {
			return fmt.Sprintf("❌ Could not add %s: %s", shown, html.EscapeString(err.Error()))
		}
		return fmt.Sprintf("⭐ Added %s to your watchlist.", shown)
	}

	removed, err := s.Watchlist.Remove(ctx, owner, symbol)
	switch {
	case err != nil:
		return fmt.Sprintf("❌ Could not remove %s: %s", shown, html.EscapeString(err.Error()))
	case !removed:
		return fmt.Sprintf("%s is not in your watchlist.", shown)
	default:
		return fmt.Sprintf("Removed %s from your watchlist.", shown)
	}
}
