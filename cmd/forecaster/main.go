package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"StockForecaster/internal/api"
	"StockForecaster/internal/cache"
	"StockForecaster/internal/collector"
	"StockForecaster/internal/config"
	"StockForecaster/internal/forecast"
	"StockForecaster/internal/logger"
	"StockForecaster/internal/metrics"
	"StockForecaster/internal/model"
	"StockForecaster/internal/notifier"
	"StockForecaster/internal/recorder"
	"StockForecaster/internal/scheduler"
	"StockForecaster/internal/service"
	"StockForecaster/internal/watchlist"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

func main() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	cfgPath := flag.String("config", defaultConfig, "path to the YAML config file")
	symbol := flag.String("symbol", "", "forecast this symbol once, print a table and exit")
	days := flag.Int("days", 0, "forecast horizon in calendar days (default from config)")
	simulate := flag.String("simulate", "", "forecast a simulated market: bull, bear, sideways or volatile")
	volatility := flag.Int("volatility", collector.DefaultVolatility, "volatility 0-100 for -simulate")
	runNow := flag.Bool("run-now", os.Getenv("RUN_ON_START") == "true", "run the daily forecast on start")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *simulate != "" {
		cfg.DataSource.Provider = "simulated"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	logCloser, err := logger.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *simulate != "" || *symbol != "" {
		if err := runOnce(ctx, cfg, *symbol, *simulate, *volatility, *days, os.Stdout); err != nil {
			log.Error().Err(err).Msg("forecast failed")
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, cfg, *runNow); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

// runOnce forecasts a single symbol or scenario and prints the result table.
func runOnce(ctx context.Context, cfg *config.Config, symbol, scenario string, volatility, days int, w io.Writer) error {
	svc, cleanup, err := buildService(ctx, cfg, recorder.NewNoopRecorder(), nil)
	if err != nil {
		return err
	}
	defer cleanup()

	var report *service.Report
	if scenario != "" {
		report, err = svc.Simulate(ctx, service.SimulationRequest{
			Scenario:   model.Scenario(scenario),
			Volatility: volatility,
			Days:       days,
			Seed:       cfg.Forecast.Seed,
		})
	} else {
		report, err = svc.Forecast(ctx, service.Request{Symbol: symbol, Days: days})
	}
	if err != nil {
		return err
	}
	return notifier.PrintForecastTable(w, report)
}

// serve runs the HTTP API, the scheduler and Telegram polling until a signal arrives.
func serve(ctx context.Context, cfg *config.Config, runNow bool) error {
	log.Info().Str("provider", cfg.DataSource.Provider).Msg("StockForecaster starting")

	rec, wl, err := openStores(cfg.Database.SQLitePath)
	if err != nil {
		return err
	}
	defer rec.Close()
	defer wl.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	svc, cleanup, err := buildService(ctx, cfg, rec, m)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := api.NewServer(cfg.Server, api.NewHandler(svc, wl), m, prometheus.DefaultGatherer)
	srv.Start()

	var (
		n  notifier.Notifier = notifier.LogNotifier{}
		tn *notifier.TelegramNotifier
	)
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, svc, wl, n, cfg.DataSource.Symbols)
	if cfg.Schedule.Enabled {
		if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}
	if runNow {
		log.Info().Msg("running daily forecast now")
		go sched.RunDailyNow()
	}

	log.Info().Msg("StockForecaster is running. Press Ctrl+C to stop.")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	return nil
}

// openStores opens the forecast history and the watchlist on one SQLite file.
// Without a path both fall back to in-process storage.
func openStores(path string) (recorder.Recorder, *watchlist.Store, error) {
	if path == "" {
		wl, err := watchlist.OpenFile(":memory:")
		if err != nil {
			return nil, nil, err
		}
		return recorder.NewNoopRecorder(), wl, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		wl, werr := watchlist.OpenFile(":memory:")
		if werr != nil {
			return nil, nil, werr
		}
		return recorder.NewNoopRecorder(), wl, nil
	}
	wl, err := watchlist.Open(sr.DB())
	if err != nil {
		sr.Close()
		return nil, nil, err
	}
	return sr, wl, nil
}

// buildService assembles fetcher, cache and engine. The cleanup func
// releases the cache backend.
func buildService(ctx context.Context, cfg *config.Config, rec recorder.Recorder, m *metrics.Recorder) (*service.ForecastService, func(), error) {
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source ready")

	cleanup := func() {}
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		fetcher = collector.NewCachedFetcher(fetcher, rc, cfg.Cache.TTL)
		cleanup = func() { rc.Close() }
	case "memory":
		mc := cache.NewMemoryCache(cache.WithMaxSize(cfg.Cache.MaxEntries))
		fetcher = collector.NewCachedFetcher(fetcher, mc, cfg.Cache.TTL)
		go purgeLoop(ctx, mc, cfg.Cache.TTL)
	}

	engine, err := forecast.New(cfg.Forecast.Options)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("forecast options: %w", err)
	}

	svc, err := service.New(service.Deps{
		Collector:      collector.NewCollector(fetcher),
		Engine:         engine,
		Recorder:       rec,
		Metrics:        m,
		HistoryDays:    cfg.Forecast.HistoryDays,
		DefaultHorizon: cfg.Forecast.DefaultHorizon,
		MarketSymbols:  cfg.DataSource.MarketSymbols,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return svc, cleanup, nil
}

func newFetcher(cfg *config.Config) (collector.Fetcher, error) {
	switch cfg.DataSource.Provider {
	case "alphavantage":
		return collector.NewAlphaVantageFetcher(cfg.DataSource.APIKey, cfg.DataSource.RequestsPerMinute), nil
	case "yahoo":
		return collector.NewYahooFetcher(cfg.DataSource.Proxy), nil
	case "simulated":
		return collector.NewSimulatedFetcher(model.ScenarioBull, collector.DefaultVolatility, cfg.Forecast.Seed)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.DataSource.Provider)
	}
}

// purgeLoop drops expired cache entries so idle keys do not pin memory.
func purgeLoop(ctx context.Context, mc *cache.MemoryCache, every time.Duration) {
	if every <= 0 {
		every = collector.DefaultCacheTTL
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mc.Purge(); n > 0 {
				log.Debug().Int("entries", n).Msg("cache purged")
			}
		}
	}
}
