package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fractional-trader/config"
	"fractional-trader/internal/broker/alpaca"
	"fractional-trader/internal/journal"
	"fractional-trader/internal/logger"
	"fractional-trader/internal/metrics"
	"fractional-trader/internal/model"
	"fractional-trader/internal/notification"
	"fractional-trader/internal/risk"
	"fractional-trader/internal/store/barcache"
	"fractional-trader/internal/trader"
)

func main() {
	cfg := config.Default()

	var (
		configPath = flag.String("config", "", "path to YAML config file")
		dryRun     = flag.Bool("dry-run", false, "compute and print the plan without placing orders")
		logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Float64Var(&cfg.Capital, "capital", cfg.Capital, "total capital to allocate")
	flag.Float64Var(&cfg.Capital, "c", cfg.Capital, "shorthand for -capital")
	flag.Float64Var(&cfg.MaxPrice, "max-price", cfg.MaxPrice, "maximum share price for universe inclusion")
	flag.Float64Var(&cfg.MaxPrice, "m", cfg.MaxPrice, "shorthand for -max-price")
	flag.Float64Var(&cfg.MinAvgVolume, "min-avg-volume", cfg.MinAvgVolume, "minimum average daily volume")
	flag.IntVar(&cfg.EquitiesTop, "equities-top", cfg.EquitiesTop, "number of long positions to open")
	flag.IntVar(&cfg.EquitiesTop, "e", cfg.EquitiesTop, "shorthand for -equities-top")
	flag.IntVar(&cfg.ShortsTop, "shorts-top", cfg.ShortsTop, "number of short positions to open")
	flag.IntVar(&cfg.ShortsTop, "s", cfg.ShortsTop, "shorthand for -shorts-top")
	flag.Float64Var(&cfg.ZScoreThreshold, "zscore-threshold", cfg.ZScoreThreshold, "z-score boundary between long and short classification")
	flag.Float64Var(&cfg.ZScoreThreshold, "z", cfg.ZScoreThreshold, "shorthand for -zscore-threshold")
	flag.Float64Var(&cfg.TrailPct, "trail-pct", cfg.TrailPct, "trailing stop percentage")
	flag.Float64Var(&cfg.TrailPct, "t", cfg.TrailPct, "shorthand for -trail-pct")
	flag.IntVar(&cfg.TimeExitMin, "time-exit-min", cfg.TimeExitMin, "minutes after entry to force-close positions")
	flag.Parse()

	// File values load over the defaults; flags passed after parsing win,
	// so re-parse once the file is in.
	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config file: %v\n", err)
			os.Exit(1)
		}
		flag.Parse()
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init("trader", parseLevel(*logLevel))

	creds, err := config.LoadCredentials()
	if err != nil {
		log.Error("credentials", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	client := alpaca.NewClient(alpaca.Config{
		APIKey:    creds.APIKey,
		APISecret: creds.APISecret,
	})

	deps := trader.Deps{
		Data: client,
		Log:  log,
	}

	if cfg.RedisAddr != "" {
		cache, err := barcache.New(ctx, cfg.RedisAddr, "", log)
		if err != nil {
			log.Warn("bar cache unavailable, fetching uncached", slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			deps.Cache = cache
		}
	}

	if *dryRun {
		runDryRun(ctx, cfg, deps, log)
		return
	}

	runID := logger.NewRunID(time.Now())
	log = logger.WithRun(log, runID)
	deps.Log = log
	deps.Exec = client
	deps.Risk = risk.NewManager(log)
	deps.Metrics = metrics.New()

	if cfg.JournalPath != "" {
		j, err := journal.New(cfg.JournalPath)
		if err != nil {
			log.Error("journal open failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer j.Close()
		deps.Journal = j
	}

	health := metrics.NewHealthStatus()
	if cfg.MetricsAddr != "" {
		srv := metrics.NewServer(cfg.MetricsAddr, health)
		srv.Start()
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			srv.Stop(shutCtx)
		}()
	}

	// Trailing-stop fills come back on the trade-updates stream; closing the
	// book entry there keeps the time-exit sweep from double-closing.
	stream := alpaca.NewStream(alpaca.Config{APIKey: creds.APIKey, APISecret: creds.APISecret}, log)
	stream.OnUpdate = func(u alpaca.TradeUpdate) {
		if u.Event != "fill" {
			return
		}
		pos, ok := deps.Risk.Get(u.Symbol)
		if !ok || pos.State != model.StateOpen {
			return
		}
		// A fill on the opposite side is the stop leg completing.
		if (pos.Side == model.SideLong) == (u.Side == "sell") {
			if deps.Risk.Close(u.Symbol) {
				log.Info("position closed by stop fill",
					slog.String("symbol", u.Symbol),
					slog.Float64("price", u.Price))
				deps.Metrics.PositionsClosed.WithLabelValues("stop_fill").Inc()
			}
		}
	}
	go func() {
		health.SetStreamOK(true)
		stream.Run(ctx)
		health.SetStreamOK(false)
	}()

	var notifier notification.Notifier = notification.NewLogNotifier(log)
	if cfg.NotifyWebhookURL != "" {
		notifier = notification.NewWebhookNotifier(cfg.NotifyWebhookURL)
	}

	runner := trader.NewRunner(cfg, deps)
	summary, err := runner.Run(ctx, false)
	health.SetLastRunAt(time.Now())
	if err != nil {
		health.SetDataProviderOK(false)
		log.Error("run failed", slog.String("error", err.Error()))
		notifier.Send(ctx, notification.Alert{
			Level:   notification.AlertCritical,
			Title:   "run failed",
			Message: err.Error(),
		})
		os.Exit(1)
	}
	health.SetDataProviderOK(true)

	level := notification.AlertInfo
	if summary.OrdersFailed > 0 {
		level = notification.AlertWarning
	}
	if err := notifier.Send(ctx, notification.Alert{
		Level: level,
		Title: "run complete",
		Message: fmt.Sprintf("%d orders placed, %d failed, %.1f%% utilization",
			summary.OrdersPlaced, summary.OrdersFailed, summary.Utilization*100),
	}); err != nil {
		log.Warn("notification failed", slog.String("error", err.Error()))
	}

	log.Info("run complete",
		slog.Int("eligible", summary.EligibleSymbols),
		slog.Int("skipped", summary.SkippedSymbols),
		slog.Int("longs", summary.SelectedLongs),
		slog.Int("shorts", summary.SelectedShorts),
		slog.Int("orders_placed", summary.OrdersPlaced),
		slog.Int("orders_failed", summary.OrdersFailed),
		slog.Float64("utilization", summary.Utilization))

	// Hold the process until every position is past its time exit, sweeping
	// once a minute. Ctrl-C leaves positions to their broker-side stops.
	if summary.OrdersPlaced > 0 {
		holdUntilClosed(ctx, runner, deps.Risk, log)
	}
}

func runDryRun(ctx context.Context, cfg config.Config, deps trader.Deps, log *slog.Logger) {
	proj := trader.NewProjector(cfg, deps)
	plan, err := proj.Project(ctx)
	if err != nil {
		log.Error("projection failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	fmt.Print(proj.Render(plan))
}

func holdUntilClosed(ctx context.Context, runner *trader.Runner, rm *risk.Manager, log *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("exiting with positions open", slog.Int("open", len(rm.OpenPositions())))
			return
		case <-ticker.C:
			if n := runner.CloseDuePositions(ctx, time.Now()); n > 0 {
				log.Info("time-exit sweep", slog.Int("closed", n))
			}
			if len(rm.OpenPositions()) == 0 {
				log.Info("all positions closed")
				return
			}
		}
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
