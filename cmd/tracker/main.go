package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/adelgado/qlines/config"
	"github.com/adelgado/qlines/internal/adapters/betsapi"
	"github.com/adelgado/qlines/internal/adapters/metrics"
	"github.com/adelgado/qlines/internal/adapters/notify"
	"github.com/adelgado/qlines/internal/adapters/storage"
	"github.com/adelgado/qlines/internal/application/roster"
	"github.com/adelgado/qlines/internal/application/tracker"
	"github.com/adelgado/qlines/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one poll cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full watchboard table (default: compact 1-line)")
	report := flag.Bool("report", false, "print line-vs-final accuracy report and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	store, err := storage.NewSQLiteStore(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()

	notifier := notify.NewConsole(*table)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *report {
		runReport(ctx, store, notifier)
		return
	}

	if cfg.Source.Token == "" {
		slog.Error("no API token configured, set BETSAPI_KEY")
		os.Exit(1)
	}

	slog.Info("qlines starting",
		"config", *configPath,
		"bookmaker", cfg.Source.Bookmaker,
		"dsn", cfg.Storage.DSN,
		"once", *once,
	)

	client := betsapi.NewClient(cfg.Source.BaseURL, cfg.Source.Token, cfg.Source.TargetLeagues, cfg.Source.BlockedLeagues)

	var mets ports.Metrics = metrics.Nop{}
	if cfg.Metrics.Enabled && !*once {
		m := metrics.New()
		go m.Serve(ctx, cfg.Metrics.Listen)
		mets = m
	}

	if !*once {
		refresher := roster.New(client, store, cfg.RosterRefresh())
		go refresher.Run(ctx)
	}

	t := tracker.New(tracker.Config{
		Thresholds: tracker.Thresholds{
			QuarterLength: cfg.Tracker.QuarterLengthSeconds,
			OpenerWindow:  cfg.Tracker.OpenerWindowSeconds,
			QuarterEnd:    cfg.Tracker.QuarterEndSeconds,
		},
		Idle:       cfg.IdleInterval(),
		FinalGrace: cfg.FinalGrace(),
		Bookmaker:  cfg.Source.Bookmaker,
		Once:       *once,
	}, client, store, notifier, mets)

	if err := t.Run(ctx); err != nil {
		slog.Error("tracker exited with error", "err", err)
		os.Exit(1)
	}

	slog.Info("qlines stopped cleanly")
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
