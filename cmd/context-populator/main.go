package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Vodeneev/adnbet/internal/engine/rest"
	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/health"
	"github.com/Vodeneev/adnbet/internal/pkg/health/handlers"
	"github.com/Vodeneev/adnbet/internal/pkg/logging"
	"github.com/Vodeneev/adnbet/internal/pkg/metrics"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
	"github.com/Vodeneev/adnbet/internal/pkg/validation"
)

const (
	defaultConfigPath = "configs/production.yaml"
)

func main() {
	fmt.Println("Starting Context Populator...")

	var configPath string
	var once bool

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.BoolVar(&once, "once", false, "Run a single populate pass and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}

	_, logCloser, err := logging.Setup(cfg.Logging, "context-populator")
	if err != nil {
		log.Printf("Warning: failed to setup logging: %v, continuing with default logger", err)
	} else {
		defer logCloser.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, stopping populator...")
		cancel()
	}()

	engineMetrics := metrics.NewEngineMetrics()
	stores, err := storage.Open(ctx, cfg, engineMetrics)
	if err != nil {
		slog.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	calc := rest.NewCalculator(stores.History, stores.RestCache, cfg.Rest, cfg.Engine.SourceDataVersion)
	populator := rest.NewPopulator(stores.Odds, stores.Contexts, calc, validation.NewValidator(), cfg.Populator, engineMetrics)

	if once {
		if err := populator.Run(ctx, time.Now().UTC()); err != nil {
			slog.Error("Populate failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Metrics.Enabled {
		health.Run(ctx, cfg.Metrics.ListenAddr, "context-populator", health.NewMux(engineMetrics.Registry(), nil,
			handlers.Check{Name: "stores", Probe: stores.Ping}))
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = c.AddFunc(cfg.Populator.Schedule, func() {
		start := time.Now()
		if err := populator.Run(ctx, start.UTC()); err != nil {
			slog.Error("Populate failed", "error", err)
			return
		}
		slog.Info("Populate pass finished", "duration", time.Since(start))
	})
	if err != nil {
		slog.Error("Invalid populator schedule", "schedule", cfg.Populator.Schedule, "error", err)
		os.Exit(1)
	}

	c.Start()
	slog.Info("Populator scheduled", "schedule", cfg.Populator.Schedule)
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()
	slog.Info("Context Populator stopped")
}
