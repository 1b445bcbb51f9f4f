package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Vodeneev/adnbet/internal/engine/odds"
	"github.com/Vodeneev/adnbet/internal/engine/orchestrator"
	"github.com/Vodeneev/adnbet/internal/engine/profile"
	"github.com/Vodeneev/adnbet/internal/engine/recorder"
	"github.com/Vodeneev/adnbet/internal/engine/rest"
	"github.com/Vodeneev/adnbet/internal/pkg/config"
	"github.com/Vodeneev/adnbet/internal/pkg/health"
	"github.com/Vodeneev/adnbet/internal/pkg/health/handlers"
	"github.com/Vodeneev/adnbet/internal/pkg/logging"
	"github.com/Vodeneev/adnbet/internal/pkg/metrics"
	"github.com/Vodeneev/adnbet/internal/pkg/notify"
	"github.com/Vodeneev/adnbet/internal/pkg/performance"
	"github.com/Vodeneev/adnbet/internal/pkg/storage"
	"github.com/Vodeneev/adnbet/internal/pkg/validation"
)

const (
	defaultConfigPath = "configs/production.yaml"
)

func main() {
	fmt.Println("Starting Decision Engine...")

	var configPath string
	var replayMatch string
	var sourceVersion int64

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = defaultConfigPath
	}

	flag.StringVar(&configPath, "config", defaultConfig, "Path to config file (can be set via CONFIG_PATH env var)")
	flag.StringVar(&replayMatch, "replay", "", "Replay the stored snapshot of this match id instead of running")
	flag.Int64Var(&sourceVersion, "source-version", -1, "Override engine.source_data_version for this run")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyEnv(cfg)
	if sourceVersion >= 0 {
		cfg.Engine.SourceDataVersion = sourceVersion
	}

	_, logCloser, err := logging.Setup(cfg.Logging, "decision-engine")
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
		slog.Info("Received shutdown signal, stopping decision engine...")
		cancel()
	}()

	engineMetrics := metrics.NewEngineMetrics()
	stores, err := storage.Open(ctx, cfg, engineMetrics)
	if err != nil {
		slog.Error("Failed to open stores", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			slog.Warn("Error closing stores", "error", err)
		}
	}()

	if replayMatch != "" {
		if err := replay(ctx, cfg, stores, replayMatch); err != nil {
			slog.Error("Replay failed", "match_id", replayMatch, "error", err)
			os.Exit(1)
		}
		return
	}

	validator := validation.NewValidator()
	sanitizer := validation.NewSanitizer()
	profiles, err := profile.Load(ctx, stores.Profiles, cfg.Engine.SourceDataVersion, validator, sanitizer)
	if err != nil {
		slog.Error("Failed to load profiles", "error", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram)
		if err != nil {
			slog.Warn("Telegram disabled", "error", err)
		} else {
			notifier = tg
		}
	}
	defer notifier.Stop()

	tracker := performance.NewTracker(time.Now())
	if cfg.Metrics.Enabled {
		health.Run(ctx, cfg.Metrics.ListenAddr, "decision-engine", health.NewMux(engineMetrics.Registry(), tracker,
			handlers.Check{Name: "stores", Probe: stores.Ping}))
	}

	orch, err := orchestrator.New(cfg, orchestrator.Deps{
		Profiles:   profiles,
		Contexts:   stores.Contexts,
		Odds:       stores.Odds,
		Rest:       rest.NewCalculator(stores.History, stores.RestCache, cfg.Rest, cfg.Engine.SourceDataVersion),
		Normalizer: odds.NewNormalizer(cfg.Odds, sanitizer),
		Recorder:   recorder.New(stores.Snapshots),
		Metrics:    engineMetrics,
		Tracker:    tracker,
		Notifier:   notifier,
	})
	if err != nil {
		slog.Error("Failed to build orchestrator", "error", err)
		os.Exit(1)
	}

	summary, err := orch.RunUpcoming(ctx, time.Now().UTC())
	if err != nil {
		slog.Error("Decision run finished with errors", "error", err, "matches", summary.TotalMatches)
		os.Exit(1)
	}
	slog.Info("Decision Engine stopped", "matches", summary.TotalMatches, "bets", summary.Bets)
}

// replay re-derives a stored decision with the configuration recorded in it.
func replay(ctx context.Context, cfg *config.Config, stores *storage.Stores, matchID string) error {
	snap, err := recorder.New(stores.Snapshots).Get(ctx, matchID)
	if err != nil {
		return err
	}
	if snap == nil {
		return fmt.Errorf("no snapshot recorded for %s", matchID)
	}

	params, err := config.ParseDecisionParams(snap.ConfigSnapshot)
	if err != nil {
		slog.Warn("Snapshot has no usable config, replaying with the current one", "error", err)
		params = cfg.DecisionParams()
	}
	pipeline, err := orchestrator.NewPipeline(params)
	if err != nil {
		return err
	}

	diff, err := recorder.Replay(ctx, pipeline, snap)
	if err != nil {
		return err
	}
	if !diff.Equal() {
		return fmt.Errorf("replay differs: %s", diff)
	}
	if diff.Failed {
		slog.Info("Snapshot was skipped on error, nothing to replay", "match_id", matchID, "reason", diff.Stored.Reason)
		return nil
	}
	slog.Info("Replay identical",
		"match_id", matchID,
		"decision", diff.Stored.Decision,
		"market", diff.Stored.Market,
		"stake", diff.Stored.Stake)
	return nil
}

// applyEnv lets secrets come from the environment instead of the config file.
func applyEnv(cfg *config.Config) {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Postgres.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		if chatID, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.Telegram.ChatID = chatID
		}
	}
}
