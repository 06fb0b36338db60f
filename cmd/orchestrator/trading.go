package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ajitpratap0/cryptocascade/internal/alerts"
	"github.com/ajitpratap0/cryptocascade/internal/cascade"
	"github.com/ajitpratap0/cryptocascade/internal/config"
	"github.com/ajitpratap0/cryptocascade/internal/db"
	"github.com/ajitpratap0/cryptocascade/internal/exchange"
	"github.com/ajitpratap0/cryptocascade/internal/fees"
	"github.com/ajitpratap0/cryptocascade/internal/market"
	"github.com/ajitpratap0/cryptocascade/internal/metrics"
	"github.com/ajitpratap0/cryptocascade/internal/signals"
	"github.com/ajitpratap0/cryptocascade/internal/signals/strategies"
	"github.com/ajitpratap0/cryptocascade/internal/trading"
	"github.com/ajitpratap0/cryptocascade/internal/treasury"
	"github.com/ajitpratap0/cryptocascade/internal/treasury/journal"
)

// runTradingOrchestrator wires the full decision-to-settlement pipeline
// (consensus engine, slot cascade, fee-safe executor, treasury router) and
// runs it until interrupted.
func runTradingOrchestrator(args []string) {
	fs := flag.NewFlagSet("trading", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (defaults to ./configs/config.yaml)")
	_ = fs.Parse(args)

	// Console output until the configured level/format takes over below.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	config.InitLogger(cfg.App.LogLevel, "console")

	// Vault is optional: when VAULT_ENABLED is set, database/Redis/exchange
	// credentials are pulled from Vault and override whatever the config
	// file or environment provided.
	if err := config.LoadSecretsFromVault(context.Background(), cfg, config.GetVaultConfigFromEnv()); err != nil {
		log.Error().Err(err).Msg("failed to load secrets from Vault")
		os.Exit(1)
	}

	venue := cfg.Trading.Exchange
	if _, ok := cfg.Exchanges[venue]; !ok {
		log.Error().Str("venue", venue).Msg("trading.exchange has no matching entry under exchanges")
		os.Exit(1)
	}

	feeModel := fees.NewModel(cfg.Exchanges, cfg.Cascade.SafetyBufferPct)
	slots := cascade.NewUniformCascade(cfg.Cascade.SlotCount, decimal.NewFromFloat(cfg.Cascade.ValorBase))

	// The settlement journal persists every treasury settlement so a crash
	// can replay them on restart, idempotent by settlementId. Postgres is
	// optional for paper trading: if DATABASE_URL isn't set we log and run
	// with an in-memory-only router instead of failing.
	var router *treasury.Router
	database, dbErr := db.New(context.Background())
	if dbErr != nil {
		log.Warn().Err(dbErr).Msg("no database configured, settlement journal disabled for this run")
		router = treasury.NewRouter(slots, nil)
	} else {
		j := journal.New(database.Pool())
		if err := j.Migrate(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to migrate settlement journal")
			os.Exit(1)
		}
		// Replay runs against the router this process will actually serve:
		// it rebuilds slot capitals, the treasury balance, the settlement
		// history, and the settlementId idempotency set in one pass.
		// Re-journaling during replay is a no-op (Append upserts with
		// ON CONFLICT DO NOTHING).
		router = treasury.NewRouter(slots, j)
		if replayed, err := j.Replay(context.Background(), router); err != nil {
			log.Error().Err(err).Msg("failed to replay settlement journal")
			os.Exit(1)
		} else if replayed > 0 {
			log.Info().Int("count", replayed).Msg("replayed settlement journal records")
		}
	}

	xch, err := buildExchange(cfg, venue, database)
	if err != nil {
		log.Error().Err(err).Str("venue", venue).Msg("failed to build exchange client")
		os.Exit(1)
	}

	marketData := trading.NewBinanceMarketData(venue, cfg.Exchanges[venue].APIKey, cfg.Exchanges[venue].SecretKey)
	if cfg.Redis.Host != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		marketData.WithPriceCache(market.NewRedisPriceCache(redisClient, time.Duration(cfg.Trading.StepIntervalMS)*time.Millisecond))
	}

	store := trading.NewPositionStore()
	if database != nil {
		store.WithPersistence(database)
	}
	executor := trading.NewPositionExecutor(
		log.Logger,
		map[string]exchange.Exchange{venue: xch},
		feeModel,
		slots,
		router,
		store,
		marketData,
		cfg.Risk.MaxRiskPerTradePct,
	)

	engine, err := buildConsensusEngine(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to build consensus engine")
		os.Exit(1)
	}

	notifier := trading.NewAlertNotifier(buildAlertManager())
	executor.SetNotifier(notifier)

	orchCfg := trading.OrchestratorConfig{
		Venue:                  venue,
		Symbols:                cfg.Trading.Symbols,
		StepInterval:           time.Duration(cfg.Trading.StepIntervalMS) * time.Millisecond,
		MinConfidence:          cfg.Risk.MinConfidence,
		MaxConcurrentPositions: cfg.Risk.MaxConcurrentPositions,
		MinFreeCapital:         decimal.NewFromFloat(cfg.Risk.MinPositionSizeUsd),
	}
	snapshotFn := func(symbol string) (signals.MarketSnapshot, error) {
		return marketData.Snapshot(context.Background(), symbol)
	}
	orch := trading.NewOrchestrator(log.Logger, orchCfg, engine, slots, executor, snapshotFn, notifier)

	log.Info().
		Str("venue", venue).
		Str("mode", cfg.Trading.Mode).
		Strs("symbols", cfg.Trading.Symbols).
		Int("slot_count", cfg.Cascade.SlotCount).
		Msg("starting trading orchestrator")

	metricsServer := metrics.NewServer(config.MetricsPortTrading, log.Logger)
	if err := metricsServer.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start metrics server")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Risk.EnableKellySizing && database != nil {
		startKellyRecalibration(ctx, database, venue, cfg, executor)
	}

	// Gauge metrics (P&L, drawdown, Sharpe) are recomputed from the
	// positions table on a timer; everything else is recorded inline.
	if database != nil {
		updater := metrics.NewUpdater(database.Pool(), time.Minute)
		go updater.Start(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- orch.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("trading orchestrator exited with error")
			os.Exit(2)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown failed")
	}

	if database != nil {
		database.Close()
	}
	log.Info().Msg("trading orchestrator shutdown complete")
}

// startKellyRecalibration periodically recomputes the venue's risk-per-trade
// percentage from its closed-position history and feeds it into executor, so
// sizing tracks the venue's actual realized edge instead of staying pinned
// at cfg.Risk.MaxRiskPerTradePct forever.
func startKellyRecalibration(ctx context.Context, database *db.DB, venue string, cfg *config.Config, executor *trading.PositionExecutor) {
	kelly := trading.NewKellyCalculator(database)
	interval := time.Duration(cfg.Risk.KellyRecalibrateMinutes) * time.Minute

	recalibrate := func() {
		stats, err := kelly.CalculateStats(ctx, venue)
		if err != nil {
			log.Warn().Err(err).Str("venue", venue).Msg("kelly recalibration: failed to load trading stats")
			return
		}
		riskPct := kelly.CalculateRiskPct(stats, cfg.Risk.KellyFraction)
		executor.SetRiskPerTradePct(riskPct)
	}

	go func() {
		recalibrate()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				recalibrate()
			}
		}
	}()
}

// buildExchange constructs the venue's Exchange port per cfg.Trading.Mode.
// database may be nil; both MockExchange and BinanceExchange treat that as
// "no persistence", matching their existing nil-safe guards.
func buildExchange(cfg *config.Config, venue string, database *db.DB) (exchange.Exchange, error) {
	venueCfg := cfg.Exchanges[venue]
	switch strings.ToLower(cfg.Trading.Mode) {
	case "live":
		return exchange.NewBinanceExchange(exchange.BinanceConfig{
			APIKey:    venueCfg.APIKey,
			SecretKey: venueCfg.SecretKey,
			Testnet:   venueCfg.Testnet,
		}, database)
	default:
		return exchange.NewMockExchangeWithFees(database, venueCfg.Fees), nil
	}
}

// buildAgent maps a configured agent's Type string to its constructor,
// matching the five strategies implemented in internal/signals/strategies.
func buildAgent(agentCfg config.StrategyAgentConfig) (signals.AgentSignal, error) {
	switch agentCfg.Type {
	case "scalping":
		return strategies.NewScalpingAgent(agentCfg.ID, agentCfg.Period), nil
	case "trend":
		return strategies.NewTrendAgent(agentCfg.ID, 0, 0), nil
	case "mean_reversion":
		return strategies.NewMeanReversionAgent(agentCfg.ID, agentCfg.Period), nil
	case "momentum":
		return strategies.NewMomentumAgent(agentCfg.ID, 0, 0, 0), nil
	case "breakout":
		return strategies.NewBreakoutAgent(agentCfg.ID, agentCfg.Period), nil
	default:
		return nil, fmt.Errorf("unknown agent type %q for agent %q", agentCfg.Type, agentCfg.ID)
	}
}

// buildConsensusEngine registers every configured agent against a fresh
// Engine with the configured min-voters/threshold gate.
func buildConsensusEngine(cfg *config.Config) (*signals.Engine, error) {
	engine := signals.NewEngine(cfg.Agents.MinAgentsVoting, cfg.Agents.ConsensusThreshold)
	for _, agentCfg := range cfg.Agents.Agents {
		agent, err := buildAgent(agentCfg)
		if err != nil {
			return nil, err
		}
		weight := agentCfg.Weight
		if weight <= 0 {
			weight = 1.0
		}
		engine.Register(agent, weight)
	}
	return engine, nil
}

// buildAlertManager always logs; it also wires a Telegram channel when
// TELEGRAM_BOT_TOKEN is present.
func buildAlertManager() *alerts.Manager {
	alerters := []alerts.Alerter{alerts.NewLogAlerter()}

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		var chatIDs []int64
		for _, raw := range strings.Split(os.Getenv("TELEGRAM_CHAT_IDS"), ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				chatIDs = append(chatIDs, id)
			}
		}
		telegramAlerter, err := alerts.NewTelegramAlerter(token, chatIDs)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize telegram alerter, continuing without it")
		} else {
			alerters = append(alerters, telegramAlerter)
		}
	}

	return alerts.NewManager(alerters...)
}
