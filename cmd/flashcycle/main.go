// Package main is the entry point for the flash-loan cycle arbitrage bot.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	chainapp "github.com/flashcycle/flashcycle/business/chain/app"
	chaindomain "github.com/flashcycle/flashcycle/business/chain/domain"
	chaineth "github.com/flashcycle/flashcycle/business/chain/infra/ethereum"
	discoveryapp "github.com/flashcycle/flashcycle/business/discovery/app"
	executionapp "github.com/flashcycle/flashcycle/business/execution/app"
	executioneth "github.com/flashcycle/flashcycle/business/execution/infra/ethereum"
	"github.com/flashcycle/flashcycle/business/execution/infra/postgres"
	liquidityapp "github.com/flashcycle/flashcycle/business/liquidity/app"
	liquiditydomain "github.com/flashcycle/flashcycle/business/liquidity/domain"
	"github.com/flashcycle/flashcycle/business/liquidity/infra/analytics"
	"github.com/flashcycle/flashcycle/business/liquidity/infra/snapshot"
	quotingapp "github.com/flashcycle/flashcycle/business/quoting/app"
	quotingeth "github.com/flashcycle/flashcycle/business/quoting/infra/ethereum"
	routingapp "github.com/flashcycle/flashcycle/business/routing/app"
	"github.com/flashcycle/flashcycle/internal/apm"
	"github.com/flashcycle/flashcycle/internal/config"
	"github.com/flashcycle/flashcycle/internal/health"
	"github.com/flashcycle/flashcycle/internal/kvstore"
	"github.com/flashcycle/flashcycle/internal/logger"
	"github.com/flashcycle/flashcycle/internal/metrics"
	"github.com/flashcycle/flashcycle/internal/ratelimit"
	"github.com/flashcycle/flashcycle/internal/token"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flashcycle %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}
	log := logger.New(os.Stderr, logLevel, cfg.App.Name, nil)
	log.Info(ctx, "starting flashcycle",
		"version", version,
		"environment", cfg.App.Environment,
		"chain_id", cfg.Chain.ChainID,
	)

	// Observability
	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer healthServer.Stop(ctx)

	// Chain infrastructure
	pool, err := chaineth.NewPool(ctx, cfg.Chain.RPCURLs, log)
	if err != nil {
		return fmt.Errorf("failed to connect rpc pool: %w", err)
	}
	defer pool.Close()

	subCfg := chaineth.DefaultSubscriberConfig(cfg.Chain.WebSocketURL)
	if cfg.Chain.PollInterval > 0 {
		subCfg.PollInterval = cfg.Chain.PollInterval
	}
	if cfg.Chain.ReconnectDelay > 0 {
		subCfg.ReconnectDelay = cfg.Chain.ReconnectDelay
	}
	if cfg.Chain.BlockBuffer > 0 {
		subCfg.BufferSize = cfg.Chain.BlockBuffer
	}
	subscriber, err := chaineth.NewSubscriber(subCfg, pool, log)
	if err != nil {
		return fmt.Errorf("failed to create block subscriber: %w", err)
	}
	defer subscriber.Close()

	gasCfg := chaineth.DefaultGasOracleConfig()
	if ceiling := cfg.Arbitrage.GasPriceCeiling(); ceiling != nil {
		gasCfg.MaxGasPrice = ceiling
	}
	gasOracle, err := chaineth.NewGasOracle(gasCfg, pool, log)
	if err != nil {
		return fmt.Errorf("failed to create gas oracle: %w", err)
	}
	defer gasOracle.Close()

	chainService := chainapp.NewChainService(subscriber, gasOracle)
	healthServer.RegisterCheck("chain", func(ctx context.Context) (bool, string) {
		state := chainService.ConnectionState()
		return state != chaindomain.StateDisconnected, string(state)
	})

	// Cache store
	var store kvstore.Store
	if cfg.Cache.Addr != "" {
		store, err = kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return fmt.Errorf("failed to connect redis: %w", err)
		}
		log.Info(ctx, "using redis cache store", "addr", cfg.Cache.Addr)
	} else {
		store = kvstore.NewMemoryStore()
		log.Info(ctx, "using in-memory cache store")
	}
	defer store.Close()

	// Token universe and start amounts
	registry := token.DefaultRegistry()
	tokens := make([]token.Token, 0, len(cfg.Arbitrage.Tokens))
	for _, symbol := range cfg.Arbitrage.Tokens {
		t, ok := registry.GetBySymbol(symbol)
		if !ok {
			return fmt.Errorf("unknown token symbol %q", symbol)
		}
		tokens = append(tokens, t)
	}

	startAmounts := make(map[string]*big.Int, len(cfg.Arbitrage.StartAmounts))
	for symbol, human := range cfg.Arbitrage.StartAmounts {
		t, ok := registry.GetBySymbol(symbol)
		if !ok {
			return fmt.Errorf("start amount for unknown token %q", symbol)
		}
		amount, err := token.ParseAmount(t, human)
		if err != nil {
			return fmt.Errorf("invalid start amount for %s: %w", symbol, err)
		}
		startAmounts[symbol] = amount
	}

	// Cycle discovery
	enumerator := discoveryapp.NewEnumerator(store, log)
	cycles, err := enumerator.Enumerate(ctx, tokens, cfg.Arbitrage.CycleLength)
	if err != nil {
		return fmt.Errorf("failed to enumerate cycles: %w", err)
	}
	log.Info(ctx, "token cycles enumerated",
		"tokens", len(tokens), "cycle_length", cfg.Arbitrage.CycleLength, "cycles", cycles.Total())

	// Pool metadata sources
	sources := make([]liquidityapp.VenueSource, 0, len(cfg.Venues))
	for _, vc := range cfg.Venues {
		venue := liquiditydomain.Venue{
			Name:     vc.Name,
			Protocol: vc.Protocol,
			Factory:  vc.FactoryAddressHex(),
			Router:   vc.RouterAddressHex(),
			Permit:   vc.PermitAddressHex(),
		}

		var source liquidityapp.PoolSource
		if vc.SnapshotPath != "" {
			source, err = snapshot.NewSource(venue, vc.SnapshotPath)
		} else {
			source, err = analytics.NewSource(venue, vc.AnalyticsURL, log)
		}
		if err != nil {
			return fmt.Errorf("failed to create pool source for %s: %w", vc.Name, err)
		}

		sources = append(sources, liquidityapp.VenueSource{
			Source:   source,
			PoolSize: vc.PoolSize,
			CacheTTL: vc.CacheTTL,
		})
	}
	aggregator, err := liquidityapp.NewAggregator(sources, store, log)
	if err != nil {
		return fmt.Errorf("failed to create pool aggregator: %w", err)
	}

	// Route building and quoting
	builder := routingapp.NewBuilder(log)

	quoter, err := quotingeth.NewQuoter(
		cfg.Contracts.QuoterAddressHex(), cfg.Contracts.MulticallAddressHex(), pool, log)
	if err != nil {
		return fmt.Errorf("failed to create quoter: %w", err)
	}
	batchSize := cfg.Arbitrage.EffectiveBatchSize()
	batcher := ratelimit.NewBatcherWithRate(
		batchSize, float64(cfg.Arbitrage.CallsPerSecond)/float64(batchSize), 1)
	batchQuoter, err := quotingapp.NewBatchQuoter(quoter, batcher, log)
	if err != nil {
		return fmt.Errorf("failed to create batch quoter: %w", err)
	}

	// Execution
	var executor executionapp.Executor
	if !cfg.Arbitrage.DryRun {
		wallet, err := chaineth.NewWallet(cfg.Wallet.PrivateKey, cfg.Chain.ChainID)
		if err != nil {
			return fmt.Errorf("failed to load wallet: %w", err)
		}
		log.Info(ctx, "execution wallet loaded", "address", wallet.Address().Hex())

		executor, err = executioneth.NewExecutor(
			executioneth.DefaultExecutorConfig(cfg.Contracts.ExecutorAddressHex(), cfg.Arbitrage.GasPriceCeiling()),
			pool, wallet, gasOracle, log)
		if err != nil {
			return fmt.Errorf("failed to create executor: %w", err)
		}
	}

	var recorder executionapp.TradeRecorder
	if cfg.TradeStore.Enabled {
		pgPool, err := postgres.NewPool(ctx, cfg.TradeStore.URI)
		if err != nil {
			return fmt.Errorf("failed to connect trade store: %w", err)
		}
		defer pgPool.Close()

		recorder, err = postgres.NewTradeRecorder(ctx, pgPool, log)
		if err != nil {
			return fmt.Errorf("failed to create trade recorder: %w", err)
		}
		log.Info(ctx, "trade store connected")
	}

	evaluator, err := executionapp.NewEvaluator(executionapp.EvaluatorConfig{
		BorrowCostBps: cfg.Arbitrage.BorrowCostBps,
		MinMarginBps:  cfg.Arbitrage.MinMarginBps,
		DryRun:        cfg.Arbitrage.DryRun,
	}, executor, recorder, log)
	if err != nil {
		return fmt.Errorf("failed to create evaluator: %w", err)
	}

	pipeline := executionapp.NewPipeline(
		cycles, startAmounts, aggregator, builder, batchQuoter, evaluator, log)

	runner, err := executionapp.NewRunner(executionapp.RunnerConfig{
		Mode:     executionapp.Mode(cfg.Arbitrage.Mode),
		Interval: cfg.Arbitrage.Interval,
	}, chainService, pipeline.Cycle, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	log.Info(ctx, "detection loop starting",
		"mode", cfg.Arbitrage.Mode,
		"venues", len(cfg.Venues),
		"dry_run", cfg.Arbitrage.DryRun,
		"borrow_cost_bps", cfg.Arbitrage.BorrowCostBps,
		"min_margin_bps", cfg.Arbitrage.MinMarginBps,
	)
	return runner.Run(ctx)
}
