// Package main runs the token risk API server:
// - GET /v1/tokens/:mint/risk, /v1/tokens/:mint/history
// - /health, /metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-risk/internal/analyzer"
	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/config"
	"solana-token-risk/internal/httpapi"
	"solana-token-risk/internal/logging"
	"solana-token-risk/internal/market"
	"solana-token-risk/internal/pricecache"
	"solana-token-risk/internal/solana"
	"solana-token-risk/internal/storage"
	chstore "solana-token-risk/internal/storage/clickhouse"
	"solana-token-risk/internal/storage/memory"
	"solana-token-risk/internal/storage/migrations"
	pgstore "solana-token-risk/internal/storage/postgres"
	"solana-token-risk/internal/traces"
)

var version = "dev"

// stores holds the persistence backends of the analyzer.
type stores struct {
	creators storage.CreatorStore
	cache    storage.AssessmentCache
	history  storage.AssessmentHistoryStore
	checks   map[string]httpapi.HealthCheck
}

func main() {
	addr := flag.String("addr", "", "HTTP listen address (overrides http.addr)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *useMemory {
		cfg.Storage.UseMemory = true
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	log := logger.WithField("component", "server")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		log.WithError(err).Fatal("server exited with error")
	}
	log.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	log := logger.WithField("component", "server")

	shutdownTracing, err := traces.Init(ctx, cfg.Tracing.OTLPEndpoint, version, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.WithError(err).Warn("tracing shutdown failed")
		}
	}()

	rpc := solana.NewHTTPClient(cfg.RPC.Endpoint,
		solana.WithTimeout(cfg.RPC.Timeout),
		solana.WithMaxRetries(cfg.RPC.MaxRetries),
	)

	providerOpts := []chain.ProviderOption{chain.WithLogger(logger)}
	if cfg.RPC.WSEndpoint != "" {
		watcher, err := solana.NewSlotWatcher(ctx, cfg.RPC.WSEndpoint, nil, logger)
		if err != nil {
			// Slot lookups fall back to getSlot polling.
			log.WithError(err).Warn("slot watcher unavailable")
		} else {
			defer watcher.Close()
			providerOpts = append(providerOpts, chain.WithSlotSource(watcher))
		}
	}
	chainProvider := chain.NewRPCProvider(rpc, providerOpts...)

	marketClient := market.NewDexScreenerClient(cfg.Market.BaseURL, market.WithTimeout(cfg.Market.Timeout))
	prices := pricecache.New(marketClient.GetQuotePriceUSD, cfg.Cache.PriceTTL, pricecache.WithLogger(logger))

	st, cleanup, err := createStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	st.checks["rpc"] = func(ctx context.Context) error {
		_, err := rpc.GetSlot(ctx)
		return err
	}

	a, err := analyzer.New(analyzer.Options{
		Chain:         chainProvider,
		Market:        marketClient,
		Prices:        prices,
		Creators:      st.creators,
		Cache:         st.cache,
		History:       st.history,
		CacheTTL:      cfg.Cache.AssessmentTTL,
		ReputationTTL: cfg.Cache.CreatorTTL,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	router := httpapi.NewRouter(httpapi.NewHandler(a, logger), st.checks)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTP.Addr).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	sctx, scancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// createStores builds in-memory stores, or Postgres for the cache and creator
// reputation plus ClickHouse for the assessment history.
func createStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*stores, func(), error) {
	if cfg.Storage.UseMemory {
		log.Info("using in-memory storage")
		return &stores{
			creators: memory.NewCreatorStore(),
			cache:    memory.NewAssessmentCache(),
			history:  memory.NewAssessmentHistoryStore(),
			checks:   map[string]httpapi.HealthCheck{},
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	log.WithField("applied", applied).Info("postgres migrations complete")

	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	cleanup := func() {
		if err := chConn.Close(); err != nil {
			log.WithError(err).Warn("close clickhouse")
		}
		pool.Close()
	}

	return &stores{
		creators: pgstore.NewCreatorStore(pool),
		cache:    pgstore.NewAssessmentCache(pool),
		history:  chstore.NewAssessmentHistoryStore(chConn),
		checks: map[string]httpapi.HealthCheck{
			"postgres":   pool.Ping,
			"clickhouse": chConn.Ping,
		},
	}, cleanup, nil
}
