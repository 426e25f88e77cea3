package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"ustbills/internal/accounts"
	"ustbills/internal/clients/ckbtc"
	"ustbills/internal/clients/filestore"
	"ustbills/internal/clients/ousg"
	"ustbills/internal/guard"
	"ustbills/internal/kyc"
	"ustbills/internal/minting"
	"ustbills/internal/platform/config"
	"ustbills/internal/platform/httpserver"
	"ustbills/internal/platform/logger"
	"ustbills/internal/platform/metrics"
	"ustbills/internal/platform/redisclient"
	"ustbills/internal/rates"
	"ustbills/internal/store"
	"ustbills/internal/trading"
	httptransport "ustbills/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open ledger", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	guardSvc := guard.NewService(st.Guard, guard.WithLogger(log))
	if err := guardSvc.Seed(ctx, cfg.AdminPrincipals); err != nil {
		log.Error("seed admin set", "error", err)
		os.Exit(1)
	}

	oracle := buildOracle(cfg, log)
	mintSvc := minting.NewService(st, oracle,
		ckbtc.New(cfg.CkBTCLedgerURL), ousg.New(cfg.OUSGLedgerURL),
		minting.Config{
			PlatformAccount:  cfg.PlatformAccount,
			BurnSink:         cfg.BurnSink,
			FallbackBTCPrice: cfg.FallbackBTCPrice,
			StrictKYC:        cfg.StrictKYCDeposits,
		},
		minting.WithLogger(log), minting.WithMetrics(m))

	accountOpts := []accounts.Option{accounts.WithLogger(log), accounts.WithMetrics(m)}
	if cfg.FileStoreURL != "" {
		accountOpts = append(accountOpts, accounts.WithNotifier(filestore.New(cfg.FileStoreURL)))
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Accounts:      accounts.NewService(st, accountOpts...),
		KYC:           kyc.NewService(st, guardSvc, kyc.WithLogger(log)),
		Trading:       trading.NewService(st, guardSvc, trading.WithLogger(log), trading.WithMetrics(m)),
		Minting:       mintSvc,
		Guard:         guardSvc,
		Store:         st,
		JWTSigningKey: []byte(cfg.JWTSigningKey),
		Logger:        log,
		Registry:      registry,
	})

	srv := httpserver.New(cfg.Addr, router)
	reconciler := minting.NewReconciler(st.Deposits, cfg.ReconcileInterval, cfg.ReconcileThreshold, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("ustbills listening", "addr", cfg.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := reconciler.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// buildOracle selects the rate source: a fixed price when configured, else
// the external oracle behind a cache of the last good quote. The cache is
// shared through Redis when a URL is set.
func buildOracle(cfg config.Server, log *slog.Logger) minting.RateOracle {
	if cfg.StaticBTCPrice > 0 {
		return rates.Static{Rate: cfg.StaticBTCPrice}
	}
	var source rates.Oracle = rates.Static{Rate: cfg.FallbackBTCPrice}
	if cfg.RateOracleURL != "" {
		source = rates.NewHTTPOracle(cfg.RateOracleURL)
	}
	client, err := redisclient.New(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, using in-memory rate cache", "error", err)
	}
	if client != nil {
		return rates.NewRedisCached(source, client, cfg.RateCacheTTL)
	}
	return rates.NewCached(source, cfg.RateCacheTTL)
}
