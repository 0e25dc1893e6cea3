package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/SignalMiner/internal/auth"
	"github.com/jmerrifield20/SignalMiner/internal/config"
	"github.com/jmerrifield20/SignalMiner/internal/handler"
	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"github.com/jmerrifield20/SignalMiner/internal/metrics"
	"github.com/jmerrifield20/SignalMiner/internal/rewards"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"github.com/jmerrifield20/SignalMiner/internal/treasury"
	"go.uber.org/zap"
)

func main() {
	cfgFile := flag.String("config", "", "config file (default configs/minerd.yaml or ./minerd.yaml)")
	flag.Parse()

	cfg, found, err := config.Load(*cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minerd: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "minerd: build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if !found {
		logger.Warn("no config file found, using defaults and env vars")
	}
	if err := run(cfg, logger); err != nil {
		logger.Fatal("minerd exited with error", zap.Error(err))
	}
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Store ─────────────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── Ledger ────────────────────────────────────────────────────────────────
	ledger := rewards.Open(ctx, store,
		rewards.WithLogger(logger.Named("ledger")),
		rewards.WithKey(cfg.Ledger.Key),
		rewards.WithPersistTimeout(cfg.Ledger.PersistTimeout),
	)
	publishGauges(ledger.State())
	ledger.Subscribe(publishGauges)

	svc := service.New(ctx, ledger, treasury.NewNoopTreasury(logger.Named("treasury")), store, logger.Named("service"))

	// ── Auth ──────────────────────────────────────────────────────────────────
	var tokens *auth.TokenIssuer
	if cfg.Auth.Secret != "" {
		tokens, err = auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
		if err != nil {
			return fmt.Errorf("auth setup: %w", err)
		}
		logger.Info("bearer auth enabled on mutating routes")
	} else {
		logger.Warn("auth.secret not set, mutating routes are open")
	}

	// ── HTTP Router ───────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(ctx, svc, handler.RouterConfig{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		MetricsEnabled: cfg.Metrics.Enabled,
		Tokens:         tokens,
	}, logger)

	// ── Background: settle on a fixed interval ───────────────────────────────
	go settleLoop(ctx, ledger, cfg.Ledger.SettleInterval)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end on shutdown so open event streams return.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("minerd HTTP listening", zap.Int("port", cfg.Server.Port))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP listen: %w", err)
	}
	logger.Info("shutting down minerd...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	earned := ledger.Settle()
	logger.Info("minerd stopped",
		zap.Float64("final_settle", earned),
		zap.Float64("points", ledger.Points()),
	)
	return nil
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (kvstore.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn("memory store selected, ledger will not survive a restart")
		return kvstore.NewMemoryStore(), func() {}, nil

	case config.DriverPostgres:
		db, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := kvstore.NewPostgresStore(db, logger.Named("store"))
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("connected to postgres")
		return store, db.Close, nil

	default:
		store, err := kvstore.OpenSQLite(cfg.Store.SQLitePath, logger.Named("store"))
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite store ready", zap.String("path", cfg.Store.SQLitePath))
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close sqlite store", zap.Error(err))
			}
		}, nil
	}
}

func publishGauges(s rewards.State) {
	metrics.SetLedgerGauges(metrics.LedgerSnapshot{
		Points:          s.Points,
		Tier:            s.Tier,
		MiningActive:    s.MiningActive,
		StakeMultiplier: s.StakeMultiplier,
	})
}

// settleLoop polls the ledger so that accrual, session expiry and the gauges
// stay current without client traffic.
func settleLoop(ctx context.Context, ledger *rewards.Ledger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ledger.Settle()
		case <-ctx.Done():
			return
		}
	}
}
