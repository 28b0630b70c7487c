// Package main runs the reserve HTTP API.
//
// Storage is either in-memory (--use-memory) or PostgreSQL. Transfers are
// journaled to ClickHouse when a DSN is given, otherwise next to the
// reserves in the same backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"reserve-swap/internal/api"
	"reserve-swap/internal/logging"
	"reserve-swap/internal/observability"
	"reserve-swap/internal/pda"
	"reserve-swap/internal/reserve"
	"reserve-swap/internal/storage"
	chstore "reserve-swap/internal/storage/clickhouse"
	"reserve-swap/internal/storage/memory"
	"reserve-swap/internal/storage/migrations"
	pgstore "reserve-swap/internal/storage/postgres"
)

// backend bundles the storage chosen at startup.
type backend struct {
	uow     storage.UnitOfWork
	journal storage.TransferJournal
	ready   func(ctx context.Context) error
	close   func()
}

// config holds the resolved flag values.
type config struct {
	listenAddr    string
	metricsAddr   string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	programID     string
	devFaucet     bool
	migrate       bool
}

func main() {
	// .env is optional; real env vars win.
	_ = godotenv.Load()

	var cfg config
	flag.StringVar(&cfg.listenAddr, "listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP API address")
	flag.StringVar(&cfg.metricsAddr, "metrics-addr", os.Getenv("METRICS_ADDR"), "Separate Prometheus metrics address (optional)")
	flag.StringVar(&cfg.postgresDSN, "postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	flag.StringVar(&cfg.clickhouseDSN, "clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	flag.BoolVar(&cfg.useMemory, "use-memory", envBool("USE_MEMORY"), "Use in-memory storage instead of PostgreSQL")
	flag.StringVar(&cfg.programID, "program-id", os.Getenv("PROGRAM_ID"), "Base58 program id used for address derivation")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "Log level")
	flag.BoolVar(&cfg.devFaucet, "dev-faucet", envBool("DEV_FAUCET"), "Enable the token faucet endpoint")
	flag.BoolVar(&cfg.migrate, "migrate", true, "Apply embedded migrations on startup")

	flag.Parse()

	if err := logging.Init(*logLevel, os.Stdout); err != nil {
		logrus.Fatalf("init logger: %v", err)
	}
	logger := logrus.WithField("component", "server")

	if err := run(cfg, logger); err != nil {
		logger.Fatal(err)
	}
	logger.Info("shutdown complete")
}

// run owns every resource it opens; all of them are released before it returns.
func run(cfg config, logger logrus.FieldLogger) error {
	if !cfg.useMemory && cfg.postgresDSN == "" {
		return errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	deriver, err := pda.NewDeriver(cfg.programID)
	if err != nil {
		return fmt.Errorf("program id: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	be, err := openBackend(ctx, cfg.postgresDSN, cfg.clickhouseDSN, cfg.useMemory, cfg.migrate, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer be.close()

	svc, err := reserve.NewService(reserve.Options{
		UnitOfWork: be.uow,
		Deriver:    deriver,
		Journal:    be.journal,
		Logger:     logrus.StandardLogger(),
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	srv := api.New(api.Config{
		Service:   svc,
		Logger:    logrus.StandardLogger(),
		DevFaucet: cfg.devFaucet,
		Ready:     be.ready,
	})

	if err := serve(ctx, cfg.listenAddr, cfg.metricsAddr, srv.Handler(), logger); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func openBackend(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool, logger logrus.FieldLogger) (*backend, error) {
	if useMemory {
		logger.Warn("using in-memory storage; state is lost on exit")
		return &backend{
			uow:     memory.NewStore(),
			journal: memory.NewTransferJournal(),
			close:   func() {},
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	be := &backend{
		uow:     pgstore.NewUnitOfWork(pool),
		journal: pgstore.NewTransferJournal(pool),
		ready:   pool.Ping,
		close:   pool.Close,
	}
	if clickhouseDSN == "" {
		return be, nil
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("clickhouse: %w", err)
	}
	be.journal = chstore.NewTransferJournal(conn)
	be.close = func() {
		conn.Close()
		pool.Close()
	}
	logger.Info("journaling transfers to clickhouse")
	return be, nil
}

func serve(ctx context.Context, addr, metricsAddr string, handler http.Handler, logger logrus.FieldLogger) error {
	servers := []*http.Server{{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		servers = append(servers, &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second})
	}

	errCh := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			logger.Infof("listening on %s", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen %s: %w", s.Addr, err)
			}
		}(s)
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received signal, initiating graceful shutdown")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, s := range servers {
		if err := s.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warnf("shutdown %s", s.Addr)
		}
	}
	return runErr
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
