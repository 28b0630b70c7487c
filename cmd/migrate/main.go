// Package main applies the embedded PostgreSQL and ClickHouse migrations.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"reserve-swap/internal/logging"
	"reserve-swap/internal/storage/migrations"
	pgstore "reserve-swap/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	flag.Parse()

	if err := logging.Init(os.Getenv("LOG_LEVEL"), os.Stdout); err != nil {
		logrus.Fatalf("init logger: %v", err)
	}

	if err := run(*postgresDSN, *clickhouseDSN, *timeout); err != nil {
		logrus.Fatal(err)
	}
}

func run(postgresDSN, clickhouseDSN string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		logrus.Info("postgres migrations applied")
	}

	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		logrus.Info("clickhouse migrations applied")
	}

	if postgresDSN == "" && clickhouseDSN == "" {
		logrus.Warn("no DSN given, nothing to migrate")
	}
	return nil
}
