// cmd/migrate creates the kv_store table used by the postgres store driver.
//
// Usage:
//
//	go run ./cmd/migrate
//	DATABASE_URL=postgres://... go run ./cmd/migrate
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmerrifield20/SignalMiner/internal/config"
	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbURL = config.Default().Database.URL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	fmt.Println("connected to database")

	if err := kvstore.NewPostgresStore(db, zap.NewNop()).Migrate(ctx); err != nil {
		return err
	}
	fmt.Println("kv_store table ready")
	return nil
}
