// Package main runs one screener refresh and either persists the result to
// the configured stores or prints it as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"whale-screener/internal/analytics"
	"whale-screener/internal/domain"
	"whale-screener/internal/screener"
	"whale-screener/internal/storage"
	chstore "whale-screener/internal/storage/clickhouse"
	pgstore "whale-screener/internal/storage/postgres"
	"whale-screener/internal/wallets"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	apiKey := flag.String("api-key", os.Getenv("ANALYTICS_API_KEY"), "Analytics API key (empty runs on synthetic data)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	walletsFile := flag.String("wallets", "", "Wallet registry YAML override (default: embedded registry)")
	entity := flag.String("entity", "", "Filter wallets by entity (retail, VCs, MM)")
	limit := flag.Int("limit", 0, "Cap wallet count (0 = all)")
	synthetic := flag.Bool("synthetic", false, "Force synthetic data even with an API key")
	jsonOut := flag.Bool("json", false, "Print the result as JSON instead of persisting")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout for the refresh")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Validate flags
	if !*jsonOut && *postgresDSN == "" && *clickhouseDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: --postgres-dsn or --clickhouse-dsn is required when persisting")
		fmt.Fprintln(os.Stderr, "Use --json to print the snapshot instead")
		os.Exit(1)
	}

	// Load wallet registry
	var (
		registry *wallets.Registry
		err      error
	)
	if *walletsFile != "" {
		registry, err = wallets.LoadFile(*walletsFile)
	} else {
		registry, err = wallets.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading wallet registry: %v\n", err)
		os.Exit(1)
	}

	// Create analytics client; no key means synthetic mode
	var client analytics.Client
	if *apiKey != "" {
		client = analytics.NewHTTPClient(*apiKey)
	}

	scr, err := screener.New(client, registry, screener.Options{ForceSynthetic: *synthetic})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screener: %v\n", err)
		os.Exit(1)
	}

	result, err := scr.Refresh(ctx, screener.Query{Entity: domain.Entity(*entity), Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running refresh: %v\n", err)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]interface{}{
			"refreshed_at": result.RefreshedAt,
			"synthetic":    result.Synthetic,
			"errors":       result.Errors,
			"skipped":      result.Skipped,
			"summaries":    result.Summaries,
			"market":       result.Market,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
		return
	}

	snapshotStore, historyStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to databases: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	if err := screener.Persist(ctx, result, snapshotStore, historyStore); err != nil {
		fmt.Fprintf(os.Stderr, "Error persisting snapshot: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Snapshot persisted: %d wallets (%d synthetic), %d market points at %s\n",
		len(result.Summaries), result.Synthetic, len(result.Market),
		result.RefreshedAt.Format(time.RFC3339))
}

// createStores connects to whichever databases are configured and applies
// migrations. Either store may come back nil.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string) (storage.SnapshotStore, storage.MarketHistoryStore, func(), error) {
	var (
		snapshotStore storage.SnapshotStore
		historyStore  storage.MarketHistoryStore
		closers       []func()
	)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if postgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, postgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := pgstore.Migrate(ctx, pool); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		snapshotStore = pgstore.NewSnapshotStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		if err := chstore.Migrate(ctx, conn); err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		historyStore = chstore.NewMarketHistoryStore(conn)
	}

	return snapshotStore, historyStore, cleanup, nil
}
