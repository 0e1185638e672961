// Package main provides the whale screener service:
// - Screener (scheduled): wallet position refresh, summaries, market view
// - Mids feed (continuous): WebSocket mark-price updates between refreshes
// - HTTP API: summaries, market, wallets, usage, health, status, metrics
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"whale-screener/internal/analytics"
	"whale-screener/internal/domain"
	"whale-screener/internal/exchange"
	"whale-screener/internal/observability"
	"whale-screener/internal/screener"
	"whale-screener/internal/storage"
	chstore "whale-screener/internal/storage/clickhouse"
	"whale-screener/internal/storage/memory"
	pgstore "whale-screener/internal/storage/postgres"
	"whale-screener/internal/wallets"
)

// Server holds all components of the screener service.
type Server struct {
	// Configuration
	refreshInterval time.Duration
	query           screener.Query

	// Components
	screener *screener.Screener
	tracker  *analytics.UsageTracker

	// Stores (either may be nil when persistence is disabled)
	snapshotStore storage.SnapshotStore
	historyStore  storage.MarketHistoryStore

	logger *log.Logger

	// Latest mark prices from the mids feed
	midsMu sync.RWMutex
	mids   map[string]float64

	// State
	mu             sync.Mutex
	started        time.Time
	lastRefresh    time.Time
	refreshRunning bool
	refreshRuns    int
	refreshErrors  int
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	apiKey := flag.String("api-key", os.Getenv("ANALYTICS_API_KEY"), "Analytics API key (empty runs on synthetic data)")
	analyticsURL := flag.String("analytics-url", os.Getenv("ANALYTICS_BASE_URL"), "Analytics API base URL override")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	noPersist := flag.Bool("no-persist", false, "Disable snapshot persistence")
	walletsFile := flag.String("wallets", "", "Wallet registry YAML override (default: embedded registry)")
	entity := flag.String("entity", "", "Filter wallets by entity (retail, VCs, MM)")
	limit := flag.Int("limit", 0, "Cap wallet count (0 = all)")
	synthetic := flag.Bool("synthetic", false, "Force synthetic data even with an API key")
	refreshInterval := flag.Duration("refresh-interval", 5*time.Minute, "Screener refresh interval")
	cacheTTL := flag.Duration("cache-ttl", screener.DefaultCacheTTL, "Position cache TTL")
	concurrency := flag.Int("concurrency", screener.DefaultConcurrency, "Parallel wallet fetches")
	wsEndpoint := flag.String("ws-endpoint", exchange.DefaultWSEndpoint, "Exchange WebSocket endpoint for mark prices")
	noMids := flag.Bool("no-mids", false, "Disable the WebSocket mark-price feed")
	addr := flag.String("addr", ":8080", "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Load wallet registry
	registry, err := loadRegistry(*walletsFile)
	if err != nil {
		logger.Fatalf("Failed to load wallet registry: %v", err)
	}
	logger.Printf("Tracking %d wallets", registry.Len())

	// Create analytics client; no key means synthetic mode
	var client analytics.Client
	tracker := analytics.NewUsageTracker()
	if *apiKey != "" {
		opts := []analytics.ClientOption{analytics.WithUsageTracker(tracker)}
		if *analyticsURL != "" {
			opts = append(opts, analytics.WithBaseURL(*analyticsURL))
		}
		client = analytics.NewHTTPClient(*apiKey, opts...)
	} else {
		logger.Println("No API key configured, running on synthetic data")
	}

	scr, err := screener.New(client, registry, screener.Options{
		CacheTTL:       *cacheTTL,
		Concurrency:    *concurrency,
		ForceSynthetic: *synthetic,
	})
	if err != nil {
		logger.Fatalf("Failed to create screener: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	snapshotStore, historyStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *noPersist)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server := &Server{
		refreshInterval: *refreshInterval,
		query:           screener.Query{Entity: domain.Entity(*entity), Limit: *limit},
		screener:        scr,
		tracker:         tracker,
		snapshotStore:   snapshotStore,
		historyStore:    historyStore,
		logger:          logger,
		mids:            make(map[string]float64),
		started:         time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP server
	go server.startHTTPServer(*addr)

	// Start mids feed unless disabled or fully synthetic
	if !*noMids && !scr.SyntheticMode() {
		go server.runMidsFeed(ctx, *wsEndpoint)
	}

	// Run the refresh loop
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// loadRegistry loads the wallet registry, preferring an explicit file.
func loadRegistry(path string) (*wallets.Registry, error) {
	if path != "" {
		return wallets.LoadFile(path)
	}
	return wallets.Default()
}

// createStores creates the snapshot and history stores. Persistence can be
// disabled entirely, backed by memory, or backed by PostgreSQL + ClickHouse.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, noPersist bool) (storage.SnapshotStore, storage.MarketHistoryStore, func(), error) {
	if noPersist {
		return nil, nil, func() {}, nil
	}
	if useMemory {
		return memory.NewSnapshotStore(), memory.NewMarketHistoryStore(), func() {}, nil
	}
	if postgresDSN == "" && clickhouseDSN == "" {
		// No DSNs configured; run without persistence
		return nil, nil, func() {}, nil
	}

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

// Run executes refreshes on schedule until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting refresh loop (interval: %v)...", s.refreshInterval)

	// Run immediately on start
	s.runRefresh(ctx)

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

// runRefresh executes one screener refresh and persists the result.
func (s *Server) runRefresh(ctx context.Context) {
	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Refresh already running, skipping...")
		return
	}
	s.refreshRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.lastRefresh = time.Now()
		s.refreshRuns++
		s.mu.Unlock()
	}()

	result, err := s.screener.Refresh(ctx, s.query)
	if err != nil {
		s.mu.Lock()
		s.refreshErrors++
		s.mu.Unlock()
		if err != context.Canceled {
			s.logger.Printf("Refresh error: %v", err)
		}
		return
	}

	// Persistence failures degrade to logs; the API keeps serving
	if err := screener.Persist(ctx, result, s.snapshotStore, s.historyStore); err != nil {
		s.logger.Printf("Persist error: %v", err)
	}
}

// runMidsFeed consumes WebSocket mark-price updates into the mids map,
// falling back to polling the info endpoint when the stream is unavailable.
func (s *Server) runMidsFeed(ctx context.Context, endpoint string) {
	client, err := exchange.NewMidsClient(ctx, endpoint, nil)
	if err != nil {
		s.logger.Printf("Mids stream unavailable, polling instead: %v", err)
		s.pollMids(ctx)
		return
	}
	defer client.Close()

	s.logger.Printf("Mids feed connected to %s", endpoint)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-client.Updates():
			if !ok {
				return
			}
			s.midsMu.Lock()
			for coin, price := range update {
				s.mids[coin] = price
			}
			s.midsMu.Unlock()
		}
	}
}

// pollMids fetches mark prices over HTTP on a fixed interval.
func (s *Server) pollMids(ctx context.Context) {
	client := exchange.NewInfoClient()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		mids, err := client.AllMids(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Printf("Mids poll error: %v", err)
		} else {
			s.midsMu.Lock()
			for coin, price := range mids {
				s.mids[coin] = price
			}
			s.midsMu.Unlock()
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// currentMids returns a copy of the latest mark prices.
func (s *Server) currentMids() map[string]float64 {
	s.midsMu.RLock()
	defer s.midsMu.RUnlock()

	if len(s.mids) == 0 {
		return nil
	}
	mids := make(map[string]float64, len(s.mids))
	for coin, price := range s.mids {
		mids[coin] = price
	}
	return mids
}

// startHTTPServer starts the HTTP server for the API, health and metrics.
func (s *Server) startHTTPServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Data API
	mux.HandleFunc("/api/summaries", s.handleSummaries)
	mux.HandleFunc("/api/market", s.handleMarket)
	mux.HandleFunc("/api/wallets", s.handleWallets)
	mux.HandleFunc("/api/usage", s.handleUsage)
	mux.HandleFunc("/api/history/wallet", s.handleWalletHistory)
	mux.HandleFunc("/api/history/market", s.handleMarketHistory)

	s.logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("HTTP server error: %v", err)
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string    `json:"status"`
	Uptime           string    `json:"uptime"`
	SyntheticMode    bool      `json:"synthetic_mode"`
	LastRefresh      time.Time `json:"last_refresh,omitempty"`
	RefreshRuns      int       `json:"refresh_runs"`
	RefreshErrors    int       `json:"refresh_errors"`
	RefreshRunning   bool      `json:"refresh_running"`
	ProgressDone     int       `json:"progress_done"`
	ProgressTotal    int       `json:"progress_total"`
	SyntheticWallets int       `json:"synthetic_wallets"`
	DegradedSources  int       `json:"degraded_sources"`
	SkippedWallets   int       `json:"skipped_wallets"`
	MidsTracked      int       `json:"mids_tracked"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	done, total := s.screener.Progress()

	s.mu.Lock()
	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		SyntheticMode:  s.screener.SyntheticMode(),
		LastRefresh:    s.lastRefresh,
		RefreshRuns:    s.refreshRuns,
		RefreshErrors:  s.refreshErrors,
		RefreshRunning: s.refreshRunning,
		ProgressDone:   done,
		ProgressTotal:  total,
	}
	s.mu.Unlock()

	if last := s.screener.Latest(); last != nil {
		resp.SyntheticWallets = last.Synthetic
		resp.DegradedSources = last.Errors
		resp.SkippedWallets = last.Skipped
	}
	resp.MidsTracked = len(s.currentMids())

	writeJSON(w, resp)
}

// handleSummaries returns the latest wallet summaries with current mids
// applied to mark prices.
func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	last := s.screener.Latest()
	if last == nil {
		http.Error(w, "no refresh completed yet", http.StatusServiceUnavailable)
		return
	}

	result := screener.ApplyMids(last, s.currentMids())
	writeJSON(w, map[string]interface{}{
		"refreshed_at": result.RefreshedAt,
		"summaries":    result.Summaries,
	})
}

// handleMarket returns the latest per-token market aggregates.
func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	last := s.screener.Latest()
	if last == nil {
		http.Error(w, "no refresh completed yet", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{
		"refreshed_at": last.RefreshedAt,
		"market":       last.Market,
	})
}

// handleWallets returns the tracked wallet registry, optionally filtered.
func (s *Server) handleWallets(w http.ResponseWriter, r *http.Request) {
	entity := domain.Entity(r.URL.Query().Get("entity"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	writeJSON(w, s.screener.Registry().Select(entity, limit))
}

// handleWalletHistory returns persisted snapshots for one wallet, newest
// first. Requires snapshot persistence to be enabled.
func (s *Server) handleWalletHistory(w http.ResponseWriter, r *http.Request) {
	if s.snapshotStore == nil {
		http.Error(w, "snapshot persistence disabled", http.StatusServiceUnavailable)
		return
	}

	address := r.URL.Query().Get("address")
	if address == "" {
		http.Error(w, "address is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	snaps, err := s.snapshotStore.GetByAddress(r.Context(), address, limit)
	if err != nil {
		s.logger.Printf("Wallet history query error: %v", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"address":   address,
		"snapshots": snaps,
	})
}

// handleMarketHistory returns persisted market aggregate points for one
// token, oldest first. Optional from/to bounds are Unix milliseconds.
func (s *Server) handleMarketHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyStore == nil {
		http.Error(w, "market history persistence disabled", http.StatusServiceUnavailable)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	var (
		points []*domain.MarketAggregatePoint
		err    error
	)
	fromRaw, toRaw := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if fromRaw != "" || toRaw != "" {
		from, to := int64(0), time.Now().UnixMilli()
		if fromRaw != "" {
			if from, err = strconv.ParseInt(fromRaw, 10, 64); err != nil {
				http.Error(w, "invalid from", http.StatusBadRequest)
				return
			}
		}
		if toRaw != "" {
			if to, err = strconv.ParseInt(toRaw, 10, 64); err != nil {
				http.Error(w, "invalid to", http.StatusBadRequest)
				return
			}
		}
		points, err = s.historyStore.GetByTimeRange(r.Context(), token, from, to)
	} else {
		points, err = s.historyStore.GetByToken(r.Context(), token)
	}
	if err != nil {
		s.logger.Printf("Market history query error: %v", err)
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"token":  token,
		"points": points,
	})
}

// handleUsage returns analytics API usage and credit consumption.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Summary())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
