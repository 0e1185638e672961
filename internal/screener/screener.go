// Package screener orchestrates wallet refreshes: it fans out position
// fetches across the tracked wallet set, caches provider responses, falls
// back to deterministic synthetic data when live data is unavailable, and
// derives per-wallet summaries and per-token market aggregates.
package screener

import (
	"context"
	"errors"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/collection"
	"golang.org/x/sync/errgroup"

	"whale-screener/internal/analytics"
	"whale-screener/internal/domain"
	"whale-screener/internal/metrics"
	"whale-screener/internal/observability"
	"whale-screener/internal/synthetic"
	"whale-screener/internal/wallets"
)

// Default configuration values.
const (
	DefaultCacheTTL    = 5 * time.Minute
	DefaultCacheLimit  = 1024
	DefaultConcurrency = 5
)

// errZeroEquity marks wallets that report no equity and no open positions.
// They are skipped, not surfaced as failures.
var errZeroEquity = errors.New("wallet has zero equity")

// Options configures a Screener.
type Options struct {
	// CacheTTL bounds how long fetched positions are reused.
	CacheTTL time.Duration
	// CacheLimit caps the number of cached wallets.
	CacheLimit int
	// Concurrency bounds parallel wallet fetches.
	Concurrency int
	// ForceSynthetic serves every wallet from synthetic data, ignoring the
	// live client. Used when no API key is configured.
	ForceSynthetic bool
	// Logger defaults to stderr with a "[screener] " prefix.
	Logger *log.Logger
}

// Query selects which wallets a refresh covers.
type Query struct {
	// Entity filters by operator type; empty matches all.
	Entity domain.Entity
	// Limit caps the wallet count; <= 0 means all.
	Limit int
}

// Result is one completed refresh.
type Result struct {
	Summaries   []*domain.WalletSummary
	Market      []*domain.MarketAggregate
	RefreshedAt time.Time
	// Synthetic counts wallets served from generated data.
	Synthetic int
	// Errors counts wallets whose live fetch failed before falling back.
	Errors int
	// Skipped counts zero-equity wallets dropped from the result.
	Skipped int
}

// Screener fetches and summarizes the tracked wallet set.
type Screener struct {
	client      analytics.Client
	registry    *wallets.Registry
	cache       *collection.Cache
	concurrency int
	synthetic   bool
	logger      *log.Logger

	// refresh progress, exposed for the status endpoint
	progressDone  atomic.Int64
	progressTotal atomic.Int64

	mu   sync.RWMutex
	last *Result
}

// New creates a Screener. A nil client forces synthetic mode.
func New(client analytics.Client, registry *wallets.Registry, opts Options) (*Screener, error) {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.CacheLimit <= 0 {
		opts.CacheLimit = DefaultCacheLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[screener] ", log.LstdFlags)
	}

	cache, err := collection.NewCache(opts.CacheTTL,
		collection.WithLimit(opts.CacheLimit),
		collection.WithName("positions"),
	)
	if err != nil {
		return nil, err
	}

	return &Screener{
		client:      client,
		registry:    registry,
		cache:       cache,
		concurrency: opts.Concurrency,
		synthetic:   opts.ForceSynthetic || client == nil,
		logger:      opts.Logger,
	}, nil
}

// SyntheticMode reports whether every wallet is served from generated data.
func (s *Screener) SyntheticMode() bool {
	return s.synthetic
}

// Registry returns the tracked wallet set.
func (s *Screener) Registry() *wallets.Registry {
	return s.registry
}

// Latest returns the most recent refresh result, or nil before the first.
func (s *Screener) Latest() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Progress reports fetches completed and total for the refresh in flight.
func (s *Screener) Progress() (done, total int) {
	return int(s.progressDone.Load()), int(s.progressTotal.Load())
}

// Refresh fetches every selected wallet, bounded by the configured
// concurrency, and rebuilds summaries and market aggregates from scratch.
func (s *Screener) Refresh(ctx context.Context, q Query) (*Result, error) {
	selected := s.registry.Select(q.Entity, q.Limit)
	start := time.Now()

	s.progressDone.Store(0)
	s.progressTotal.Store(int64(len(selected)))

	summaries := make([]*domain.WalletSummary, len(selected))
	var syntheticCount, errorCount, skippedCount atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, w := range selected {
		g.Go(func() error {
			defer s.progressDone.Add(1)

			summary, err := s.fetchWallet(gctx, w, &errorCount)
			if err != nil {
				if errors.Is(err, errZeroEquity) {
					skippedCount.Add(1)
					return nil
				}
				return err
			}
			if summary.Source == domain.SourceSynthetic {
				syntheticCount.Add(1)
			}
			summaries[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		RefreshedAt: time.Now(),
		Synthetic:   int(syntheticCount.Load()),
		Errors:      int(errorCount.Load()),
		Skipped:     int(skippedCount.Load()),
	}
	for _, summary := range summaries {
		if summary != nil {
			result.Summaries = append(result.Summaries, summary)
		}
	}
	result.Market = s.buildMarket(ctx, result)

	elapsed := time.Since(start)
	observability.RecordRefresh(elapsed.Seconds(), len(result.Summaries))
	observability.DefaultMetrics.LastRefresh.Set(float64(result.RefreshedAt.Unix()))
	s.logger.Printf("refresh complete: wallets=%d synthetic=%d errors=%d skipped=%d elapsed=%s",
		len(result.Summaries), result.Synthetic, result.Errors, result.Skipped, elapsed.Round(time.Millisecond))

	s.mu.Lock()
	s.last = result
	s.mu.Unlock()

	return result, nil
}

// fetchWallet loads one wallet's positions, preferring the TTL cache, then
// the live provider, then synthetic generation.
func (s *Screener) fetchWallet(ctx context.Context, w domain.WalletInfo, errorCount *atomic.Int64) (*domain.WalletSummary, error) {
	if s.synthetic {
		return s.syntheticSummary(w), nil
	}

	hit := true
	v, err := s.cache.Take(w.Address, func() (interface{}, error) {
		hit = false
		observability.RecordCacheMiss()
		return s.client.WalletPositions(ctx, w.Address)
	})
	if hit {
		observability.RecordCacheHit()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		errorCount.Add(1)
		observability.RecordWalletFetchError()
		s.logger.Printf("live fetch failed for %s, using synthetic data: %v", w.Address, err)
		return s.syntheticSummary(w), nil
	}

	wp := v.(*analytics.WalletPositions)
	positions := make([]domain.Position, 0, len(wp.Positions))
	for i := range wp.Positions {
		positions = append(positions, wp.Positions[i].ToPosition())
	}

	equity := wp.AccountValue
	if equity == 0 && len(positions) == 0 {
		return nil, errZeroEquity
	}

	observability.RecordWalletFetched(string(domain.SourceLive))
	return metrics.BuildWalletSummary(w, equity, positions, domain.SourceLive, time.Now().UnixMilli()), nil
}

// syntheticSummary builds a deterministic summary from generated positions.
func (s *Screener) syntheticSummary(w domain.WalletInfo) *domain.WalletSummary {
	observability.RecordSyntheticFallback()
	observability.RecordWalletFetched(string(domain.SourceSynthetic))
	positions := synthetic.GeneratePositions(w.Address, w.AccountValue)
	return metrics.BuildWalletSummary(w, w.AccountValue, positions, domain.SourceSynthetic, time.Now().UnixMilli())
}

// buildMarket derives the per-token view. When every wallet came from
// synthetic data the dedicated market generator is used so the market tab
// stays consistent across runs regardless of which wallets were selected.
// With any live data the provider's market screener is preferred; local
// aggregation over the fetched summaries covers screener failures.
func (s *Screener) buildMarket(ctx context.Context, result *Result) []*domain.MarketAggregate {
	if len(result.Summaries) == 0 {
		return nil
	}
	if result.Synthetic == len(result.Summaries) {
		return synthetic.GenerateMarket(s.registry.All())
	}

	rows, err := s.client.MarketScreener(ctx, analytics.ScreenerQuery{})
	if err != nil {
		s.logger.Printf("market screener fetch failed, aggregating locally: %v", err)
	} else if len(rows) > 0 {
		return marketFromScreener(rows)
	}
	return metrics.AggregateMarket(result.Summaries)
}

// marketFromScreener converts provider screener rows to the domain shape,
// sorted by total notional descending like the local aggregator.
func marketFromScreener(rows []analytics.ScreenerRow) []*domain.MarketAggregate {
	out := make([]*domain.MarketAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, &domain.MarketAggregate{
			Token:            r.TokenSymbol,
			LongNotional:     r.LongNotional,
			ShortNotional:    r.ShortNotional,
			TraderCount:      r.TraderCount,
			UnrealizedProfit: r.UnrealizedProfit,
			UnrealizedLoss:   r.UnrealizedLoss,
			Bias:             metrics.MarketBiasFromNotional(r.LongNotional, r.ShortNotional),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].TotalNotional(), out[j].TotalNotional()
		if ti != tj {
			return ti > tj
		}
		return out[i].Token < out[j].Token
	})
	return out
}
