package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"SectorFlow/internal/domain/models"
	drepo "SectorFlow/internal/domain/repository"
	applogger "SectorFlow/pkg/logger"
	"SectorFlow/pkg/util"
)

// CollectStats summarises one collection pass.
type CollectStats struct {
	Resolved int // constituents returned by the resolver
	Tracked  int // constituents in a tracked sector
	Used     int // tickers with both current values
	Skipped  int // tracked tickers dropped for missing current data
}

// SnapshotSource produces the snapshot set of one refresh cycle.
type SnapshotSource interface {
	Collect(ctx context.Context) ([]models.TickerSnapshot, CollectStats, error)
}

// SnapshotCollector resolves constituents and fetches their snapshots.
type SnapshotCollector struct {
	resolver drepo.ConstituentResolver
	provider drepo.SnapshotProvider
	metrics  drepo.Metrics
	logger   *applogger.Logger
	tracks   func(sector string) bool
	windows  []models.Window
	workers  int
	now      func() time.Time
}

type CollectorOption func(*SnapshotCollector)

// WithWorkers bounds the number of tickers fetched concurrently.
func WithWorkers(n int) CollectorOption {
	return func(c *SnapshotCollector) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithSectorFilter restricts collection to sectors accepted by fn.
func WithSectorFilter(fn func(string) bool) CollectorOption {
	return func(c *SnapshotCollector) { c.tracks = fn }
}

// WithCollectorClock overrides the clock used to compute as-of dates.
func WithCollectorClock(fn func() time.Time) CollectorOption {
	return func(c *SnapshotCollector) { c.now = fn }
}

// NewSnapshotCollector creates a new SnapshotCollector instance.
func NewSnapshotCollector(
	resolver drepo.ConstituentResolver,
	provider drepo.SnapshotProvider,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	opts ...CollectorOption,
) *SnapshotCollector {
	c := &SnapshotCollector{
		resolver: resolver,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
		tracks:   func(string) bool { return true },
		windows:  models.Windows(),
		workers:  4,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs one pass. Per-ticker failures only shrink the result; the pass
// fails as a whole only when no constituents could be resolved.
func (c *SnapshotCollector) Collect(ctx context.Context) ([]models.TickerSnapshot, CollectStats, error) {
	var stats CollectStats

	constituents, err := c.resolver.FetchConstituents(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("resolve constituents: %w", err)
	}
	stats.Resolved = len(constituents)
	if len(constituents) == 0 {
		return nil, stats, fmt.Errorf("resolve constituents: %w", models.ErrSourceUnavailable)
	}

	tracked := make([]models.Constituent, 0, len(constituents))
	for _, con := range constituents {
		if !c.tracks(con.Sector) {
			continue
		}
		tracked = append(tracked, models.Constituent{
			Ticker: util.NormalizeTicker(con.Ticker),
			Sector: con.Sector,
		})
	}
	stats.Tracked = len(tracked)

	// a single reference time keeps every ticker's as-of dates consistent
	now := c.now()
	results := make([]models.TickerSnapshot, len(tracked))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, con := range tracked {
		g.Go(func() error {
			snap, err := c.snapshot(gctx, con, now)
			n := done.Add(1)
			if err != nil {
				c.logger.Debug("ticker skipped",
					applogger.String("ticker", con.Ticker),
					applogger.Error(err),
				)
				return nil
			}
			results[i] = snap
			c.logger.Debug("ticker processed",
				applogger.String("ticker", con.Ticker),
				applogger.Int64("done", n),
				applogger.Int("total", len(tracked)),
			)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.TickerSnapshot, 0, len(results))
	for _, s := range results {
		if s.Ticker == "" {
			continue
		}
		out = append(out, s)
	}
	stats.Used = len(out)
	stats.Skipped = stats.Tracked - stats.Used
	return out, stats, nil
}

func (c *SnapshotCollector) snapshot(ctx context.Context, con models.Constituent, now time.Time) (models.TickerSnapshot, error) {
	price := c.fetch(ctx, "price", func() (float64, error) {
		return c.provider.SpotPrice(ctx, con.Ticker, nil)
	})
	if !price.Valid {
		return models.TickerSnapshot{}, fmt.Errorf("%s price today: %w", con.Ticker, models.ErrMissingOperand)
	}
	capToday := c.fetch(ctx, "market_cap", func() (float64, error) {
		return c.provider.MarketCap(ctx, con.Ticker)
	})
	if !capToday.Valid {
		return models.TickerSnapshot{}, fmt.Errorf("%s market cap today: %w", con.Ticker, models.ErrMissingOperand)
	}

	snap := models.TickerSnapshot{
		Ticker:         con.Ticker,
		Sector:         con.Sector,
		PriceToday:     price,
		MarketCapToday: capToday,
		History:        make(map[models.Window]models.WindowSnapshot, len(c.windows)),
	}
	for _, w := range c.windows {
		asOf := w.AsOf(now)
		hist := c.fetch(ctx, "price_"+string(w), func() (float64, error) {
			return c.provider.SpotPrice(ctx, con.Ticker, &asOf)
		})
		ws := models.WindowSnapshot{Price: hist}
		if mc, err := EstimateHistoricalCap(price, capToday, hist); err == nil {
			ws.MarketCap = models.Float(mc)
		} else if hist.Valid {
			c.recordError(err)
		}
		snap.History[w] = ws
	}
	return snap, nil
}

// fetch turns a provider call into an availability marker. Zero is treated as
// unavailable, matching how the market-data source reports missing values.
func (c *SnapshotCollector) fetch(ctx context.Context, op string, fn func() (float64, error)) models.NullFloat {
	start := time.Now()
	v, err := fn()
	if c.metrics != nil {
		c.metrics.RecordLatency("provider_"+op, time.Since(start).Seconds())
	}
	if err != nil {
		if ctx.Err() == nil {
			c.recordError(err)
		}
		return models.Unavailable()
	}
	if v == 0 {
		return models.Unavailable()
	}
	return models.Float(v)
}

func (c *SnapshotCollector) recordError(err error) {
	if c.metrics == nil {
		return
	}
	switch {
	case errors.Is(err, models.ErrDegenerateDenominator):
		c.metrics.RecordError("degenerate_denominator")
	case errors.Is(err, models.ErrMissingOperand):
		c.metrics.RecordError("missing_operand")
	default:
		c.metrics.RecordError("source_unavailable")
	}
}
