package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"SectorFlow/internal/domain/models"
	drepo "SectorFlow/internal/domain/repository"
	applogger "SectorFlow/pkg/logger"
)

// ErrRefreshInProgress is returned when a trigger arrives during an active cycle.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// RefreshController owns the published AggregationResult. One writer replaces
// it once per cycle; any number of readers load it without blocking.
type RefreshController struct {
	source     SnapshotSource
	aggregator *SectorAggregator
	publisher  drepo.FlowPublisher
	metrics    drepo.Metrics
	logger     *applogger.Logger
	interval   time.Duration

	current atomic.Pointer[models.AggregationResult]
	lastErr atomic.Pointer[string]
	running atomic.Bool

	mu      sync.Mutex
	baseCtx context.Context
	cancel  context.CancelFunc
	started bool
	wg      sync.WaitGroup
}

// NewRefreshController creates a controller. publisher and metrics may be nil.
func NewRefreshController(
	source SnapshotSource,
	aggregator *SectorAggregator,
	publisher drepo.FlowPublisher,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	interval time.Duration,
) *RefreshController {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	if metrics == nil {
		metrics = discardMetrics{}
	}
	return &RefreshController{
		source:     source,
		aggregator: aggregator,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
		interval:   interval,
		baseCtx:    context.Background(),
	}
}

// Latest returns the current published result, or nil before the first
// successful cycle. The returned value must not be modified.
func (c *RefreshController) Latest() *models.AggregationResult {
	return c.current.Load()
}

// GeneratedAt returns the generation time of the current result.
func (c *RefreshController) GeneratedAt() time.Time {
	if r := c.current.Load(); r != nil {
		return r.GeneratedAt
	}
	return time.Time{}
}

// Refreshing reports whether a cycle is in progress.
func (c *RefreshController) Refreshing() bool { return c.running.Load() }

// LastError returns the failure message of the most recent cycle, if it failed.
func (c *RefreshController) LastError() string {
	if p := c.lastErr.Load(); p != nil {
		return *p
	}
	return ""
}

// Interval returns the refresh period.
func (c *RefreshController) Interval() time.Duration { return c.interval }

// Refresh runs one cycle synchronously. It returns ErrRefreshInProgress when a
// cycle is already running; cycle failures are logged, not returned.
func (c *RefreshController) Refresh(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.RecordError("refresh_coalesced")
		return ErrRefreshInProgress
	}
	defer c.running.Store(false)
	c.cycle(ctx)
	return nil
}

// Trigger starts a cycle in the background and reports whether it did.
func (c *RefreshController) Trigger() bool {
	if !c.running.CompareAndSwap(false, true) {
		c.metrics.RecordError("refresh_coalesced")
		return false
	}
	c.mu.Lock()
	ctx := c.baseCtx
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.running.Store(false)
		c.cycle(ctx)
	}()
	return true
}

// Start runs cycle 0 immediately and then one cycle per interval until ctx is
// cancelled or Stop is called. Ticks that fire during a cycle are dropped.
func (c *RefreshController) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	c.baseCtx = ctx
	c.mu.Unlock()

	c.logger.Info("refresh controller started", applogger.Duration("interval_ms", c.interval))
	c.Trigger()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.Trigger() {
					c.logger.Warn("refresh tick skipped, previous cycle still running", applogger.Int("interval", n))
					continue
				}
				c.logger.Info("refreshing data", applogger.Int("interval", n))
			}
		}
	}()
}

// Stop cancels the schedule and waits for an in-flight cycle to return.
func (c *RefreshController) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *RefreshController) cycle(ctx context.Context) {
	start := time.Now()

	snapshots, stats, err := c.source.Collect(ctx)
	if err == nil && stats.Used == 0 {
		err = fmt.Errorf("no usable snapshots out of %d tracked tickers: %w", stats.Tracked, models.ErrSourceUnavailable)
	}
	if err == nil && ctx.Err() != nil {
		err = fmt.Errorf("cycle interrupted: %w", ctx.Err())
	}
	if err != nil {
		msg := err.Error()
		c.lastErr.Store(&msg)
		c.metrics.RecordRefresh("failed", time.Since(start).Seconds())
		c.logger.Error("refresh cycle failed, keeping previous result",
			applogger.Error(err),
			applogger.Int("resolved", stats.Resolved),
			applogger.Time("generated_at", c.GeneratedAt()),
		)
		return
	}

	res := c.aggregator.Aggregate(snapshots)
	c.current.Store(res)
	c.lastErr.Store(nil)

	c.metrics.RecordRefresh("ok", time.Since(start).Seconds())
	c.metrics.RecordTickers(stats.Used, stats.Skipped)
	for w, rows := range res.Windows {
		for _, row := range rows {
			c.metrics.RecordSectorFlow(string(w), row.Sector, row.PctChange)
		}
	}
	c.logger.Info("refresh cycle published",
		applogger.Int("resolved", stats.Resolved),
		applogger.Int("used", stats.Used),
		applogger.Int("skipped", stats.Skipped),
		applogger.Duration("duration_ms", time.Since(start)),
	)

	if c.publisher != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := c.publisher.PublishResult(pctx, res); err != nil {
			c.metrics.RecordError("publish")
			c.logger.Warn("flow publish failed", applogger.Error(err))
		}
	}
}

type discardMetrics struct{}

func (discardMetrics) RecordRefresh(string, float64)            {}
func (discardMetrics) RecordTickers(int, int)                   {}
func (discardMetrics) RecordError(string)                       {}
func (discardMetrics) RecordSectorFlow(string, string, float64) {}
func (discardMetrics) RecordLatency(string, float64)            {}
