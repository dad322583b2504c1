package repository

import (
	"context"
	"time"

	"SectorFlow/internal/domain/models"
)

// ConstituentResolver maps current index membership to (ticker, sector) pairs.
type ConstituentResolver interface {
	FetchConstituents(ctx context.Context) ([]models.Constituent, error)
}

// SnapshotProvider returns spot prices and market capitalisation.
// A nil asOf means the most recent close. Unavailable values are reported as
// errors wrapping models.ErrSourceUnavailable.
type SnapshotProvider interface {
	SpotPrice(ctx context.Context, ticker string, asOf *time.Time) (float64, error)
	MarketCap(ctx context.Context, ticker string) (float64, error)
}

// FlowPublisher forwards a freshly published result to downstream consumers.
type FlowPublisher interface {
	PublishResult(ctx context.Context, r *models.AggregationResult) error
	Close() error
}

type Metrics interface {
	RecordRefresh(result string, seconds float64)
	RecordTickers(used, skipped int)
	RecordError(kind string)
	RecordSectorFlow(window, sector string, pct float64)
	RecordLatency(op string, seconds float64)
}
