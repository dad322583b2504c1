package usecase

import (
	"math"
	"time"

	"SectorFlow/internal/domain/models"
)

// SectorAggregator groups ticker snapshots by sector and computes the money flow
// of every tracked window.
type SectorAggregator struct {
	sectors   []string
	tracked   map[string]struct{}
	windows   []models.Window
	zeroFill  bool
	clockFunc func() time.Time
}

type AggregatorOption func(*SectorAggregator)

// WithZeroFill emits a zero row for tracked sectors without contributors
// instead of omitting them.
func WithZeroFill(enabled bool) AggregatorOption {
	return func(a *SectorAggregator) { a.zeroFill = enabled }
}

// WithWindows restricts the computed windows.
func WithWindows(ws []models.Window) AggregatorOption {
	return func(a *SectorAggregator) {
		if len(ws) > 0 {
			a.windows = ws
		}
	}
}

// WithClock overrides the clock used for GeneratedAt.
func WithClock(fn func() time.Time) AggregatorOption {
	return func(a *SectorAggregator) { a.clockFunc = fn }
}

// NewSectorAggregator creates an aggregator for the given tracked sectors.
// Output rows follow the order of sectors.
func NewSectorAggregator(sectors []string, opts ...AggregatorOption) *SectorAggregator {
	if len(sectors) == 0 {
		sectors = models.DefaultSectors()
	}
	a := &SectorAggregator{
		sectors:   append([]string(nil), sectors...),
		tracked:   make(map[string]struct{}, len(sectors)),
		windows:   models.Windows(),
		clockFunc: time.Now,
	}
	for _, s := range a.sectors {
		a.tracked[s] = struct{}{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tracks reports whether sector belongs to the tracked set.
func (a *SectorAggregator) Tracks(sector string) bool {
	_, ok := a.tracked[sector]
	return ok
}

// Sectors returns the tracked sectors in output order.
func (a *SectorAggregator) Sectors() []string {
	return append([]string(nil), a.sectors...)
}

type flowAcc struct {
	pctSum float64
	absSum float64
	n      int
}

// Aggregate computes a fresh result. It does not retain or mutate snapshots.
func (a *SectorAggregator) Aggregate(snapshots []models.TickerSnapshot) *models.AggregationResult {
	bySector := make(map[string][]models.TickerSnapshot, len(a.sectors))
	usable := 0
	for _, s := range snapshots {
		if !a.Tracks(s.Sector) || !s.Usable() {
			continue
		}
		bySector[s.Sector] = append(bySector[s.Sector], s)
		usable++
	}

	res := &models.AggregationResult{
		Windows:     make(map[models.Window][]models.SectorAggregate, len(a.windows)),
		GeneratedAt: a.clockFunc(),
		Tickers:     usable,
	}

	for _, w := range a.windows {
		rows := make([]models.SectorAggregate, 0, len(a.sectors))
		for _, sector := range a.sectors {
			members, ok := bySector[sector]
			if !ok && !a.zeroFill {
				continue
			}
			var acc flowAcc
			for _, s := range members {
				pct, abs, err := capChange(s.MarketCapToday, s.History[w].MarketCap)
				if err != nil {
					continue
				}
				acc.pctSum += pct
				acc.absSum += abs
				acc.n++
			}
			rows = append(rows, acc.row(sector))
		}
		res.Windows[w] = rows
	}
	return res
}

func (acc flowAcc) row(sector string) models.SectorAggregate {
	row := models.SectorAggregate{Sector: sector, Contributors: acc.n}
	if acc.n == 0 {
		return row
	}
	row.PctChange = acc.pctSum / float64(acc.n)
	row.AbsChangeMillions = acc.absSum / 1_000_000
	return row
}

// capChange returns the percentage and absolute change from past to today.
func capChange(today, past models.NullFloat) (pct, abs float64, err error) {
	if !today.Valid || !past.Valid {
		return 0, 0, models.ErrMissingOperand
	}
	if past.Float64 == 0 {
		return 0, 0, models.ErrDegenerateDenominator
	}
	abs = today.Float64 - past.Float64
	pct = abs / past.Float64 * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) || math.IsNaN(abs) || math.IsInf(abs, 0) {
		return 0, 0, models.ErrMissingOperand
	}
	return pct, abs, nil
}
