package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SectorFlow/internal/domain/models"
)

var fixedNow = time.Date(2026, 10, 16, 20, 0, 0, 0, time.UTC)

func snap(ticker, sector string, capToday float64, past map[models.Window]float64) models.TickerSnapshot {
	s := models.TickerSnapshot{
		Ticker:         ticker,
		Sector:         sector,
		PriceToday:     models.Float(1),
		MarketCapToday: models.Float(capToday),
		History:        map[models.Window]models.WindowSnapshot{},
	}
	for w, c := range past {
		s.History[w] = models.WindowSnapshot{Price: models.Float(1), MarketCap: models.Float(c)}
	}
	return s
}

func newTestAggregator(opts ...AggregatorOption) *SectorAggregator {
	opts = append([]AggregatorOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewSectorAggregator([]string{models.SectorEnergy, models.SectorUtilities}, opts...)
}

func findRow(t *testing.T, rows []models.SectorAggregate, sector string) models.SectorAggregate {
	t.Helper()
	for _, r := range rows {
		if r.Sector == sector {
			return r
		}
	}
	t.Fatalf("sector %q not in rows %+v", sector, rows)
	return models.SectorAggregate{}
}

func TestAggregate_EnergyWeek(t *testing.T) {
	agg := newTestAggregator()
	res := agg.Aggregate([]models.TickerSnapshot{
		snap("XOM", models.SectorEnergy, 110, map[models.Window]float64{models.Window1W: 100}),
		snap("CVX", models.SectorEnergy, 90, map[models.Window]float64{models.Window1W: 100}),
		snap("COP", models.SectorEnergy, 220, map[models.Window]float64{models.Window1W: 200}),
	})

	row := findRow(t, res.Windows[models.Window1W], models.SectorEnergy)
	assert.InDelta(t, 10.0/3.0, row.PctChange, 1e-9)
	assert.InDelta(t, 20.0/1e6, row.AbsChangeMillions, 1e-12)
	assert.Equal(t, 3, row.Contributors)
	assert.Equal(t, fixedNow, res.GeneratedAt)
	assert.Equal(t, 3, res.Tickers)
}

func TestAggregate_MeanIsUnweighted(t *testing.T) {
	agg := newTestAggregator()

	res := agg.Aggregate([]models.TickerSnapshot{
		snap("A", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100}),
		snap("B", models.SectorEnergy, 9_000, map[models.Window]float64{models.Window1D: 10_000}),
	})
	assert.InDelta(t, 0, findRow(t, res.Windows[models.Window1D], models.SectorEnergy).PctChange, 1e-9)

	res = agg.Aggregate([]models.TickerSnapshot{
		snap("A", models.SectorEnergy, 120, map[models.Window]float64{models.Window1D: 100}),
		snap("B", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100}),
	})
	assert.InDelta(t, 15, findRow(t, res.Windows[models.Window1D], models.SectorEnergy).PctChange, 1e-9)
}

func TestAggregate_NoContributorsIsNeutral(t *testing.T) {
	agg := newTestAggregator()
	res := agg.Aggregate([]models.TickerSnapshot{
		snap("XOM", models.SectorEnergy, 110, nil),
	})

	for _, w := range models.Windows() {
		row := findRow(t, res.Windows[w], models.SectorEnergy)
		assert.Zero(t, row.PctChange)
		assert.Zero(t, row.AbsChangeMillions)
		assert.Zero(t, row.Contributors)
	}
}

func TestAggregate_MissingTodayExcluded(t *testing.T) {
	agg := newTestAggregator()
	broken := snap("BAD", models.SectorUtilities, 0, map[models.Window]float64{models.Window1D: 100})
	broken.MarketCapToday = models.Unavailable()

	res := agg.Aggregate([]models.TickerSnapshot{broken})

	for _, w := range models.Windows() {
		assert.Empty(t, res.Windows[w], "window %s", w)
	}
	assert.Zero(t, res.Tickers)
}

func TestAggregate_PartialParticipation(t *testing.T) {
	agg := newTestAggregator()
	res := agg.Aggregate([]models.TickerSnapshot{
		snap("XOM", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100}),
		snap("CVX", models.SectorEnergy, 150, map[models.Window]float64{
			models.Window1D: 100,
			models.Window1M: 100,
		}),
	})

	assert.Equal(t, 2, findRow(t, res.Windows[models.Window1D], models.SectorEnergy).Contributors)
	month := findRow(t, res.Windows[models.Window1M], models.SectorEnergy)
	assert.Equal(t, 1, month.Contributors)
	assert.InDelta(t, 50, month.PctChange, 1e-9)
}

func TestAggregate_ZeroDenominatorSkipped(t *testing.T) {
	agg := newTestAggregator()
	res := agg.Aggregate([]models.TickerSnapshot{
		snap("ZERO", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 0}),
		snap("XOM", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100}),
	})

	row := findRow(t, res.Windows[models.Window1D], models.SectorEnergy)
	assert.Equal(t, 1, row.Contributors)
	assert.InDelta(t, 10, row.PctChange, 1e-9)
}

func TestAggregate_UntrackedSectorDropped(t *testing.T) {
	agg := newTestAggregator()
	res := agg.Aggregate([]models.TickerSnapshot{
		snap("JPM", models.SectorFinancials, 110, map[models.Window]float64{models.Window1D: 100}),
	})
	assert.Empty(t, res.Windows[models.Window1D])
	assert.Zero(t, res.Tickers)
}

func TestAggregate_OmissionVersusZeroFill(t *testing.T) {
	in := []models.TickerSnapshot{
		snap("XOM", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100}),
	}

	omitted := newTestAggregator().Aggregate(in)
	require.Len(t, omitted.Windows[models.Window1D], 1)

	filled := newTestAggregator(WithZeroFill(true)).Aggregate(in)
	rows := filled.Windows[models.Window1D]
	require.Len(t, rows, 2)
	assert.Equal(t, models.SectorEnergy, rows[0].Sector)
	assert.Equal(t, models.SectorUtilities, rows[1].Sector)
	assert.Zero(t, rows[1].PctChange)
}

func TestAggregate_Idempotent(t *testing.T) {
	agg := newTestAggregator()
	in := []models.TickerSnapshot{
		snap("XOM", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100, models.Window1W: 90}),
		snap("NEE", models.SectorUtilities, 80, map[models.Window]float64{models.Window1D: 100, models.Window1M: 70}),
	}

	first := agg.Aggregate(in)
	second := agg.Aggregate(in)
	assert.Equal(t, first, second)
}

func TestAggregate_OrderIndependent(t *testing.T) {
	agg := newTestAggregator()
	a := snap("XOM", models.SectorEnergy, 110, map[models.Window]float64{models.Window1D: 100})
	b := snap("CVX", models.SectorEnergy, 95, map[models.Window]float64{models.Window1D: 100})

	forward := agg.Aggregate([]models.TickerSnapshot{a, b})
	reverse := agg.Aggregate([]models.TickerSnapshot{b, a})
	assert.Equal(t, forward, reverse)
}
