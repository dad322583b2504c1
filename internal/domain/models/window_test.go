package models

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowLookback(t *testing.T) {
	now := time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "2026-03-30", Window1D.AsOf(now).Format("2006-01-02"))
	assert.Equal(t, "2026-03-24", Window1W.AsOf(now).Format("2006-01-02"))
	assert.Equal(t, "2026-03-03", Window1M.AsOf(now).Format("2006-01-02"))
	assert.Zero(t, Window("5y").Lookback())
}

func TestWindowAsOfAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// clocks sprang forward at 02:00 on 2026-03-08
	now := time.Date(2026, 3, 9, 0, 30, 0, 0, ny)
	assert.Equal(t, "2026-03-08", Window1D.AsOf(now).Format("2006-01-02"))
	assert.Equal(t, "2026-03-02", Window1W.AsOf(now).Format("2006-01-02"))

	// and fell back at 02:00 on 2026-11-01
	now = time.Date(2026, 11, 1, 23, 30, 0, 0, ny)
	assert.Equal(t, "2026-10-31", Window1D.AsOf(now).Format("2006-01-02"))
	assert.Equal(t, "2026-10-04", Window1M.AsOf(now).Format("2006-01-02"))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow(" 1W ")
	require.NoError(t, err)
	assert.Equal(t, Window1W, w)

	_, err = ParseWindow("3m")
	assert.Error(t, err)
}

func TestWindowsOrder(t *testing.T) {
	ws := Windows()
	assert.Equal(t, []Window{Window1D, Window1W, Window1M}, ws)

	ws[0] = "x"
	assert.Equal(t, Window1D, Windows()[0], "Windows must return a copy")
}

func TestWindowTitle(t *testing.T) {
	assert.Equal(t, "1M Change", Window1M.Title())
}

func TestAggregationResultRowsCopy(t *testing.T) {
	r := &AggregationResult{
		Windows:     map[Window][]SectorAggregate{Window1D: {{Sector: SectorEnergy, PctChange: 1}}},
		GeneratedAt: time.Now(),
	}
	rows := r.Rows(Window1D)
	rows[0].PctChange = 99

	assert.Equal(t, 1.0, r.Windows[Window1D][0].PctChange)
	assert.False(t, r.IsZero())

	var empty *AggregationResult
	assert.True(t, empty.IsZero())
	assert.Nil(t, empty.Rows(Window1D))
}
