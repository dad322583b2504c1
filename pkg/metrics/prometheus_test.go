package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordRefresh("ok", 12)
	r.RecordRefresh("failed", 1)
	r.RecordRefresh("ok", 14)
	r.RecordTickers(480, 23)
	r.RecordError("source_unavailable")
	r.RecordSectorFlow("1w", "Energy", 3.33)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.refreshTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.refreshTotal.WithLabelValues("failed")))
	assert.Equal(t, 23.0, testutil.ToFloat64(r.tickers.WithLabelValues("skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("source_unavailable")))
	assert.Equal(t, 3.33, testutil.ToFloat64(r.sectorFlow.WithLabelValues("1w", "Energy")))
}
