package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	refreshTotal    *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	tickers         *prometheus.GaugeVec
	errorsTotal     *prometheus.CounterVec
	sectorFlow      *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		refreshTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_refresh_cycles_total",
				Help: "Refresh cycles by outcome",
			},
			[]string{"result"},
		),
		refreshDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorflow_refresh_duration_seconds",
				Help:    "Duration of refresh cycles in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"result"},
		),
		tickers: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sectorflow_tickers",
				Help: "Tickers in the last published cycle",
			},
			[]string{"state"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sectorflow_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sectorFlow: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sectorflow_sector_pct_change",
				Help: "Mean market-cap percentage change per sector and window",
			},
			[]string{"window", "sector"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sectorflow_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRefresh records a finished refresh cycle.
func (r *Recorder) RecordRefresh(result string, seconds float64) {
	r.refreshTotal.WithLabelValues(result).Inc()
	r.refreshDuration.WithLabelValues(result).Observe(seconds)
}

// RecordTickers records how many tickers were used and skipped.
func (r *Recorder) RecordTickers(used, skipped int) {
	r.tickers.WithLabelValues("used").Set(float64(used))
	r.tickers.WithLabelValues("skipped").Set(float64(skipped))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSectorFlow records the published percentage change of a sector.
func (r *Recorder) RecordSectorFlow(window, sector string, pct float64) {
	r.sectorFlow.WithLabelValues(window, sector).Set(pct)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
