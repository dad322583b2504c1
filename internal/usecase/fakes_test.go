package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SectorFlow/internal/domain/models"
)

type fakeResolver struct {
	constituents []models.Constituent
	err          error
}

func (r *fakeResolver) FetchConstituents(context.Context) ([]models.Constituent, error) {
	return r.constituents, r.err
}

// fakeProvider serves prices keyed by ticker and date ("" = latest close).
type fakeProvider struct {
	mu     sync.Mutex
	prices map[string]map[string]float64
	caps   map[string]float64
	calls  int
}

func (p *fakeProvider) SpotPrice(_ context.Context, ticker string, asOf *time.Time) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	key := ""
	if asOf != nil {
		key = asOf.Format("2006-01-02")
	}
	v, ok := p.prices[ticker][key]
	if !ok {
		return 0, fmt.Errorf("%s %s: %w", ticker, key, models.ErrSourceUnavailable)
	}
	return v, nil
}

func (p *fakeProvider) MarketCap(_ context.Context, ticker string) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	v, ok := p.caps[ticker]
	if !ok {
		return 0, fmt.Errorf("%s cap: %w", ticker, models.ErrSourceUnavailable)
	}
	return v, nil
}

type nopMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	runs   map[string]int
}

func newNopMetrics() *nopMetrics {
	return &nopMetrics{errors: map[string]int{}, runs: map[string]int{}}
}

func (m *nopMetrics) RecordRefresh(result string, _ float64) {
	m.mu.Lock()
	m.runs[result]++
	m.mu.Unlock()
}
func (m *nopMetrics) RecordTickers(int, int) {}
func (m *nopMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *nopMetrics) RecordSectorFlow(string, string, float64) {}
func (m *nopMetrics) RecordLatency(string, float64)            {}

func (m *nopMetrics) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func (m *nopMetrics) refreshes(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[result]
}
