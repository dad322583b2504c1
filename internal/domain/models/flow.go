package models

import (
	"errors"
	"time"
)

// Error taxonomy for the money-flow pipeline. None of these abort a refresh cycle.
var (
	// ErrSourceUnavailable marks an upstream (constituents or market data) that
	// could not be reached or returned nothing usable.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrMissingOperand marks a ratio whose operand is absent.
	ErrMissingOperand = errors.New("missing operand")
	// ErrDegenerateDenominator marks a ratio whose denominator is zero.
	ErrDegenerateDenominator = errors.New("degenerate denominator")
)

// NullFloat is a float that may be unavailable.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns an available value.
func Float(v float64) NullFloat { return NullFloat{Float64: v, Valid: true} }

// Unavailable returns the unavailable marker.
func Unavailable() NullFloat { return NullFloat{} }

// Constituent is one index member as published by the constituent source.
type Constituent struct {
	Ticker string `json:"ticker"`
	Sector string `json:"sector"`
}

// WindowSnapshot holds the as-of values for one lookback window.
// MarketCap is derived from the price ratio, never fetched.
type WindowSnapshot struct {
	Price     NullFloat
	MarketCap NullFloat
}

// TickerSnapshot is one ticker's data for one refresh cycle.
type TickerSnapshot struct {
	Ticker         string
	Sector         string
	PriceToday     NullFloat
	MarketCapToday NullFloat
	History        map[Window]WindowSnapshot
}

// Usable reports whether both current values are present.
func (s TickerSnapshot) Usable() bool {
	return s.PriceToday.Valid && s.MarketCapToday.Valid
}

// SectorAggregate is one row of the published result for a (sector, window).
type SectorAggregate struct {
	Sector            string  `json:"sector"`
	PctChange         float64 `json:"pct_change"`
	AbsChangeMillions float64 `json:"abs_change_millions"`
	Contributors      int     `json:"contributors"`
}

// AggregationResult is the complete output of one refresh cycle.
// It is never modified after it has been published.
type AggregationResult struct {
	Windows     map[Window][]SectorAggregate `json:"windows"`
	GeneratedAt time.Time                    `json:"generated_at"`
	Tickers     int                          `json:"tickers"`
}

// Rows returns a copy of the rows for w.
func (r *AggregationResult) Rows(w Window) []SectorAggregate {
	if r == nil {
		return nil
	}
	rows := r.Windows[w]
	out := make([]SectorAggregate, len(rows))
	copy(out, rows)
	return out
}

// IsZero reports whether nothing has been published yet.
func (r *AggregationResult) IsZero() bool {
	return r == nil || r.GeneratedAt.IsZero()
}
