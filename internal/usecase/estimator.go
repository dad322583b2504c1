package usecase

import (
	"fmt"

	"SectorFlow/internal/domain/models"
)

// EstimateHistoricalCap derives an implied historical market cap by scaling
// today's cap with the historical/current price ratio. Share-count changes
// between the two dates are not accounted for.
func EstimateHistoricalCap(currentPrice, currentCap, historicalPrice models.NullFloat) (float64, error) {
	if !currentPrice.Valid || !currentCap.Valid || !historicalPrice.Valid {
		return 0, models.ErrMissingOperand
	}
	if currentPrice.Float64 == 0 {
		return 0, fmt.Errorf("current price: %w", models.ErrDegenerateDenominator)
	}
	return historicalPrice.Float64 / currentPrice.Float64 * currentCap.Float64, nil
}
