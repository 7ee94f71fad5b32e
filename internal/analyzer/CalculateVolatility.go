package analyzer

import (
	"errors"
	"math"
	"sort"

	"github.com/arcadia-fi/trm/internal/types"
)

// ErrInsufficientData indicates that not enough data points were provided
// to calculate volatility (need at least 2 points for 1 return).
var ErrInsufficientData = errors.New("insufficient data points to calculate volatility")

// CalculateVolatility calculates the daily return volatility from a series of
// historical prices. It assumes the price data is sorted chronologically. If
// not, it sorts it first. It uses logarithmic returns and standard deviation.
// The result is a per-period volatility at the sampling frequency of the input
// (daily closes yield a daily volatility).
func CalculateVolatility(prices []types.PricePoint) (float64, error) {
	n := len(prices)

	// --- Input Validation ---
	if n < 2 {
		return 0, ErrInsufficientData // Need at least two points to calculate one return
	}

	sort.Slice(prices, func(i, j int) bool {
		return prices[i].Timestamp.Before(prices[j].Timestamp)
	})

	// --- Calculate Logarithmic Returns ---
	logReturns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		currentPrice := prices[i].Price
		previousPrice := prices[i-1].Price

		// Check for invalid prices that would break math.Log
		if previousPrice <= 0 || currentPrice <= 0 {
			continue // Skip this data point pair
		}

		logReturns = append(logReturns, math.Log(currentPrice/previousPrice))
	}

	// Check if we could calculate any returns
	numReturns := len(logReturns)
	if numReturns == 0 {
		return 0, ErrInsufficientData // Could happen if all previous prices were <= 0
	}

	// --- Calculate Standard Deviation of Log Returns ---
	var sum float64
	for _, r := range logReturns {
		sum += r
	}
	mean := sum / float64(numReturns)

	var sumSqDiff float64
	for _, r := range logReturns {
		sumSqDiff += math.Pow(r-mean, 2)
	}

	// Population standard deviation (N, not N-1)
	variance := sumSqDiff / float64(numReturns)

	return math.Sqrt(variance), nil
}
