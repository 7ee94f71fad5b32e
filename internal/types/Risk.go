/*

This file contains the types produced by the risk engine: the covariance
model built from market data and the Value-at-Risk report produced by the
Monte Carlo simulation.

*/

package types

import (
	"gonum.org/v1/gonum/mat"
)

// CovarianceModel describes the joint return distribution assumed for the
// portfolio assets. The correlation structure is a heuristic approximation
// based on asset classes, not a fit against historical data; Assets defines
// the row/column order of both matrices.
type CovarianceModel struct {
	Assets       []AssetSymbol `json:"assets"`
	Volatilities []float64     `json:"volatilities"`
	Correlation  *mat.SymDense `json:"-"`
	Covariance   *mat.SymDense `json:"-"`
}

// Dim returns the number of assets in the model.
func (c CovarianceModel) Dim() int {
	return len(c.Assets)
}

// VarReport is the output of one Monte Carlo VaR evaluation. All loss values
// are USD amounts and never negative. The 7-day figures use square-root-of-
// time scaling of the 1-day values, which assumes i.i.d. daily returns and is
// an approximation, not an exact horizon conversion.
type VarReport struct {
	VaR95_1d            float64 `json:"var_95_1d"`
	VaR99_1d            float64 `json:"var_99_1d"`
	VaR95_7d            float64 `json:"var_95_7d"`
	VaR99_7d            float64 `json:"var_99_7d"`
	ExpectedShortfall95 float64 `json:"expected_shortfall_95"`
	PortfolioVolatility float64 `json:"portfolio_volatility"`
	VaRPct95_24h        float64 `json:"var_pct_95_24h"`

	// Replay information: a report can be reproduced exactly by re-running
	// the simulation with the same trial count and seed.
	TrialCount int   `json:"trial_count"`
	Seed       int64 `json:"seed"`
}
