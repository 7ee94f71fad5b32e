/*

This file builds the covariance model the Monte Carlo simulation draws from.

Correlations are a heuristic based on asset classes rather than a fit against
historical return series. The class pairings (major/major, stable/stable,
crypto/stable) capture the structure that actually matters for treasury VaR:
volatile assets move together, stablecoins barely move at all, and the two
groups are nearly independent.

*/

package analyzer

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/arcadia-fi/trm/internal/types"
)

// ErrInvalidMarketData indicates the market snapshot cannot support a
// covariance model for the requested assets.
var ErrInvalidMarketData = errors.New("invalid market data for covariance model")

// correlationClamp bounds every off-diagonal correlation. Values at exactly
// +/-1 make the matrix singular and break the Cholesky factorization.
const correlationClamp = 0.95

// Base correlation and jitter half-width per asset-class pairing.
const (
	majorMajorBase     = 0.75
	majorMajorJitter   = 0.15
	stableStableBase   = 0.95
	stableStableJitter = 0.03
	cryptoStableBase   = 0.15
	cryptoStableJitter = 0.10
	defaultBase        = 0.30
	defaultJitter      = 0.20
)

// Fallback daily volatilities for assets the market snapshot has no estimate
// for. Rough long-run figures, deliberately on the high side for unknowns.
var defaultVolatilities = map[types.AssetSymbol]float64{
	"BTC":  0.05,
	"WBTC": 0.05,
	"ETH":  0.06,
	"WETH": 0.06,
	"SOL":  0.08,
}

const defaultStableVolatility = 0.002
const defaultCryptoVolatility = 0.05

// majorAssets are the large-cap symbols treated as one correlation class.
var majorAssets = map[types.AssetSymbol]bool{
	"BTC":  true,
	"WBTC": true,
	"ETH":  true,
	"WETH": true,
	"SOL":  true,
	"BNB":  true,
	"ATOM": true,
	"AVAX": true,
}

// IsStablecoin reports whether the symbol names a USD-pegged asset. Symbol
// convention: every supported stablecoin carries "USD" in its ticker.
func IsStablecoin(symbol types.AssetSymbol) bool {
	return strings.Contains(strings.ToUpper(string(symbol)), "USD")
}

// IsMajor reports whether the symbol is a large-cap volatile asset.
func IsMajor(symbol types.AssetSymbol) bool {
	return majorAssets[symbol]
}

// BuildCovarianceModel constructs the joint return distribution for the given
// assets. Volatilities come from the market snapshot when present, otherwise
// from class defaults. The rng drives the correlation jitter; passing a seeded
// source makes the model fully reproducible.
func BuildCovarianceModel(assets []types.AssetSymbol, market types.MarketSnapshot, rng *rand.Rand) (types.CovarianceModel, error) {
	if len(assets) == 0 {
		return types.CovarianceModel{}, fmt.Errorf("%w: no assets", ErrInvalidMarketData)
	}
	if rng == nil {
		return types.CovarianceModel{}, fmt.Errorf("%w: nil random source", ErrInvalidMarketData)
	}

	n := len(assets)
	vols := make([]float64, n)
	for i, symbol := range assets {
		vol, err := resolveVolatility(symbol, market)
		if err != nil {
			return types.CovarianceModel{}, err
		}
		vols[i] = vol
	}

	correlation := mat.NewSymDense(n, nil)
	covariance := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		correlation.SetSym(i, i, 1.0)
		covariance.SetSym(i, i, vols[i]*vols[i])
		for j := i + 1; j < n; j++ {
			rho := pairCorrelation(assets[i], assets[j], rng)
			correlation.SetSym(i, j, rho)
			covariance.SetSym(i, j, rho*vols[i]*vols[j])
		}
	}

	model := types.CovarianceModel{
		Assets:       append([]types.AssetSymbol(nil), assets...),
		Volatilities: vols,
		Correlation:  correlation,
		Covariance:   covariance,
	}
	return model, nil
}

// resolveVolatility picks the market estimate when available, otherwise a
// class default.
func resolveVolatility(symbol types.AssetSymbol, market types.MarketSnapshot) (float64, error) {
	if vol, ok := market.Volatilities[symbol]; ok {
		if math.IsNaN(vol) || math.IsInf(vol, 0) || vol < 0 {
			return 0, fmt.Errorf("%w: volatility for %s is %f", ErrInvalidMarketData, symbol, vol)
		}
		return vol, nil
	}
	if vol, ok := defaultVolatilities[symbol]; ok {
		return vol, nil
	}
	if IsStablecoin(symbol) {
		return defaultStableVolatility, nil
	}
	return defaultCryptoVolatility, nil
}

// pairCorrelation returns the heuristic correlation for one asset pair:
// a class base plus uniform jitter, clamped away from +/-1.
func pairCorrelation(a, b types.AssetSymbol, rng *rand.Rand) float64 {
	var base, jitter float64
	switch {
	case IsStablecoin(a) && IsStablecoin(b):
		base, jitter = stableStableBase, stableStableJitter
	case IsStablecoin(a) != IsStablecoin(b):
		base, jitter = cryptoStableBase, cryptoStableJitter
	case IsMajor(a) && IsMajor(b):
		base, jitter = majorMajorBase, majorMajorJitter
	default:
		base, jitter = defaultBase, defaultJitter
	}

	rho := base + (rng.Float64()*2-1)*jitter
	if rho > correlationClamp {
		rho = correlationClamp
	}
	if rho < -correlationClamp {
		rho = -correlationClamp
	}
	return rho
}
