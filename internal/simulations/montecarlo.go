/*

This file contains the Monte Carlo Value-at-Risk engine.

One evaluation draws correlated daily returns for every asset, values the
portfolio under each draw, and reads VaR and Expected Shortfall off the
empirical loss distribution. Runs are deterministic for a given seed and
trial count regardless of how many CPUs execute them: trials are split into
a fixed number of partitions, each partition owns an independent seeded
random stream, and results land in partition order.

*/

package simulations

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/arcadia-fi/trm/internal/logger"
	"github.com/arcadia-fi/trm/internal/types"
)

var (
	// ErrInvalidPortfolio indicates the portfolio snapshot cannot be simulated.
	ErrInvalidPortfolio = errors.New("invalid portfolio for simulation")
	// ErrInvalidTrialCount indicates a non-positive trial count.
	ErrInvalidTrialCount = errors.New("trial count must be positive")
	// ErrDegenerateSimulation indicates the simulation produced nothing
	// usable: the covariance matrix could not be factorized even after
	// regularization, or every trial came back non-finite.
	ErrDegenerateSimulation = errors.New("simulation produced no usable trials")
)

// simulationPartitions is the fixed number of independent random streams per
// run. Fixed (rather than GOMAXPROCS-derived) so the same seed produces the
// same report on any machine.
const simulationPartitions = 16

// sqrtTimeHorizonDays converts 1-day VaR to 7-day VaR assuming i.i.d. daily
// returns. This is an approximation; it understates multi-day risk when
// returns are autocorrelated.
const sqrtTimeHorizonDays = 7.0

// choleskyRidge is added to the covariance diagonal when the initial
// factorization fails. Correlated stablecoin pairs routinely sit at the edge
// of positive definiteness.
const choleskyRidge = 1e-10

// Evaluate runs a full Monte Carlo VaR evaluation of the portfolio under the
// given covariance model. The report is reproducible from (trials, seed).
func Evaluate(portfolio types.PortfolioSnapshot, model types.CovarianceModel, trials int, seed int64) (types.VarReport, error) {
	log := logger.GetForComponent("simulations")

	if trials <= 0 {
		return types.VarReport{}, fmt.Errorf("%w: got %d", ErrInvalidTrialCount, trials)
	}
	if err := portfolio.Validate(); err != nil {
		return types.VarReport{}, fmt.Errorf("%w: %w", ErrInvalidPortfolio, err)
	}
	if model.Dim() == 0 {
		return types.VarReport{}, fmt.Errorf("%w: empty covariance model", ErrInvalidPortfolio)
	}

	// A worthless portfolio has nothing at risk. Short-circuit rather than
	// dividing by zero downstream.
	if portfolio.TotalValueUSD == 0 {
		return types.VarReport{TrialCount: trials, Seed: seed}, nil
	}

	weights, err := alignWeights(portfolio, model)
	if err != nil {
		return types.VarReport{}, err
	}

	// Loadings vector v = L^T w: the per-trial portfolio return is then a
	// single dot product v . z instead of a matrix-vector multiply.
	loadings, err := portfolioLoadings(weights, model)
	if err != nil {
		return types.VarReport{}, err
	}

	returns := finiteOnly(runTrials(loadings, trials, seed))
	if len(returns) == 0 {
		return types.VarReport{}, fmt.Errorf("%w: all %d trials non-finite", ErrDegenerateSimulation, trials)
	}
	sort.Float64s(returns)

	// Quantiles of the return distribution. The 5th percentile return is the
	// 95% VaR loss (sign flipped).
	q05 := stat.Quantile(0.05, stat.Empirical, returns, nil)
	q01 := stat.Quantile(0.01, stat.Empirical, returns, nil)

	total := portfolio.TotalValueUSD
	var95 := math.Max(0, -q05) * total
	var99 := math.Max(0, -q01) * total

	report := types.VarReport{
		VaR95_1d:            var95,
		VaR99_1d:            var99,
		VaR95_7d:            var95 * math.Sqrt(sqrtTimeHorizonDays),
		VaR99_7d:            var99 * math.Sqrt(sqrtTimeHorizonDays),
		ExpectedShortfall95: expectedShortfall(returns, q05) * total,
		PortfolioVolatility: portfolioVolatility(weights, model),
		VaRPct95_24h:        var95 / total * 100.0,
		TrialCount:          trials,
		Seed:                seed,
	}

	log.Debug().
		Int("trials", trials).
		Int64("seed", seed).
		Float64("var95_1d", report.VaR95_1d).
		Float64("var_pct_95_24h", report.VaRPct95_24h).
		Msg("Monte Carlo evaluation complete")

	return report, nil
}

// alignWeights orders the portfolio weights by the model's asset order. Every
// held asset must be covered by the model; model assets the portfolio does not
// hold get weight zero.
func alignWeights(portfolio types.PortfolioSnapshot, model types.CovarianceModel) ([]float64, error) {
	index := make(map[types.AssetSymbol]int, model.Dim())
	for i, symbol := range model.Assets {
		index[symbol] = i
	}
	for symbol := range portfolio.Holdings {
		if _, ok := index[symbol]; !ok {
			return nil, fmt.Errorf("%w: asset %s not in covariance model", ErrInvalidPortfolio, symbol)
		}
	}

	weights := make([]float64, model.Dim())
	for symbol, weight := range portfolio.Weights {
		weights[index[symbol]] = weight
	}
	return weights, nil
}

// portfolioLoadings computes v = L^T w from the Cholesky factor L of the
// covariance matrix, regularizing the diagonal once if the raw matrix is not
// positive definite.
func portfolioLoadings(weights []float64, model types.CovarianceModel) ([]float64, error) {
	n := model.Dim()

	// Single asset: the "factorization" is just the volatility.
	if n == 1 {
		return []float64{weights[0] * model.Volatilities[0]}, nil
	}

	var chol mat.Cholesky
	if !chol.Factorize(model.Covariance) {
		ridged := mat.NewSymDense(n, nil)
		ridged.CopySym(model.Covariance)
		for i := 0; i < n; i++ {
			ridged.SetSym(i, i, ridged.At(i, i)+choleskyRidge)
		}
		if !chol.Factorize(ridged) {
			return nil, ErrDegenerateSimulation
		}
	}

	var lower mat.TriDense
	chol.LTo(&lower)

	w := mat.NewVecDense(n, weights)
	v := mat.NewVecDense(n, nil)
	v.MulVec(lower.T(), w)

	loadings := make([]float64, n)
	copy(loadings, v.RawVector().Data)
	return loadings, nil
}

// runTrials draws the portfolio return distribution. Each partition owns a
// disjoint region of the output slice and an independent random stream, so
// the concatenated result is identical no matter the scheduling.
func runTrials(loadings []float64, trials int, seed int64) []float64 {
	returns := make([]float64, trials)

	base := trials / simulationPartitions
	remainder := trials % simulationPartitions

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))

	offset := 0
	for p := 0; p < simulationPartitions; p++ {
		count := base
		if p < remainder {
			count++
		}
		if count == 0 {
			continue
		}

		out := returns[offset : offset+count]
		partitionSeed := seed + int64(p)
		group.Go(func() error {
			rng := rand.New(rand.NewSource(partitionSeed))
			for t := range out {
				sample := 0.0
				for _, loading := range loadings {
					sample += loading * rng.NormFloat64()
				}
				out[t] = sample
			}
			return nil
		})

		offset += count
	}

	// The workers never return errors; the group exists for its limit.
	_ = group.Wait()
	return returns
}

// finiteOnly strips NaN and Inf draws before any statistics are taken.
// Degenerate loadings (a broken volatility input, say) would otherwise
// poison the quantiles silently.
func finiteOnly(returns []float64) []float64 {
	filtered := returns[:0]
	for _, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// expectedShortfall is the mean loss strictly beyond the VaR cutoff,
// expressed as a positive loss fraction. An empty tail yields zero.
func expectedShortfall(sortedReturns []float64, cutoff float64) float64 {
	sum := 0.0
	count := 0
	for _, r := range sortedReturns {
		if r >= cutoff {
			break
		}
		sum += r
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Max(0, -sum/float64(count))
}

// portfolioVolatility is sqrt(w^T Sigma w), the analytic daily volatility of
// the weighted portfolio.
func portfolioVolatility(weights []float64, model types.CovarianceModel) float64 {
	if model.Dim() == 1 {
		return math.Abs(weights[0]) * model.Volatilities[0]
	}
	w := mat.NewVecDense(len(weights), weights)
	var sigmaW mat.VecDense
	sigmaW.MulVec(model.Covariance, w)
	return math.Sqrt(mat.Dot(w, &sigmaW))
}
