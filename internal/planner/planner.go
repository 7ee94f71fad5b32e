/*

This file contains the route evaluator. A candidate route is applied to a
copy of the current portfolio, the projected allocation is re-run through the
Monte Carlo engine, and the route is scored on projected risk plus execution
cost. Lower scores are better.

*/

package planner

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arcadia-fi/trm/internal/logger"
	"github.com/arcadia-fi/trm/internal/simulations"
	"github.com/arcadia-fi/trm/internal/types"
)

var (
	// ErrUnknownAsset indicates a route references an asset the portfolio does not hold.
	ErrUnknownAsset = errors.New("route references asset not held in portfolio")
	// ErrMissingPrice indicates the market snapshot lacks a price a route needs.
	ErrMissingPrice = errors.New("no market price for route asset")
	// ErrNoRoutes indicates ranking was requested with an empty candidate list.
	ErrNoRoutes = errors.New("no route candidates to rank")
)

// liquidityActionCostBps is the execution cost charged for entering or
// unwinding a venue liquidity position, on top of the action's own slippage
// estimate. Covers pool fees and the second leg of a two-sided deposit.
const liquidityActionCostBps = 5.0

// Score weighting: projected VaR dominates, execution cost discriminates
// between routes of similar risk. Both components are capped so one extreme
// input cannot drown out the other.
const (
	varScoreCap          = 10.0
	slippageScoreCap     = 5.0
	slippageScoreDivisor = 20.0
)

// ApplyRoute produces the portfolio snapshot that would result from executing
// the route at current prices. The input snapshot is never mutated.
func ApplyRoute(portfolio types.PortfolioSnapshot, market types.MarketSnapshot, route types.RouteCandidate) (types.PortfolioSnapshot, error) {
	holdings := portfolio.Clone().Holdings

	for _, action := range route.Actions {
		switch action.Type {
		case types.RouteActionSwap:
			if err := applySwap(holdings, market, action); err != nil {
				return types.PortfolioSnapshot{}, fmt.Errorf("route %s: %w", route.ID, err)
			}
		case types.RouteActionAddLiquidity, types.RouteActionRemoveLiquidity:
			// Liquidity legs move value between venues without changing the
			// asset composition; they only affect execution cost.
		case types.RouteActionNoOp:
		default:
			return types.PortfolioSnapshot{}, fmt.Errorf("route %s: unknown action type %q", route.ID, action.Type)
		}
	}

	return types.NewPortfolioSnapshot(holdings, market)
}

// applySwap moves FromAmountPct of the FromAsset holding into ToAsset at the
// market price ratio, net of the estimated slippage.
func applySwap(holdings map[types.AssetSymbol]float64, market types.MarketSnapshot, action types.RouteAction) error {
	fromQty, held := holdings[action.FromAsset]
	if !held {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, action.FromAsset)
	}
	if action.FromAmountPct < 0 || action.FromAmountPct > 100 {
		return fmt.Errorf("swap of %s requests %.2f%% of holding", action.FromAsset, action.FromAmountPct)
	}

	priceFrom, ok := market.Prices[action.FromAsset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingPrice, action.FromAsset)
	}
	priceTo, ok := market.Prices[action.ToAsset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingPrice, action.ToAsset)
	}

	swapQty := fromQty * action.FromAmountPct / 100.0
	receivedQty := swapQty * priceFrom / priceTo * (1.0 - action.EstimatedSlippageBps/10000.0)

	holdings[action.FromAsset] = fromQty - swapQty
	holdings[action.ToAsset] += receivedQty
	return nil
}

// SlippageCost is the route's total execution cost in basis points: each
// action contributes its slippage estimate weighted by the fraction of the
// holding it moves. Liquidity legs carry the flat venue add-on on top.
func SlippageCost(route types.RouteCandidate) float64 {
	totalBps := 0.0
	for _, action := range route.Actions {
		switch action.Type {
		case types.RouteActionSwap:
			totalBps += action.EstimatedSlippageBps * action.FromAmountPct / 100.0
		case types.RouteActionAddLiquidity, types.RouteActionRemoveLiquidity:
			totalBps += action.EstimatedSlippageBps*action.FromAmountPct/100.0 + liquidityActionCostBps
		}
	}
	return totalBps
}

// ScoreRoute applies the route, re-evaluates VaR on the projected allocation,
// and combines risk and cost into a single score. The covariance model must
// cover every asset the route can produce.
func ScoreRoute(portfolio types.PortfolioSnapshot, market types.MarketSnapshot, model types.CovarianceModel, route types.RouteCandidate, trials int, seed int64) (types.RouteAnalysis, error) {
	projected, err := ApplyRoute(portfolio, market, route)
	if err != nil {
		return types.RouteAnalysis{}, err
	}

	report, err := simulations.Evaluate(projected, model, trials, seed)
	if err != nil {
		return types.RouteAnalysis{}, fmt.Errorf("route %s: %w", route.ID, err)
	}

	slippageBps := SlippageCost(route)
	score := math.Min(report.VaRPct95_24h, varScoreCap) + math.Min(slippageBps/slippageScoreDivisor, slippageScoreCap)

	return types.RouteAnalysis{
		ID:                 route.ID,
		Description:        route.Description,
		ProjectedVarReport: report,
		SlippageCostBps:    slippageBps,
		RiskScore:          score,
	}, nil
}

// RankRoutes scores every candidate concurrently and returns the analyses
// sorted best-first. All candidates share the same covariance model and seed
// so the comparison is apples to apples.
func RankRoutes(portfolio types.PortfolioSnapshot, market types.MarketSnapshot, model types.CovarianceModel, routes []types.RouteCandidate, trials int, seed int64) ([]types.RouteAnalysis, error) {
	log := logger.GetForComponent("planner")

	if len(routes) == 0 {
		return nil, ErrNoRoutes
	}

	analyses := make([]types.RouteAnalysis, 0, len(routes))
	var mu sync.Mutex

	var group errgroup.Group
	group.SetLimit(runtime.GOMAXPROCS(0))
	for _, route := range routes {
		route := route
		group.Go(func() error {
			analysis, err := ScoreRoute(portfolio, market, model, route, trials, seed)
			if err != nil {
				return err
			}
			mu.Lock()
			analyses = append(analyses, analysis)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	// Deterministic order: projected VaR ascending, then risk score, then
	// route ID so equal candidates never flip between runs.
	sort.Slice(analyses, func(i, j int) bool {
		a, b := analyses[i], analyses[j]
		if a.ProjectedVarReport.VaRPct95_24h != b.ProjectedVarReport.VaRPct95_24h {
			return a.ProjectedVarReport.VaRPct95_24h < b.ProjectedVarReport.VaRPct95_24h
		}
		if a.RiskScore != b.RiskScore {
			return a.RiskScore < b.RiskScore
		}
		return a.ID < b.ID
	})

	log.Debug().
		Int("candidates", len(routes)).
		Str("best_route", analyses[0].ID).
		Float64("best_score", analyses[0].RiskScore).
		Msg("Route ranking complete")

	return analyses, nil
}
