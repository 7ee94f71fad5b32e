/*

This file contains the file-backed treasury manager. Holdings, market data,
and candidate routes are read from JSON files on every call, so an operator
can edit the files between cycles without restarting the engine.

*/

package treasury

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/arcadia-fi/trm/internal/logger"
	"github.com/arcadia-fi/trm/internal/types"
)

// FileManager reads the treasury state from JSON files.
type FileManager struct {
	portfolioPath string
	marketPath    string
	routesPath    string
}

// NewFileManager validates that all three files exist and are parseable
// before returning a manager. Failing at startup beats failing mid-cycle.
func NewFileManager(portfolioPath, marketPath, routesPath string) (*FileManager, error) {
	m := &FileManager{
		portfolioPath: portfolioPath,
		marketPath:    marketPath,
		routesPath:    routesPath,
	}

	if _, err := m.GetHoldings(); err != nil {
		return nil, fmt.Errorf("portfolio file %s: %w", portfolioPath, err)
	}
	if _, err := m.GetMarket(); err != nil {
		return nil, fmt.Errorf("market file %s: %w", marketPath, err)
	}
	if _, err := m.GetRouteCandidates(); err != nil {
		return nil, fmt.Errorf("routes file %s: %w", routesPath, err)
	}

	log := logger.GetForComponent("treasury")
	log.Info().
		Str("portfolio", portfolioPath).
		Str("market", marketPath).
		Str("routes", routesPath).
		Msg("File-backed treasury manager initialized")

	return m, nil
}

// GetHoldings re-reads the portfolio file.
func (m *FileManager) GetHoldings() (map[types.AssetSymbol]float64, error) {
	var holdings map[types.AssetSymbol]float64
	if err := readJSONFile(m.portfolioPath, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetMarket re-reads and validates the market file.
func (m *FileManager) GetMarket() (types.MarketSnapshot, error) {
	var market types.MarketSnapshot
	if err := readJSONFile(m.marketPath, &market); err != nil {
		return types.MarketSnapshot{}, err
	}
	if err := market.Validate(); err != nil {
		return types.MarketSnapshot{}, err
	}
	return market, nil
}

// GetRouteCandidates re-reads the routes file. An empty list is valid; the
// engine then evaluates risk without ranking routes.
func (m *FileManager) GetRouteCandidates() ([]types.RouteCandidate, error) {
	var routes []types.RouteCandidate
	if err := readJSONFile(m.routesPath, &routes); err != nil {
		return nil, err
	}
	return routes, nil
}

// Close is a no-op; the manager holds no open resources between calls.
func (m *FileManager) Close() error {
	return nil
}

func readJSONFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
