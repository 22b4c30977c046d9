package price

import (
	"context"
	"fmt"

	"github.com/selivandex/coinpulse/pkg/models"
)

// Provider fetches historical price data for one asset
type Provider interface {
	// GetName returns provider name
	GetName() string

	// MarketChartRange fetches the raw price series body for an asset over
	// the window, in a fixed currency and decimal precision
	MarketChartRange(ctx context.Context, assetID string, window models.TimeWindow) ([]byte, error)

	// CoinsList fetches the provider's selectable asset catalog
	CoinsList(ctx context.Context) ([]Coin, error)
}

// Coin is one entry of the provider's asset catalog
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// DisplayName renders the catalog entry for selection lists
func (c Coin) DisplayName() string {
	return fmt.Sprintf("%s (%s)", c.ID, c.Symbol)
}
