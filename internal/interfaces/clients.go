// Package interfaces defines service contracts for navwatch
package interfaces

import (
	"context"

	"github.com/bobmcallan/navwatch/internal/models"
)

// ReferenceSource fetches the authoritative published NAV for a fund.
type ReferenceSource interface {
	FetchReferenceSnapshot(ctx context.Context, code string) (*models.ReferenceSnapshot, error)
}

// HoldingsSource fetches the disclosed top holdings of a fund.
type HoldingsSource interface {
	FetchHoldings(ctx context.Context, code string) ([]models.Holding, error)
}

// WeightsSource fetches the stock/bond allocation of a fund. A missing row is
// filled from defaults rather than reported as an error.
type WeightsSource interface {
	FetchAssetWeights(ctx context.Context, code string) (*models.AssetWeights, error)
}

// QuoteSource fetches live quotes for a batch of exchange-prefixed symbols.
// Symbols the feed does not return are absent from the map.
type QuoteSource interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}
