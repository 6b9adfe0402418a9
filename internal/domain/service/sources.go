package service

import (
	"context"
	"math/big"

	"crypto-donation-tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// PriceFeed queries fiat spot prices keyed by price-feed id (bitcoin, ethereum, tether)
type PriceFeed interface {
	FetchPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error)
}

// AssetSource reads one donation address from its chain indexer
type AssetSource interface {
	// Asset returns the asset table row this source serves
	Asset() entity.Asset

	// FetchBalance returns the address balance in smallest units
	FetchBalance(ctx context.Context) (*big.Int, error)

	// FetchIncoming returns up to limit incoming transfers, newest first
	FetchIncoming(ctx context.Context, limit int) ([]entity.ChainTransaction, error)
}

// TrackerService defines the aggregation operations exposed to the transport layer
type TrackerService interface {
	// RunCycle fetches everything from scratch and publishes a new snapshot
	RunCycle(ctx context.Context) (*entity.Snapshot, error)

	// Latest returns the most recently published snapshot
	Latest() *entity.Snapshot
}

// ResolvePrices maps raw feed quotes onto the asset table, applying the
// per-asset fallback for every missing or non-positive quote.
func ResolvePrices(assets []entity.Asset, quotes map[string]decimal.Decimal) []entity.AssetPrice {
	prices := make([]entity.AssetPrice, 0, len(assets))
	for _, asset := range assets {
		price := entity.AssetPrice{Symbol: asset.Symbol, USD: asset.PriceFallback, Fallback: true}
		if quote, ok := quotes[asset.PriceID]; ok && quote.IsPositive() {
			price.USD = quote
			price.Fallback = false
		}
		prices = append(prices, price)
	}
	return prices
}
