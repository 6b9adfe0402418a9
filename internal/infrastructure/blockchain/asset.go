package blockchain

import (
	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"

	"github.com/shopspring/decimal"
)

// NewAsset converts an asset table row from configuration
func NewAsset(cfg config.AssetConfig) entity.Asset {
	return entity.Asset{
		Symbol:        entity.AssetSymbol(cfg.Symbol),
		Address:       cfg.Address,
		PriceID:       cfg.PriceID,
		PriceFallback: decimal.NewFromFloat(cfg.PriceFallback),
		Decimals:      cfg.Decimals,
		ExplorerTxURL: cfg.ExplorerTxURL,
		QRPrefix:      cfg.QRPrefix,
	}
}
