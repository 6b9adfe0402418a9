package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// AssetSymbol identifies a tracked donation asset
type AssetSymbol string

const (
	AssetBTC  AssetSymbol = "BTC"
	AssetETH  AssetSymbol = "ETH"
	AssetUSDT AssetSymbol = "USDT"
)

// Asset is one row of the declarative asset table
type Asset struct {
	Symbol        AssetSymbol     `json:"symbol"`
	Address       string          `json:"address"`
	PriceID       string          `json:"price_id"`
	PriceFallback decimal.Decimal `json:"price_fallback"`
	Decimals      int32           `json:"decimals"`
	ExplorerTxURL string          `json:"explorer_tx_url"`
	QRPrefix      string          `json:"qr_prefix,omitempty"`
}

// QRPayload is the string encoded into the donation QR code
func (a Asset) QRPayload() string {
	return a.QRPrefix + a.Address
}

// AssetPrice is a fiat spot price for one asset
type AssetPrice struct {
	Symbol   AssetSymbol     `json:"symbol"`
	USD      decimal.Decimal `json:"usd"`
	Fallback bool            `json:"fallback"`
}

// AddressBalance is the balance of a donation address in smallest units
type AddressBalance struct {
	Symbol   AssetSymbol     `json:"symbol"`
	Address  string          `json:"address"`
	Units    *big.Int        `json:"units"`
	Amount   decimal.Decimal `json:"amount"`
	ValueUSD decimal.Decimal `json:"value_usd"`
}

// ToWholeUnits converts a smallest-unit integer into whole asset units
func ToWholeUnits(units *big.Int, decimals int32) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -decimals)
}
