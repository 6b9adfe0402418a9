package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChainTransaction is an incoming transfer as read from a chain indexer,
// before fiat conversion
type ChainTransaction struct {
	Symbol    AssetSymbol     `json:"symbol"`
	Hash      string          `json:"hash"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// Transaction is the display record shown in the tracker table
type Transaction struct {
	Type  AssetSymbol `json:"type"`
	Hash  string      `json:"hash"`
	Value string      `json:"value"`
	Time  string      `json:"time"`
	Link  string      `json:"link"`
}
