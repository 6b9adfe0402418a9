package service

import (
	"reflect"
	"testing"

	"crypto-donation-tracker/internal/domain/entity"

	"github.com/shopspring/decimal"
)

func sampleTransactions() []entity.Transaction {
	return []entity.Transaction{
		{Type: entity.AssetBTC, Hash: "b1", Value: "600"},
		{Type: entity.AssetBTC, Hash: "b2", Value: "120"},
		{Type: entity.AssetETH, Hash: "e1", Value: "250"},
		{Type: entity.AssetETH, Hash: "e2", Value: "50"},
		{Type: entity.AssetETH, Hash: "e3", Value: "75"},
		{Type: entity.AssetUSDT, Hash: "u1", Value: "100"},
		{Type: entity.AssetUSDT, Hash: "u2", Value: "20"},
	}
}

func TestFilterTransactions(t *testing.T) {
	list := sampleTransactions()

	tests := []struct {
		tab  string
		want []string
	}{
		{"all", []string{"b1", "b2", "e1", "e2", "e3"}},
		{"", []string{"b1", "b2", "e1", "e2", "e3"}},
		{"btc", []string{"b1", "b2"}},
		{"ETH", []string{"e1", "e2", "e3"}},
		{"usdt", []string{"u1", "u2"}},
		{"doge", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.tab, func(t *testing.T) {
			rows := FilterTransactions(list, tt.tab, 5)
			got := make([]string, 0, len(rows))
			for _, r := range rows {
				got = append(got, r.Hash)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FilterTransactions(%q) = %v, want %v", tt.tab, got, tt.want)
			}
		})
	}
}

func TestFilterTransactionsRowBound(t *testing.T) {
	list := sampleTransactions()
	for _, tab := range []string{"all", "btc", "eth", "usdt", "sol"} {
		for limit := -2; limit <= 8; limit++ {
			rows := FilterTransactions(list, tab, limit)
			if rows == nil {
				t.Fatalf("tab %s limit %d: nil rows", tab, limit)
			}
			if len(rows) > max(limit, 0) {
				t.Fatalf("tab %s limit %d: got %d rows", tab, limit, len(rows))
			}
			if len(rows) > len(list) {
				t.Fatalf("tab %s: more rows than input", tab)
			}
		}
	}
}

func TestFilterTransactionsTabRoundTrip(t *testing.T) {
	list := sampleTransactions()

	first := FilterTransactions(list, "btc", 5)
	_ = FilterTransactions(list, "all", 5)
	again := FilterTransactions(list, "btc", 5)

	if !reflect.DeepEqual(first, again) {
		t.Fatalf("filter is not stable: %v vs %v", first, again)
	}
	if !reflect.DeepEqual(list, sampleTransactions()) {
		t.Fatal("filter mutated the input list")
	}
}

func TestTruncateHash(t *testing.T) {
	if got := TruncateHash("0123456789abcdef", 10); got != "0123456789..." {
		t.Errorf("got %q", got)
	}
	if got := TruncateHash("abc", 10); got != "abc..." {
		t.Errorf("got %q", got)
	}
}

func TestResolvePrices(t *testing.T) {
	assets := []entity.Asset{
		{Symbol: entity.AssetBTC, PriceID: "bitcoin", PriceFallback: decimal.NewFromInt(60000)},
		{Symbol: entity.AssetETH, PriceID: "ethereum", PriceFallback: decimal.NewFromInt(2500)},
		{Symbol: entity.AssetUSDT, PriceID: "tether", PriceFallback: decimal.NewFromInt(1)},
	}
	quotes := map[string]decimal.Decimal{
		"bitcoin":  decimal.NewFromInt(65000),
		"ethereum": decimal.Zero,
	}

	prices := ResolvePrices(assets, quotes)

	if !prices[0].USD.Equal(decimal.NewFromInt(65000)) || prices[0].Fallback {
		t.Errorf("btc = %+v, want live quote", prices[0])
	}
	if !prices[1].USD.Equal(decimal.NewFromInt(2500)) || !prices[1].Fallback {
		t.Errorf("eth = %+v, want fallback", prices[1])
	}
	if !prices[2].USD.Equal(decimal.NewFromInt(1)) || !prices[2].Fallback {
		t.Errorf("usdt = %+v, want fallback", prices[2])
	}
}
