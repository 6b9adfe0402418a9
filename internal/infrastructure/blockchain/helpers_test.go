package blockchain

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap/zaptest"
)

const (
	testBTCAddress  = "bc1q036k7urq5pvjq29pep96ds4gftgmwycymnzs48"
	testETHAddress  = "0xb8DDf6611c7A8a5D726B68F2A5F110BD2B839dAd"
	testTronAddress = "TWuspo2EFsdb551sVaXJjM7yZ3fGiP2UZ5"
)

func testConfig(endpoint string) *config.Config {
	return &config.Config{
		Aggregator: config.AggregatorConfig{
			RequestTimeout: 2 * time.Second,
			UserAgent:      "tracker-test",
		},
		PriceFeed: config.PriceFeedConfig{URL: endpoint, Currency: "usd"},
		Assets: config.AssetsConfig{
			BTC: config.AssetConfig{
				Symbol: "BTC", Address: testBTCAddress, PriceID: "bitcoin",
				PriceFallback: 60000, Decimals: 8, Endpoint: endpoint,
			},
			ETH: config.AssetConfig{
				Symbol: "ETH", Address: testETHAddress, PriceID: "ethereum",
				PriceFallback: 2500, Decimals: 18, Endpoint: endpoint + "/rpc",
				TxListURL: endpoint + "/api", APIKey: "test-key",
			},
			USDT: config.AssetConfig{
				Symbol: "USDT", Address: testTronAddress, PriceID: "tether",
				PriceFallback: 1, Decimals: 6, Endpoint: endpoint,
			},
		},
	}
}

func testLogger(t *testing.T) *logger.Logger {
	return logger.Wrap(zaptest.NewLogger(t))
}

func newTestServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}
