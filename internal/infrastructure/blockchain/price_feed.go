package blockchain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CoinGeckoPriceFeed reads spot prices from the /simple/price endpoint
type CoinGeckoPriceFeed struct {
	baseURL  string
	currency string
	client   *jsonClient
	logger   *logger.Logger
}

// NewCoinGeckoPriceFeed creates a price feed client
func NewCoinGeckoPriceFeed(cfg *config.Config, httpClient *http.Client, logger *logger.Logger) *CoinGeckoPriceFeed {
	return &CoinGeckoPriceFeed{
		baseURL:  strings.TrimRight(cfg.PriceFeed.URL, "/"),
		currency: cfg.PriceFeed.Currency,
		client:   newJSONClient(httpClient, cfg.Aggregator.RequestTimeout, cfg.Aggregator.UserAgent),
		logger:   logger.WithComponent("price-feed"),
	}
}

// FetchPrices returns the quotes present in the response. Ids missing from
// the response are simply absent from the map.
func (f *CoinGeckoPriceFeed) FetchPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", f.currency)
	endpoint := fmt.Sprintf("%s/simple/price?%s", f.baseURL, query.Encode())

	start := time.Now()
	var body map[string]map[string]decimal.Decimal
	if err := f.client.getJSON(ctx, endpoint, &body); err != nil {
		return nil, wrapWithCode(CodePriceFeed, "simple/price", err)
	}

	quotes := make(map[string]decimal.Decimal, len(body))
	for id, byCurrency := range body {
		if price, ok := byCurrency[f.currency]; ok {
			quotes[id] = price
		}
	}

	f.logger.Debug("Fetched spot prices",
		zap.Int("requested", len(ids)),
		zap.Int("received", len(quotes)),
		zap.Duration("took", time.Since(start)))
	return quotes, nil
}
