package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	domain_service "crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/blockchain"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// Queries every upstream once and logs what the aggregator would see,
// without touching milestone flags or notification sinks.
func main() {
	log, err := logger.NewLogger("debug", "development")
	if err != nil {
		panic(err)
	}
	log = log.WithComponent("check-sources")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := &http.Client{Timeout: cfg.Aggregator.RequestTimeout}

	eth, err := blockchain.NewEthereumSource(cfg, client, log)
	if err != nil {
		log.Fatal("Failed to create Ethereum source", zap.Error(err))
	}
	defer eth.Close()

	sources := []domain_service.AssetSource{
		blockchain.NewEsploraSource(cfg, client, log),
		eth,
		blockchain.NewTronscanSource(cfg, client, log),
	}

	ids := make([]string, 0, len(sources))
	for _, src := range sources {
		ids = append(ids, src.Asset().PriceID)
	}

	feed := blockchain.NewCoinGeckoPriceFeed(cfg, client, log)
	quotes, err := feed.FetchPrices(ctx, ids)
	if err != nil {
		log.Warn("Price feed failed, fallbacks apply", zap.Error(err))
	}
	for _, price := range domain_service.ResolvePrices(assetsOf(sources), quotes) {
		log.Info("Price",
			zap.String("asset", string(price.Symbol)),
			zap.String("usd", price.USD.String()),
			zap.Bool("fallback", price.Fallback))
	}

	failed := false
	for _, src := range sources {
		asset := src.Asset()
		srcLog := log.WithFields(map[string]interface{}{
			"asset":   asset.Symbol,
			"address": asset.Address,
		})

		units, err := src.FetchBalance(ctx)
		if err != nil {
			srcLog.Error("Balance failed", zap.Error(err))
			failed = true
			continue
		}
		srcLog.Info("Balance", zap.String("units", units.String()))

		txs, err := src.FetchIncoming(ctx, cfg.Aggregator.MaxTxPerAsset)
		if err != nil {
			srcLog.Error("Transactions failed", zap.Error(err))
			failed = true
			continue
		}
		for i, tx := range txs {
			srcLog.Info("Incoming transaction",
				zap.Int("n", i+1),
				zap.String("hash", tx.Hash),
				zap.String("amount", tx.Amount.String()),
				zap.Time("timestamp", tx.Timestamp))
		}
	}

	if failed {
		os.Exit(1)
	}
	log.Info("All sources answered")
}

func assetsOf(sources []domain_service.AssetSource) []entity.Asset {
	assets := make([]entity.Asset, 0, len(sources))
	for _, src := range sources {
		assets = append(assets, src.Asset())
	}
	return assets
}
