package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// esploraAddress is the subset of GET /address/{addr} we read
type esploraAddress struct {
	ChainStats *struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
	} `json:"chain_stats"`
}

type esploraTx struct {
	TxID string `json:"txid"`
	Vin  []struct {
		Prevout *struct {
			ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		} `json:"prevout"`
	} `json:"vin"`
	Vout []struct {
		ScriptPubKeyAddress string `json:"scriptpubkey_address"`
		Value               int64  `json:"value"`
	} `json:"vout"`
	Status struct {
		Confirmed bool  `json:"confirmed"`
		BlockTime int64 `json:"block_time"`
	} `json:"status"`
}

// EsploraSource reads a bitcoin address from an Esplora-compatible indexer
// (blockstream.info, mempool.space)
type EsploraSource struct {
	asset   entity.Asset
	baseURL string
	client  *jsonClient
	logger  *logger.Logger
}

// NewEsploraSource creates the BTC asset source
func NewEsploraSource(cfg *config.Config, httpClient *http.Client, logger *logger.Logger) *EsploraSource {
	return &EsploraSource{
		asset:   NewAsset(cfg.Assets.BTC),
		baseURL: strings.TrimRight(cfg.Assets.BTC.Endpoint, "/"),
		client:  newJSONClient(httpClient, cfg.Aggregator.RequestTimeout, cfg.Aggregator.UserAgent),
		logger:  logger.WithComponent("esplora-source").WithAsset(cfg.Assets.BTC.Symbol),
	}
}

// Asset returns the BTC asset row
func (s *EsploraSource) Asset() entity.Asset {
	return s.asset
}

// FetchBalance returns funded minus spent satoshis of confirmed outputs
func (s *EsploraSource) FetchBalance(ctx context.Context) (*big.Int, error) {
	var addr esploraAddress
	url := fmt.Sprintf("%s/address/%s", s.baseURL, s.asset.Address)
	if err := s.client.getJSON(ctx, url, &addr); err != nil {
		return nil, wrapWithCode(CodeBTCIndexer, "address", err)
	}
	if addr.ChainStats == nil {
		return nil, wrapWithCode(CodeBTCIndexer, "address", errors.New("missing chain_stats"))
	}

	sat := addr.ChainStats.FundedTxoSum - addr.ChainStats.SpentTxoSum
	s.logger.Debug("Fetched address balance", zap.Int64("satoshi", sat))
	return big.NewInt(sat), nil
}

// FetchIncoming returns up to limit confirmed transactions that credit the
// address and were not sent by it
func (s *EsploraSource) FetchIncoming(ctx context.Context, limit int) ([]entity.ChainTransaction, error) {
	var txs []esploraTx
	url := fmt.Sprintf("%s/address/%s/txs/chain", s.baseURL, s.asset.Address)
	if err := s.client.getJSON(ctx, url, &txs); err != nil {
		return nil, wrapWithCode(CodeBTCIndexer, "txs/chain", err)
	}

	result := make([]entity.ChainTransaction, 0, limit)
	for _, tx := range txs {
		if len(result) >= limit {
			break
		}
		if s.isOutgoing(tx) {
			continue
		}

		credited := s.creditedSatoshi(tx)
		if credited <= 0 {
			continue
		}

		result = append(result, entity.ChainTransaction{
			Symbol:    s.asset.Symbol,
			Hash:      tx.TxID,
			Amount:    entity.ToWholeUnits(big.NewInt(credited), s.asset.Decimals),
			Timestamp: time.Unix(tx.Status.BlockTime, 0),
		})
	}

	s.logger.Debug("Fetched incoming transactions",
		zap.Int("scanned", len(txs)),
		zap.Int("incoming", len(result)))
	return result, nil
}

// isOutgoing reports whether the first input spends from the tracked address
func (s *EsploraSource) isOutgoing(tx esploraTx) bool {
	if len(tx.Vin) == 0 || tx.Vin[0].Prevout == nil {
		return false
	}
	return tx.Vin[0].Prevout.ScriptPubKeyAddress == s.asset.Address
}

func (s *EsploraSource) creditedSatoshi(tx esploraTx) int64 {
	var sum int64
	for _, out := range tx.Vout {
		if out.ScriptPubKeyAddress == s.asset.Address {
			sum += out.Value
		}
	}
	return sum
}
