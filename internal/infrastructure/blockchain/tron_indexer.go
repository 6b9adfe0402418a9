package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type tronToken struct {
	TokenName string      `json:"tokenName"`
	TokenAbbr string      `json:"tokenAbbr"`
	Symbol    string      `json:"symbol"`
	Balance   json.Number `json:"balance"`
}

type tronTokensResponse struct {
	Data []tronToken `json:"data"`
}

type tronTx struct {
	Hash            string      `json:"hash"`
	Timestamp       int64       `json:"timestamp"`
	ContractAddress string      `json:"contract_address"`
	Amount          json.Number `json:"amount"`
	TokenInfo       *struct {
		Symbol       string `json:"symbol"`
		TokenAbbr    string `json:"tokenAbbr"`
		TokenDecimal int32  `json:"tokenDecimal"`
	} `json:"tokenInfo"`
}

type tronTxResponse struct {
	Data []tronTx `json:"data"`
}

// TronscanSource reads a TRC20 token balance and transfers from the Tronscan API
type TronscanSource struct {
	asset   entity.Asset
	baseURL string
	client  *jsonClient
	logger  *logger.Logger
}

// NewTronscanSource creates the USDT-on-Tron asset source
func NewTronscanSource(cfg *config.Config, httpClient *http.Client, logger *logger.Logger) *TronscanSource {
	return &TronscanSource{
		asset:   NewAsset(cfg.Assets.USDT),
		baseURL: strings.TrimRight(cfg.Assets.USDT.Endpoint, "/"),
		client:  newJSONClient(httpClient, cfg.Aggregator.RequestTimeout, cfg.Aggregator.UserAgent),
		logger:  logger.WithComponent("tronscan-source").WithAsset(cfg.Assets.USDT.Symbol),
	}
}

// Asset returns the USDT asset row
func (s *TronscanSource) Asset() entity.Asset {
	return s.asset
}

// FetchBalance scans the token list for the tracked token. An address that
// never held it has a zero balance.
func (s *TronscanSource) FetchBalance(ctx context.Context) (*big.Int, error) {
	var resp tronTokensResponse
	endpoint := fmt.Sprintf("%s/api/account/tokens?address=%s", s.baseURL, url.QueryEscape(s.asset.Address))
	if err := s.client.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, wrapWithCode(CodeTronIndexer, "account/tokens", err)
	}

	for _, token := range resp.Data {
		if !s.matches(token.TokenName, token.TokenAbbr, token.Symbol) {
			continue
		}
		units, ok := new(big.Int).SetString(token.Balance.String(), 10)
		if !ok {
			return nil, wrapWithCode(CodeTronIndexer, "account/tokens", fmt.Errorf("invalid balance %q", token.Balance))
		}
		s.logger.Debug("Fetched token balance", zap.String("units", units.String()))
		return units, nil
	}

	return new(big.Int), nil
}

// FetchIncoming returns tracked-token contract transfers among the latest
// limit transactions of the address
func (s *TronscanSource) FetchIncoming(ctx context.Context, limit int) ([]entity.ChainTransaction, error) {
	query := url.Values{}
	query.Set("sort", "-timestamp")
	query.Set("count", "true")
	query.Set("limit", fmt.Sprint(limit))
	query.Set("start", "0")
	query.Set("address", s.asset.Address)

	var resp tronTxResponse
	if err := s.client.getJSON(ctx, s.baseURL+"/api/transaction?"+query.Encode(), &resp); err != nil {
		return nil, wrapWithCode(CodeTronIndexer, "transaction", err)
	}

	result := make([]entity.ChainTransaction, 0, limit)
	for _, tx := range resp.Data {
		if len(result) >= limit {
			break
		}
		if tx.ContractAddress == "" || tx.TokenInfo == nil {
			continue
		}
		if !s.matches(tx.TokenInfo.Symbol, tx.TokenInfo.TokenAbbr) {
			continue
		}

		amount := decimal.Zero
		if tx.Amount != "" {
			parsed, err := decimal.NewFromString(tx.Amount.String())
			if err != nil {
				return nil, wrapWithCode(CodeTronIndexer, "transaction", fmt.Errorf("invalid amount %q in %s: %w", tx.Amount, tx.Hash, err))
			}
			amount = parsed
		}
		if tx.TokenInfo.TokenDecimal > 0 {
			amount = amount.Shift(-tx.TokenInfo.TokenDecimal)
		}

		result = append(result, entity.ChainTransaction{
			Symbol:    s.asset.Symbol,
			Hash:      tx.Hash,
			Amount:    amount,
			Timestamp: time.UnixMilli(tx.Timestamp),
		})
	}

	s.logger.Debug("Fetched transactions",
		zap.Int("scanned", len(resp.Data)),
		zap.Int("kept", len(result)))
	return result, nil
}

// matches reports whether any of the given names equals the asset symbol
func (s *TronscanSource) matches(names ...string) bool {
	for _, name := range names {
		if strings.EqualFold(name, string(s.asset.Symbol)) {
			return true
		}
	}
	return false
}
