package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// etherscanResponse wraps every block-explorer answer; result is a list on
// success and a message string otherwise
type etherscanResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type etherscanTx struct {
	Hash      string `json:"hash"`
	From      string `json:"from"`
	To        string `json:"to"`
	Value     string `json:"value"`
	TimeStamp string `json:"timeStamp"`
	IsError   string `json:"isError"`
}

// EthereumSource reads the ETH balance over JSON-RPC and recent transfers
// from an Etherscan-compatible transaction-list API
type EthereumSource struct {
	asset     entity.Asset
	rpc       *ethclient.Client
	txListURL string
	apiKey    string
	client    *jsonClient
	logger    *logger.Logger
}

// NewEthereumSource creates the ETH asset source. Dialing an HTTP endpoint
// does not open a connection, so this only fails on a malformed URL.
func NewEthereumSource(cfg *config.Config, httpClient *http.Client, logger *logger.Logger) (*EthereumSource, error) {
	eth := cfg.Assets.ETH

	rpcClient, err := rpc.DialOptions(context.Background(), eth.Endpoint, rpc.WithHTTPClient(httpClientOrDefault(httpClient)))
	if err != nil {
		return nil, wrapWithCode(CodeETHRPC, "dial", err)
	}

	return &EthereumSource{
		asset:     NewAsset(eth),
		rpc:       ethclient.NewClient(rpcClient),
		txListURL: eth.TxListURL,
		apiKey:    eth.APIKey,
		client:    newJSONClient(httpClient, cfg.Aggregator.RequestTimeout, cfg.Aggregator.UserAgent),
		logger:    logger.WithComponent("ethereum-source").WithAsset(eth.Symbol),
	}, nil
}

// Asset returns the ETH asset row
func (s *EthereumSource) Asset() entity.Asset {
	return s.asset
}

// FetchBalance calls eth_getBalance(address, "latest") and returns wei
func (s *EthereumSource) FetchBalance(ctx context.Context) (*big.Int, error) {
	ctx, cancel := s.client.withTimeout(ctx)
	defer cancel()

	wei, err := s.rpc.BalanceAt(ctx, common.HexToAddress(s.asset.Address), nil)
	if err != nil {
		return nil, wrapWithCode(CodeETHRPC, "eth_getBalance", err)
	}

	s.logger.Debug("Fetched address balance", zap.String("wei", wei.String()))
	return wei, nil
}

// FetchIncoming returns up to limit transactions with a nonzero value,
// newest first
func (s *EthereumSource) FetchIncoming(ctx context.Context, limit int) ([]entity.ChainTransaction, error) {
	query := url.Values{}
	query.Set("module", "account")
	query.Set("action", "txlist")
	query.Set("address", s.asset.Address)
	query.Set("startblock", "0")
	query.Set("endblock", "99999999")
	query.Set("sort", "desc")
	query.Set("apikey", s.apiKey)

	var resp etherscanResponse
	if err := s.client.getJSON(ctx, s.txListURL+"?"+query.Encode(), &resp); err != nil {
		return nil, wrapWithCode(CodeETHTxList, "txlist", err)
	}

	result := make([]entity.ChainTransaction, 0, limit)
	if resp.Status != "1" {
		// "No transactions found" and rate limiting both land here
		s.logger.Info("Transaction list unavailable",
			zap.String("status", resp.Status),
			zap.String("message", resp.Message))
		return result, nil
	}

	var txs []etherscanTx
	if err := json.Unmarshal(resp.Result, &txs); err != nil {
		return nil, wrapWithCode(CodeETHTxList, "txlist", fmt.Errorf("JSON parse error: %w", err))
	}

	for _, tx := range txs {
		if len(result) >= limit {
			break
		}

		wei, ok := new(big.Int).SetString(tx.Value, 10)
		if !ok {
			return nil, wrapWithCode(CodeETHTxList, "txlist", fmt.Errorf("invalid value %q in %s", tx.Value, tx.Hash))
		}
		if wei.Sign() <= 0 {
			continue
		}

		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			return nil, wrapWithCode(CodeETHTxList, "txlist", fmt.Errorf("invalid timeStamp %q in %s: %w", tx.TimeStamp, tx.Hash, err))
		}

		result = append(result, entity.ChainTransaction{
			Symbol:    s.asset.Symbol,
			Hash:      tx.Hash,
			Amount:    entity.ToWholeUnits(wei, s.asset.Decimals),
			Timestamp: time.Unix(ts, 0),
		})
	}

	s.logger.Debug("Fetched transactions",
		zap.Int("scanned", len(txs)),
		zap.Int("kept", len(result)))
	return result, nil
}

// Close releases the RPC client
func (s *EthereumSource) Close() {
	s.rpc.Close()
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c == nil {
		return http.DefaultClient
	}
	return c
}
