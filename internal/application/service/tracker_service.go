package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrCycleFailed is returned when the all-or-nothing policy discarded a cycle
var ErrCycleFailed = errors.New("aggregation cycle failed")

// assetResult is what one source produced during a cycle
type assetResult struct {
	units *big.Int
	txs   []entity.ChainTransaction
	err   error
}

// TrackerApplicationService implements TrackerService: it runs aggregation
// cycles and publishes each result as an immutable snapshot
type TrackerApplicationService struct {
	priceFeed  service.PriceFeed
	sources    []service.AssetSource
	milestones *MilestoneService
	goal       decimal.Decimal
	policy     string
	maxTx      int
	hashLength int
	location   *time.Location
	timeLayout string
	logger     *logger.Logger

	cycleMu sync.Mutex
	latest  atomic.Pointer[entity.Snapshot]
}

// NewTrackerApplicationService creates the aggregator. Sources are merged in
// the order given.
func NewTrackerApplicationService(
	cfg *config.Config,
	priceFeed service.PriceFeed,
	sources []service.AssetSource,
	milestones *MilestoneService,
	logger *logger.Logger,
) service.TrackerService {
	s := &TrackerApplicationService{
		priceFeed:  priceFeed,
		sources:    sources,
		milestones: milestones,
		goal:       decimal.NewFromFloat(cfg.Campaign.GoalUSD),
		policy:     cfg.Aggregator.FailurePolicy,
		maxTx:      cfg.Aggregator.MaxTxPerAsset,
		hashLength: cfg.Aggregator.HashDisplayLength,
		location:   cfg.Location(),
		timeLayout: cfg.App.TimeLayout,
		logger:     logger.WithComponent("tracker-service"),
	}
	initial := entity.EmptySnapshot()
	initial.Progress = service.ComputeProgress(decimal.Zero, s.goal)
	initial.Milestones = service.MilestoneStates(milestones.Milestones(), 0)
	s.latest.Store(initial)
	return s
}

// Latest returns the most recently published snapshot
func (s *TrackerApplicationService) Latest() *entity.Snapshot {
	return s.latest.Load()
}

// RunCycle fetches prices, balances and transactions from scratch, derives
// progress and milestone state, and publishes the new snapshot. Under the
// all-or-nothing policy any source failure yields a zeroed snapshot and
// ErrCycleFailed. A cycle whose ctx ends early publishes nothing.
func (s *TrackerApplicationService) RunCycle(ctx context.Context) (*entity.Snapshot, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	start := time.Now()
	s.logger.Info("Starting aggregation cycle", zap.String("policy", s.policy))

	assets := make([]entity.Asset, 0, len(s.sources))
	ids := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		assets = append(assets, src.Asset())
		ids = append(ids, src.Asset().PriceID)
	}

	// Prices first: a failing feed degrades to fallbacks, never aborts
	quotes, err := s.priceFeed.FetchPrices(ctx, ids)
	if err != nil {
		s.logger.Warn("Price feed unavailable, using fallback prices", zap.Error(err))
	}
	prices := service.ResolvePrices(assets, quotes)

	results := s.fetchAssets(ctx)

	// A caller that went away is not an upstream failure: keep the last snapshot
	if err := ctx.Err(); err != nil {
		s.logger.Warn("Aggregation cycle aborted, keeping previous snapshot", zap.Error(err))
		return s.latest.Load(), fmt.Errorf("aggregation cycle aborted: %w", err)
	}

	snapshot := &entity.Snapshot{
		TotalUSD:     decimal.Zero,
		Prices:       prices,
		Balances:     make([]entity.AddressBalance, 0, len(assets)),
		Transactions: make([]entity.Transaction, 0, len(assets)*s.maxTx),
		FetchedAt:    time.Now(),
	}

	var cycleErr error
	for i, res := range results {
		asset := assets[i]
		if res.err != nil {
			if snapshot.Errors == nil {
				snapshot.Errors = make(map[string]string)
			}
			snapshot.Errors[string(asset.Symbol)] = res.err.Error()
			cycleErr = errors.Join(cycleErr, res.err)
			s.logger.Error("Asset source failed",
				zap.String("asset", string(asset.Symbol)),
				zap.Error(res.err))
			continue
		}

		price := prices[i].USD
		amount := entity.ToWholeUnits(res.units, asset.Decimals)
		value := amount.Mul(price)
		snapshot.Balances = append(snapshot.Balances, entity.AddressBalance{
			Symbol:   asset.Symbol,
			Address:  asset.Address,
			Units:    res.units,
			Amount:   amount,
			ValueUSD: value,
		})
		snapshot.TotalUSD = snapshot.TotalUSD.Add(value)

		for _, tx := range res.txs {
			snapshot.Transactions = append(snapshot.Transactions, s.toDisplay(asset, tx, price))
		}
	}

	if cycleErr != nil && s.policy != config.PolicyPartial {
		snapshot.TotalUSD = decimal.Zero
		snapshot.Balances = []entity.AddressBalance{}
		snapshot.Transactions = []entity.Transaction{}
		snapshot.Failed = true
	}

	snapshot.Progress = service.ComputeProgress(snapshot.TotalUSD, s.goal)
	snapshot.Milestones = s.milestones.Update(ctx, snapshot.Progress.Percent)

	s.latest.Store(snapshot)

	s.logger.Info("Aggregation cycle completed",
		zap.String("total_usd", snapshot.TotalUSD.StringFixed(2)),
		zap.Float64("percent", snapshot.Progress.Percent),
		zap.Int("transactions", len(snapshot.Transactions)),
		zap.Bool("failed", snapshot.Failed),
		zap.Duration("took", time.Since(start)))

	if snapshot.Failed {
		return snapshot, fmt.Errorf("%w: %w", ErrCycleFailed, cycleErr)
	}
	return snapshot, nil
}

// fetchAssets queries every source concurrently. Under all-or-nothing the
// first failure cancels the remaining calls since their results would be
// discarded anyway.
func (s *TrackerApplicationService) fetchAssets(ctx context.Context) []assetResult {
	results := make([]assetResult, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range s.sources {
		g.Go(func() error {
			res := s.fetchAsset(gctx, src)
			results[i] = res
			if s.policy == config.PolicyPartial {
				return nil
			}
			return res.err
		})
	}
	_ = g.Wait()

	return results
}

func (s *TrackerApplicationService) fetchAsset(ctx context.Context, src service.AssetSource) assetResult {
	units, err := src.FetchBalance(ctx)
	if err != nil {
		return assetResult{err: err}
	}
	txs, err := src.FetchIncoming(ctx, s.maxTx)
	if err != nil {
		return assetResult{err: err}
	}
	if len(txs) > s.maxTx {
		txs = txs[:s.maxTx]
	}
	return assetResult{units: units, txs: txs}
}

// toDisplay converts a chain transfer into a table row valued in USD
func (s *TrackerApplicationService) toDisplay(asset entity.Asset, tx entity.ChainTransaction, price decimal.Decimal) entity.Transaction {
	row := entity.Transaction{
		Type:  asset.Symbol,
		Hash:  service.TruncateHash(tx.Hash, s.hashLength),
		Value: tx.Amount.Mul(price).StringFixed(0),
		Time:  tx.Timestamp.In(s.location).Format(s.timeLayout),
	}
	if asset.ExplorerTxURL != "" {
		row.Link = fmt.Sprintf(asset.ExplorerTxURL, tx.Hash)
	}
	return row
}
