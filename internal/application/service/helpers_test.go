package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	"crypto-donation-tracker/internal/infrastructure/config"
	"crypto-donation-tracker/internal/infrastructure/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

func testLogger(t *testing.T) *logger.Logger {
	return logger.Wrap(zaptest.NewLogger(t))
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			SiteOrigin: "https://example.org/",
			Timezone:   "UTC",
			TimeLayout: "1/2/2006, 3:04:05 PM",
		},
		Campaign: config.CampaignConfig{
			Beneficiary: "James",
			GoalUSD:     50000,
			Milestones: []config.MilestoneConfig{
				{Percent: 20, Label: "Surgery covered", Message: "20% reached!"},
				{Percent: 40, Label: "Hospital stay", Message: "40% reached!"},
				{Percent: 60, Label: "Therapy", Message: "60% reached!"},
				{Percent: 80, Label: "Recovery", Message: "80% reached!"},
				{Percent: 100, Label: "Goal", Message: "Goal reached!"},
			},
		},
		Aggregator: config.AggregatorConfig{
			FailurePolicy:     config.PolicyAllOrNothing,
			MaxTxPerAsset:     5,
			HashDisplayLength: 10,
		},
		Notifications: config.NotificationsConfig{
			InitialPermission: "default",
			Icon:              "/icon.png",
			ClickURL:          "/",
			Tag:               "james-milestone",
		},
		Email: config.EmailConfig{
			Enabled:           true,
			ContactTemplateID: "template_contact",
			DonateTemplateID:  "template_donate",
		},
		Testimonials: config.TestimonialsConfig{
			Interval: 5 * time.Second,
			Items: []config.TestimonialConfig{
				{Author: "A", Quote: "first"},
				{Author: "B", Quote: "second"},
				{Author: "C", Quote: "third"},
			},
		},
	}
}

var (
	btcAsset = entity.Asset{
		Symbol: entity.AssetBTC, Address: "bc1q036k7urq5pvjq29pep96ds4gftgmwycymnzs48", PriceID: "bitcoin",
		PriceFallback: decimal.NewFromInt(60000), Decimals: 8, ExplorerTxURL: "https://mempool.space/tx/%s",
	}
	ethAsset = entity.Asset{
		Symbol: entity.AssetETH, Address: "0xb8DDf6611c7A8a5D726B68F2A5F110BD2B839dAd", PriceID: "ethereum",
		PriceFallback: decimal.NewFromInt(2500), Decimals: 18, ExplorerTxURL: "https://etherscan.io/tx/%s",
		QRPrefix: "ethereum:",
	}
	usdtAsset = entity.Asset{
		Symbol: entity.AssetUSDT, Address: "TWuspo2EFsdb551sVaXJjM7yZ3fGiP2UZ5", PriceID: "tether",
		PriceFallback: decimal.NewFromInt(1), Decimals: 6, ExplorerTxURL: "https://tronscan.org/#/transaction/%s",
	}
)

type fakePriceFeed struct {
	quotes map[string]decimal.Decimal
	err    error
}

func (f *fakePriceFeed) FetchPrices(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	return f.quotes, f.err
}

type fakeSource struct {
	asset entity.Asset
	units *big.Int
	txs   []entity.ChainTransaction
	err   error
	delay time.Duration
}

func (f *fakeSource) Asset() entity.Asset { return f.asset }

func (f *fakeSource) FetchBalance(ctx context.Context) (*big.Int, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.units, nil
}

func (f *fakeSource) FetchIncoming(ctx context.Context, limit int) ([]entity.ChainTransaction, error) {
	return f.txs, nil
}

type recordingSink struct {
	mu  sync.Mutex
	got []*entity.Notification
	err error
}

func (s *recordingSink) Deliver(ctx context.Context, n *entity.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

type mapRepository struct {
	mu      sync.Mutex
	seen    map[string]bool
	readErr error
}

func newMapRepository() *mapRepository {
	return &mapRepository{seen: make(map[string]bool)}
}

func (r *mapRepository) HasSeen(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readErr != nil {
		return false, r.readErr
	}
	return r.seen[key], nil
}

func (r *mapRepository) MarkSeen(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[key] = true
	return nil
}

func (r *mapRepository) Reset(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := int64(len(r.seen))
	r.seen = make(map[string]bool)
	return n, nil
}

var errUpstream = errors.New("upstream unavailable")

// units parses a smallest-unit integer
func units(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad integer " + s)
	}
	return n
}
