package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crypto-donation-tracker/internal/domain/entity"
	domain_service "crypto-donation-tracker/internal/domain/service"
	"crypto-donation-tracker/internal/infrastructure/config"

	"github.com/shopspring/decimal"
)

var blockTime = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

// healthySources hold 0.1 BTC, 2 ETH and 1000 USDT: $12000 at fallback prices
func healthySources() (*fakeSource, *fakeSource, *fakeSource) {
	btc := &fakeSource{
		asset: btcAsset,
		units: units("10000000"),
		txs: []entity.ChainTransaction{
			{Symbol: entity.AssetBTC, Hash: "aaaaaaaaaaaaaaaaaaaa", Amount: decimal.RequireFromString("0.01"), Timestamp: blockTime},
		},
	}
	eth := &fakeSource{
		asset: ethAsset,
		units: units("2000000000000000000"),
		txs: []entity.ChainTransaction{
			{Symbol: entity.AssetETH, Hash: "0xbbbbbbbbbbbbbbbbbbbb", Amount: decimal.NewFromInt(1), Timestamp: blockTime},
		},
	}
	usdt := &fakeSource{
		asset: usdtAsset,
		units: units("1000000000"),
		txs: []entity.ChainTransaction{
			{Symbol: entity.AssetUSDT, Hash: "cccccccccccccccccccc", Amount: decimal.NewFromInt(250), Timestamp: blockTime},
		},
	}
	return btc, eth, usdt
}

func newTracker(t *testing.T, cfg *config.Config, feed *fakePriceFeed, sources ...domain_service.AssetSource) (domain_service.TrackerService, *recordingSink) {
	t.Helper()
	log := testLogger(t)
	sink := &recordingSink{}
	gate := NewNotificationGate(entity.PermissionGranted, sink, log)
	milestones := NewMilestoneService(cfg, newMapRepository(), gate, log)
	return NewTrackerApplicationService(cfg, feed, sources, milestones, log), sink
}

func TestRunCycleFallbackPrices(t *testing.T) {
	btc, eth, usdt := healthySources()
	tracker, sink := newTracker(t, testConfig(), &fakePriceFeed{err: errUpstream}, btc, eth, usdt)

	snap, err := tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !snap.TotalUSD.Equal(decimal.NewFromInt(12000)) {
		t.Fatalf("total = %s, want 12000", snap.TotalUSD)
	}
	if snap.Progress.Percent != 24 || snap.Progress.PercentText != "24.0" || snap.Progress.FillWidth != "24%" {
		t.Fatalf("unexpected progress %+v", snap.Progress)
	}
	for _, p := range snap.Prices {
		if !p.Fallback {
			t.Errorf("%s price should be the fallback", p.Symbol)
		}
	}

	if len(snap.Milestones) != 5 || !snap.Milestones[0].Unlocked || snap.Milestones[1].Unlocked {
		t.Fatalf("unexpected milestones %+v", snap.Milestones)
	}
	if sink.count() != 1 {
		t.Fatalf("expected one unlock notification, got %d", sink.count())
	}
	if tracker.Latest() != snap {
		t.Fatal("Latest should return the published snapshot")
	}
}

func TestRunCycleTransactionRows(t *testing.T) {
	btc, eth, usdt := healthySources()
	// slow BTC must still come first
	btc.delay = 20 * time.Millisecond
	tracker, _ := newTracker(t, testConfig(), &fakePriceFeed{}, btc, eth, usdt)

	snap, err := tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []entity.Transaction{
		{Type: entity.AssetBTC, Hash: "aaaaaaaaaa...", Value: "600", Time: "1/2/2024, 3:04:05 PM", Link: "https://mempool.space/tx/aaaaaaaaaaaaaaaaaaaa"},
		{Type: entity.AssetETH, Hash: "0xbbbbbbbb...", Value: "2500", Time: "1/2/2024, 3:04:05 PM", Link: "https://etherscan.io/tx/0xbbbbbbbbbbbbbbbbbbbb"},
		{Type: entity.AssetUSDT, Hash: "cccccccccc...", Value: "250", Time: "1/2/2024, 3:04:05 PM", Link: "https://tronscan.org/#/transaction/cccccccccccccccccccc"},
	}
	if len(snap.Transactions) != len(want) {
		t.Fatalf("got %d rows, want %d", len(snap.Transactions), len(want))
	}
	for i := range want {
		if snap.Transactions[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, snap.Transactions[i], want[i])
		}
	}
}

func TestRunCycleLivePrices(t *testing.T) {
	btc, eth, usdt := healthySources()
	feed := &fakePriceFeed{quotes: map[string]decimal.Decimal{
		"bitcoin":  decimal.NewFromInt(100000),
		"ethereum": decimal.NewFromInt(3000),
	}}
	tracker, _ := newTracker(t, testConfig(), feed, btc, eth, usdt)

	snap, err := tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 0.1*100000 + 2*3000 + 1000*1
	if !snap.TotalUSD.Equal(decimal.NewFromInt(17000)) {
		t.Fatalf("total = %s, want 17000", snap.TotalUSD)
	}
	if snap.Prices[0].Fallback || snap.Prices[1].Fallback || !snap.Prices[2].Fallback {
		t.Fatalf("unexpected fallback flags %+v", snap.Prices)
	}
}

func TestRunCycleAllOrNothing(t *testing.T) {
	btc, eth, usdt := healthySources()
	eth.err = errUpstream
	tracker, sink := newTracker(t, testConfig(), &fakePriceFeed{}, btc, eth, usdt)

	snap, err := tracker.RunCycle(context.Background())
	if !errors.Is(err, ErrCycleFailed) {
		t.Fatalf("expected ErrCycleFailed, got %v", err)
	}
	if !errors.Is(err, errUpstream) {
		t.Fatalf("cause should be kept, got %v", err)
	}
	if !snap.Failed || !snap.TotalUSD.IsZero() || len(snap.Transactions) != 0 {
		t.Fatalf("failed cycle must be zeroed: %+v", snap)
	}
	if snap.Progress.Percent != 0 || snap.Progress.FillWidth != "0%" {
		t.Fatalf("unexpected progress %+v", snap.Progress)
	}
	if sink.count() != 0 {
		t.Fatal("failed cycle must not unlock milestones")
	}
	if tracker.Latest() != snap {
		t.Fatal("failed snapshot should still be published")
	}
}

func TestRunCyclePartial(t *testing.T) {
	cfg := testConfig()
	cfg.Aggregator.FailurePolicy = config.PolicyPartial
	btc, eth, usdt := healthySources()
	eth.err = errUpstream
	tracker, _ := newTracker(t, cfg, &fakePriceFeed{}, btc, eth, usdt)

	snap, err := tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("partial policy should not fail: %v", err)
	}
	if !snap.TotalUSD.Equal(decimal.NewFromInt(7000)) {
		t.Fatalf("total = %s, want 7000", snap.TotalUSD)
	}
	if _, ok := snap.Errors["ETH"]; !ok || len(snap.Errors) != 1 {
		t.Fatalf("expected an ETH error, got %v", snap.Errors)
	}
	for _, row := range snap.Transactions {
		if row.Type == entity.AssetETH {
			t.Fatal("failed asset must not contribute rows")
		}
	}
	if len(snap.Balances) != 2 {
		t.Fatalf("balances = %d", len(snap.Balances))
	}
}

func TestRunCycleCapsRowsPerAsset(t *testing.T) {
	btc, eth, usdt := healthySources()
	btc.txs = nil
	for i := 0; i < 7; i++ {
		btc.txs = append(btc.txs, entity.ChainTransaction{
			Hash:      fmt.Sprintf("hash%016d", i),
			Amount:    decimal.RequireFromString("0.001"),
			Timestamp: blockTime,
		})
	}
	tracker, _ := newTracker(t, testConfig(), &fakePriceFeed{}, btc, eth, usdt)

	snap, err := tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var btcRows int
	for _, row := range snap.Transactions {
		if row.Type == entity.AssetBTC {
			btcRows++
		}
	}
	if btcRows != 5 || len(snap.Transactions) != 7 {
		t.Fatalf("btc rows = %d, total rows = %d", btcRows, len(snap.Transactions))
	}
}

func TestLatestBeforeFirstCycle(t *testing.T) {
	btc, eth, usdt := healthySources()
	tracker, _ := newTracker(t, testConfig(), &fakePriceFeed{}, btc, eth, usdt)

	snap := tracker.Latest()
	if snap == nil || !snap.TotalUSD.IsZero() || snap.Progress.PercentText != "0.0" {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}
	if len(snap.Milestones) != 5 || snap.Milestones[0].Unlocked {
		t.Fatalf("all milestones should start locked: %+v", snap.Milestones)
	}
}

func TestRunCycleCancelledKeepsPreviousSnapshot(t *testing.T) {
	btc, eth, usdt := healthySources()
	tracker, _ := newTracker(t, testConfig(), &fakePriceFeed{}, btc, eth, usdt)

	good, err := tracker.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	btc.delay = 50 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snap, err := tracker.RunCycle(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrCycleFailed) {
		t.Fatal("a cancelled cycle is not a source failure")
	}
	if snap != good || tracker.Latest() != good {
		t.Fatal("cancelled cycle replaced the published snapshot")
	}
	if !tracker.Latest().TotalUSD.Equal(decimal.NewFromInt(12000)) || tracker.Latest().Failed {
		t.Fatalf("unexpected snapshot %+v", tracker.Latest())
	}
}
