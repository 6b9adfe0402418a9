package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "app:\n  log_level: debug\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.App.LogLevel)
	}
	if cfg.Campaign.GoalUSD != 50000 || cfg.Campaign.Beneficiary != "James" || cfg.Campaign.AccidentDate != "November 14, 2025" {
		t.Errorf("campaign = %+v", cfg.Campaign)
	}
	if len(cfg.Campaign.Milestones) != 5 || cfg.Campaign.Milestones[4].Percent != 100 {
		t.Errorf("milestones = %+v", cfg.Campaign.Milestones)
	}
	if cfg.Aggregator.FailurePolicy != PolicyAllOrNothing || cfg.Aggregator.RequestTimeout != 10*time.Second {
		t.Errorf("aggregator = %+v", cfg.Aggregator)
	}
	if cfg.Assets.ETH.Decimals != 18 || cfg.Assets.ETH.QRPrefix != "ethereum:" || cfg.Assets.USDT.PriceFallback != 1 {
		t.Errorf("assets = %+v", cfg.Assets)
	}
	if len(cfg.Testimonials.Items) != 3 || cfg.Testimonials.Interval != 5*time.Second {
		t.Errorf("testimonials = %+v", cfg.Testimonials)
	}
	if cfg.Store.Driver != StoreMemory {
		t.Errorf("store = %q", cfg.Store.Driver)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, `
campaign:
  goal_usd: 1000
aggregator:
  failure_policy: partial
store:
  driver: postgres
postgres:
  host: db
  password: secret
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Campaign.GoalUSD != 1000 || cfg.Aggregator.FailurePolicy != PolicyPartial {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Campaign, cfg.Aggregator)
	}
	if dsn := cfg.Postgres.DSN(); dsn != "postgres://postgres:secret@db:5432/donations?sslmode=disable" {
		t.Fatalf("dsn = %q", dsn)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("CAMPAIGN_BENEFICIARY", "Ana")
	t.Setenv("ETHERSCAN_API_KEY", "env-key")

	cfg, err := LoadFile(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Campaign.Beneficiary != "Ana" {
		t.Errorf("beneficiary = %q", cfg.Campaign.Beneficiary)
	}
	if cfg.Assets.ETH.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Assets.ETH.APIKey)
	}
}

func TestLoadFileRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "goal", body: "campaign:\n  goal_usd: 0\n", want: "goal_usd"},
		{name: "policy", body: "aggregator:\n  failure_policy: sometimes\n", want: "failure_policy"},
		{name: "driver", body: "store:\n  driver: redis\n", want: "store.driver"},
		{name: "btc", body: "assets:\n  btc:\n    address: not-an-address\n", want: "assets.btc.address"},
		{name: "eth", body: "assets:\n  eth:\n    address: 0x1234\n", want: "assets.eth.address"},
		{name: "tron", body: "assets:\n  usdt:\n    address: 1BoatSLRHtKNngkdXEeobR76b53LETtpyT\n", want: "assets.usdt.address"},
		{name: "telegram", body: "telegram:\n  enabled: true\n", want: "bot_token"},
		{name: "max tx", body: "aggregator:\n  max_tx_per_asset: -1\n", want: "max_tx_per_asset"},
		{name: "row limit", body: "aggregator:\n  table_row_limit: -3\n", want: "table_row_limit"},
		{name: "hash length", body: "aggregator:\n  hash_display_length: 0\n", want: "hash_display_length"},
		{name: "timeout", body: "aggregator:\n  request_timeout: -1s\n", want: "request_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

func TestAddressValidators(t *testing.T) {
	if err := ValidateBTCAddress("bc1q036k7urq5pvjq29pep96ds4gftgmwycymnzs48"); err != nil {
		t.Errorf("valid bech32 rejected: %v", err)
	}
	if err := ValidateBTCAddress("tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"); err == nil {
		t.Error("testnet address accepted")
	}
	if err := ValidateTronAddress("TWuspo2EFsdb551sVaXJjM7yZ3fGiP2UZ5"); err != nil {
		t.Errorf("valid tron address rejected: %v", err)
	}
	if err := ValidateTronAddress("TWuspo2EFsdb551sVaXJjM7yZ3fGiP2UZ6"); err == nil {
		t.Error("bad checksum accepted")
	}
}

func TestAssetListOrder(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatal(err)
	}
	var symbols []string
	for _, a := range cfg.AssetList() {
		symbols = append(symbols, a.Symbol)
	}
	if got := strings.Join(symbols, ","); got != "BTC,ETH,USDT" {
		t.Fatalf("order = %s", got)
	}
}

func TestLoadFileRejectsIncompleteAsset(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "assets:\n  eth:\n    price_id: \"\"\n"))
	if err == nil || !strings.Contains(err.Error(), "price_id") {
		t.Fatalf("expected incomplete asset error, got %v", err)
	}
}
