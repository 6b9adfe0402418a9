package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Failure policies for an aggregation cycle
const (
	PolicyAllOrNothing = "all_or_nothing"
	PolicyPartial      = "partial"
)

// Milestone store drivers
const (
	StoreMemory   = "memory"
	StoreNeo4J    = "neo4j"
	StorePostgres = "postgres"
)

// tronAddressVersion is the base58check version byte of mainnet Tron addresses
const tronAddressVersion = 0x41

// Config represents the application configuration
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Campaign      CampaignConfig      `mapstructure:"campaign"`
	Aggregator    AggregatorConfig    `mapstructure:"aggregator"`
	PriceFeed     PriceFeedConfig     `mapstructure:"price_feed"`
	Assets        AssetsConfig        `mapstructure:"assets"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Store         StoreConfig         `mapstructure:"store"`
	NATS          NATSConfig          `mapstructure:"nats"`
	Neo4J         Neo4JConfig         `mapstructure:"neo4j"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Telegram      TelegramConfig      `mapstructure:"telegram"`
	Email         EmailConfig         `mapstructure:"email"`
	Testimonials  TestimonialsConfig  `mapstructure:"testimonials"`
}

// AppConfig represents application-specific configuration
type AppConfig struct {
	Env        string `mapstructure:"env"`
	LogLevel   string `mapstructure:"log_level"`
	HTTPPort   int    `mapstructure:"http_port"`
	SiteOrigin string `mapstructure:"site_origin"`
	Timezone   string `mapstructure:"timezone"`
	TimeLayout string `mapstructure:"time_layout"`
}

// CampaignConfig describes the fundraising goal and its milestones
type CampaignConfig struct {
	Beneficiary  string            `mapstructure:"beneficiary"`
	AccidentDate string            `mapstructure:"accident_date"`
	GoalUSD      float64           `mapstructure:"goal_usd"`
	Milestones   []MilestoneConfig `mapstructure:"milestones"`
}

// MilestoneConfig is one fixed fundraising threshold
type MilestoneConfig struct {
	Percent int    `mapstructure:"percent"`
	Label   string `mapstructure:"label"`
	Message string `mapstructure:"message"`
}

// AggregatorConfig controls the aggregation cycle
type AggregatorConfig struct {
	RefreshInterval    time.Duration `mapstructure:"refresh_interval"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	FailurePolicy      string        `mapstructure:"failure_policy"`
	MaxTxPerAsset      int           `mapstructure:"max_tx_per_asset"`
	UserAgent          string        `mapstructure:"user_agent"`
	TableRowLimit      int           `mapstructure:"table_row_limit"`
	TableEmptyMessage  string        `mapstructure:"table_empty_message"`
	HashDisplayLength  int           `mapstructure:"hash_display_length"`
	RefreshOnStartup   bool          `mapstructure:"refresh_on_startup"`
	AllowManualRefresh bool          `mapstructure:"allow_manual_refresh"`
}

// PriceFeedConfig represents the spot price API
type PriceFeedConfig struct {
	URL      string `mapstructure:"url"`
	Currency string `mapstructure:"currency"`
}

// AssetsConfig is the declarative table of tracked donation assets
type AssetsConfig struct {
	BTC  AssetConfig `mapstructure:"btc"`
	ETH  AssetConfig `mapstructure:"eth"`
	USDT AssetConfig `mapstructure:"usdt"`
}

// AssetConfig represents one donation address and where to read it from
type AssetConfig struct {
	Symbol        string  `mapstructure:"symbol"`
	Address       string  `mapstructure:"address"`
	PriceID       string  `mapstructure:"price_id"`
	PriceFallback float64 `mapstructure:"price_fallback"`
	Decimals      int32   `mapstructure:"decimals"`
	ExplorerTxURL string  `mapstructure:"explorer_tx_url"`
	QRPrefix      string  `mapstructure:"qr_prefix"`
	// Endpoint is the indexer base URL (Esplora, Tronscan) or the JSON-RPC URL for ETH
	Endpoint string `mapstructure:"endpoint"`
	// TxListURL and APIKey are only used by the ETH block-explorer API
	TxListURL string `mapstructure:"tx_list_url"`
	APIKey    string `mapstructure:"api_key"`
}

// NotificationsConfig represents milestone notification settings
type NotificationsConfig struct {
	InitialPermission string `mapstructure:"initial_permission"`
	Icon              string `mapstructure:"icon"`
	ClickURL          string `mapstructure:"click_url"`
	Tag               string `mapstructure:"tag"`
}

// StoreConfig selects the milestone seen-flag backend
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// NATSConfig represents NATS configuration
type NATSConfig struct {
	URL               string        `mapstructure:"url"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConsumerGroup     string        `mapstructure:"consumer_group"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
	Enabled           bool          `mapstructure:"enabled"`
}

// Neo4JConfig represents Neo4J configuration
type Neo4JConfig struct {
	URI                          string        `mapstructure:"uri"`
	Username                     string        `mapstructure:"username"`
	Password                     string        `mapstructure:"password"`
	Database                     string        `mapstructure:"database"`
	MaxConnectionPoolSize        int           `mapstructure:"max_connection_pool_size"`
	ConnectionAcquisitionTimeout time.Duration `mapstructure:"connection_acquisition_timeout"`
}

// PostgresConfig represents PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the lib/pq connection string
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// TelegramConfig represents the Telegram notification sink
type TelegramConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BotToken    string `mapstructure:"bot_token"`
	ChatID      int64  `mapstructure:"chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

// EmailConfig represents the transactional email relay
type EmailConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Endpoint          string `mapstructure:"endpoint"`
	ServiceID         string `mapstructure:"service_id"`
	ContactTemplateID string `mapstructure:"contact_template_id"`
	DonateTemplateID  string `mapstructure:"donate_template_id"`
	PublicKey         string `mapstructure:"public_key"`
}

// TestimonialsConfig represents the rotating testimonial widget
type TestimonialsConfig struct {
	Interval time.Duration       `mapstructure:"interval"`
	Items    []TestimonialConfig `mapstructure:"items"`
}

// TestimonialConfig is one quote shown by the carousel
type TestimonialConfig struct {
	Author string `mapstructure:"author"`
	Quote  string `mapstructure:"quote"`
}

// Load loads configuration from environment variables and files
func Load() (*Config, error) {
	// .env only feeds the environment; a missing file is fine
	_ = godotenv.Load(".env")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/crypto-donation-tracker")

	return load(v)
}

// LoadFile loads configuration from an explicit YAML file
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values the service cannot run without
func (c *Config) Validate() error {
	if c.Campaign.GoalUSD <= 0 {
		return fmt.Errorf("campaign.goal_usd must be positive, got %v", c.Campaign.GoalUSD)
	}

	switch c.Aggregator.FailurePolicy {
	case PolicyAllOrNothing, PolicyPartial:
	default:
		return fmt.Errorf("unknown aggregator.failure_policy %q", c.Aggregator.FailurePolicy)
	}

	limits := []struct {
		key   string
		value int
	}{
		{"aggregator.max_tx_per_asset", c.Aggregator.MaxTxPerAsset},
		{"aggregator.table_row_limit", c.Aggregator.TableRowLimit},
		{"aggregator.hash_display_length", c.Aggregator.HashDisplayLength},
	}
	for _, l := range limits {
		if l.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", l.key, l.value)
		}
	}
	if c.Aggregator.RequestTimeout < 0 {
		return fmt.Errorf("aggregator.request_timeout must not be negative, got %s", c.Aggregator.RequestTimeout)
	}

	switch c.Store.Driver {
	case StoreMemory, StoreNeo4J, StorePostgres:
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	for _, asset := range c.AssetList() {
		if asset.Symbol == "" || asset.PriceID == "" || asset.Endpoint == "" {
			return fmt.Errorf("asset %q needs symbol, price_id and endpoint", asset.Symbol)
		}
		if asset.Decimals < 0 {
			return fmt.Errorf("asset %s: negative decimals", asset.Symbol)
		}
	}

	if err := ValidateBTCAddress(c.Assets.BTC.Address); err != nil {
		return fmt.Errorf("assets.btc.address: %w", err)
	}
	if !common.IsHexAddress(c.Assets.ETH.Address) {
		return fmt.Errorf("assets.eth.address: invalid hex address %q", c.Assets.ETH.Address)
	}
	if err := ValidateTronAddress(c.Assets.USDT.Address); err != nil {
		return fmt.Errorf("assets.usdt.address: %w", err)
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram.bot_token is required when telegram is enabled")
	}

	return nil
}

// ValidateBTCAddress checks a mainnet bitcoin address
func ValidateBTCAddress(address string) error {
	addr, err := btcutil.DecodeAddress(address, &chaincfg.MainNetParams)
	if err != nil {
		return fmt.Errorf("invalid bitcoin address %q: %w", address, err)
	}
	if !addr.IsForNet(&chaincfg.MainNetParams) {
		return fmt.Errorf("bitcoin address %q is not a mainnet address", address)
	}
	return nil
}

// ValidateTronAddress checks a base58check Tron address
func ValidateTronAddress(address string) error {
	payload, version, err := base58.CheckDecode(address)
	if err != nil {
		return fmt.Errorf("invalid tron address %q: %w", address, err)
	}
	if version != tronAddressVersion || len(payload) != 20 {
		return fmt.Errorf("invalid tron address %q: unexpected version or length", address)
	}
	return nil
}

// AssetList returns the asset table in the fixed aggregation order
func (c *Config) AssetList() []AssetConfig {
	return []AssetConfig{c.Assets.BTC, c.Assets.ETH, c.Assets.USDT}
}

// Location resolves the display timezone, falling back to the local zone
func (c *Config) Location() *time.Location {
	if c.App.Timezone == "" || c.App.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_port", 8080)
	v.SetDefault("app.site_origin", "http://localhost:8080")
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("app.time_layout", "1/2/2006, 3:04:05 PM")

	// Campaign defaults
	v.SetDefault("campaign.beneficiary", "James")
	v.SetDefault("campaign.accident_date", "November 14, 2025")
	v.SetDefault("campaign.goal_usd", 50000)
	v.SetDefault("campaign.milestones", []map[string]interface{}{
		{"percent": 20, "label": "Emergency Hospital Bills Covered ($10k)", "message": "🎉 Emergency Bills Covered! Thanks to you, James's hospital costs are secured. ❤️"},
		{"percent": 40, "label": "First Therapy Sessions Funded ($20k)", "message": "🎉 Therapy Sessions Start! Your donations mean James can begin his recovery journey. ❤️"},
		{"percent": 60, "label": "Full Surgery Recovery Support ($30k)", "message": "🎉 Surgery Support Unlocked! We've got the funds for full post-op care. ❤️"},
		{"percent": 80, "label": "Rehab Equipment Secured ($40k)", "message": "🎉 Rehab Equipment Funded! James is one step closer to getting back on his feet. ❤️"},
		{"percent": 100, "label": "Long-Term Care Fund Established ($50k)", "message": "🎉 Goal Achieved! Long-term care is set—thank you for changing James's life. ❤️"},
	})

	// Aggregator defaults
	v.SetDefault("aggregator.refresh_interval", "5m")
	v.SetDefault("aggregator.request_timeout", "10s")
	v.SetDefault("aggregator.failure_policy", PolicyAllOrNothing)
	v.SetDefault("aggregator.max_tx_per_asset", 5)
	v.SetDefault("aggregator.user_agent", "crypto-donation-tracker/1.0")
	v.SetDefault("aggregator.table_row_limit", 5)
	v.SetDefault("aggregator.table_empty_message", "No recent donations yet—be the first! Check back after confirmations.")
	v.SetDefault("aggregator.hash_display_length", 10)
	v.SetDefault("aggregator.refresh_on_startup", true)
	v.SetDefault("aggregator.allow_manual_refresh", true)

	// Price feed defaults
	v.SetDefault("price_feed.url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price_feed.currency", "usd")

	// Asset table
	v.SetDefault("assets.btc.symbol", "BTC")
	v.SetDefault("assets.btc.address", "bc1q036k7urq5pvjq29pep96ds4gftgmwycymnzs48")
	v.SetDefault("assets.btc.price_id", "bitcoin")
	v.SetDefault("assets.btc.price_fallback", 60000)
	v.SetDefault("assets.btc.decimals", 8)
	v.SetDefault("assets.btc.explorer_tx_url", "https://blockstream.info/tx/%s")
	v.SetDefault("assets.btc.endpoint", "https://blockstream.info/api")

	v.SetDefault("assets.eth.symbol", "ETH")
	v.SetDefault("assets.eth.address", "0xb8DDf6611c7A8a5D726B68F2A5F110BD2B839dAd")
	v.SetDefault("assets.eth.price_id", "ethereum")
	v.SetDefault("assets.eth.price_fallback", 2500)
	v.SetDefault("assets.eth.decimals", 18)
	v.SetDefault("assets.eth.explorer_tx_url", "https://etherscan.io/tx/%s")
	v.SetDefault("assets.eth.qr_prefix", "ethereum:")
	v.SetDefault("assets.eth.endpoint", "https://rpc.ankr.com/eth")
	v.SetDefault("assets.eth.tx_list_url", "https://api.etherscan.io/api")
	v.SetDefault("assets.eth.api_key", "YourApiKeyToken")

	v.SetDefault("assets.usdt.symbol", "USDT")
	v.SetDefault("assets.usdt.address", "TWuspo2EFsdb551sVaXJjM7yZ3fGiP2UZ5")
	v.SetDefault("assets.usdt.price_id", "tether")
	v.SetDefault("assets.usdt.price_fallback", 1)
	v.SetDefault("assets.usdt.decimals", 6)
	v.SetDefault("assets.usdt.explorer_tx_url", "https://tronscan.org/#/transaction/%s")
	v.SetDefault("assets.usdt.endpoint", "https://apilist.tronscanapi.com")

	// Notification defaults
	v.SetDefault("notifications.initial_permission", "default")
	v.SetDefault("notifications.icon", "https://via.placeholder.com/192x192?text=James+Fund")
	v.SetDefault("notifications.click_url", "/")
	v.SetDefault("notifications.tag", "james-milestone")

	// Store defaults
	v.SetDefault("store.driver", StoreMemory)

	// NATS defaults
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.subject_prefix", "donations")
	v.SetDefault("nats.consumer_group", "donation-tracker")
	v.SetDefault("nats.connect_timeout", "10s")
	v.SetDefault("nats.reconnect_attempts", 5)
	v.SetDefault("nats.reconnect_delay", "2s")
	v.SetDefault("nats.enabled", false)

	// Neo4J defaults
	v.SetDefault("neo4j.uri", "neo4j://localhost:7687")
	v.SetDefault("neo4j.username", "neo4j")
	v.SetDefault("neo4j.password", "password")
	v.SetDefault("neo4j.database", "neo4j")
	v.SetDefault("neo4j.max_connection_pool_size", 10)
	v.SetDefault("neo4j.connection_acquisition_timeout", "30s")

	// Postgres defaults
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "donations")
	v.SetDefault("postgres.sslmode", "disable")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_endpoint", "https://api.telegram.org/bot%s/%s")

	// Email relay defaults
	v.SetDefault("email.enabled", true)
	v.SetDefault("email.endpoint", "https://api.emailjs.com/api/v1.0/email/send")
	v.SetDefault("email.service_id", "YOUR_SERVICE_ID")
	v.SetDefault("email.contact_template_id", "YOUR_CONTACT_TEMPLATE_ID")
	v.SetDefault("email.donate_template_id", "YOUR_DONATE_TEMPLATE_ID")
	v.SetDefault("email.public_key", "hZGQ-3HWKZdKijgwh")

	// Testimonial defaults
	v.SetDefault("testimonials.interval", "5s")
	v.SetDefault("testimonials.items", []map[string]interface{}{
		{"author": "Sarah, James's sister", "quote": "Every donation has been a lifeline for our family."},
		{"author": "Mike, riding buddy", "quote": "James would give anyone the shirt off his back. Now it's our turn."},
		{"author": "Dr. Patel", "quote": "With continued therapy, James has an excellent chance of a full recovery."},
	})

	// Bind well-known env names
	v.BindEnv("nats.url", "NATS_URL")
	v.BindEnv("assets.eth.api_key", "ETHERSCAN_API_KEY")
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
}
