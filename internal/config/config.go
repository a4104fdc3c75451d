// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Wallet     WalletConfig     `mapstructure:"wallet"`
	Contracts  ContractsConfig  `mapstructure:"contracts"`
	Cache      CacheConfig      `mapstructure:"cache"`
	TradeStore TradeStoreConfig `mapstructure:"trade_store"`
	Venues     []VenueConfig    `mapstructure:"venues"`
	Arbitrage  ArbitrageConfig  `mapstructure:"arbitrage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds chain node configuration.
type ChainConfig struct {
	RPCURLs        []string      `mapstructure:"rpc_urls"` // rotated round-robin
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	BlockBuffer    int           `mapstructure:"block_buffer"`
}

// WalletConfig holds the signing account configuration.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
}

// ContractsConfig holds on-chain contract addresses.
type ContractsConfig struct {
	QuoterAddress    string `mapstructure:"quoter_address"`
	ExecutorAddress  string `mapstructure:"executor_address"`
	MulticallAddress string `mapstructure:"multicall_address"`
}

// QuoterAddressHex returns the quoter address as common.Address.
func (c *ContractsConfig) QuoterAddressHex() common.Address {
	return common.HexToAddress(c.QuoterAddress)
}

// ExecutorAddressHex returns the flash-loan executor address as common.Address.
func (c *ContractsConfig) ExecutorAddressHex() common.Address {
	return common.HexToAddress(c.ExecutorAddress)
}

// MulticallAddressHex returns the multicall address as common.Address.
func (c *ContractsConfig) MulticallAddressHex() common.Address {
	return common.HexToAddress(c.MulticallAddress)
}

// CacheConfig holds key-value cache store connection parameters.
type CacheConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TradeStoreConfig holds the trade-history store connection.
type TradeStoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URI     string `mapstructure:"uri"`
}

// VenueConfig describes one DEX venue.
type VenueConfig struct {
	Name           string        `mapstructure:"name"`
	Protocol       string        `mapstructure:"protocol"` // e.g. "v3"
	FactoryAddress string        `mapstructure:"factory_address"`
	RouterAddress  string        `mapstructure:"router_address"`
	PermitAddress  string        `mapstructure:"permit_address"`
	AnalyticsURL   string        `mapstructure:"analytics_url"`
	SnapshotPath   string        `mapstructure:"snapshot_path"` // static snapshot instead of live endpoint
	PoolSize       int           `mapstructure:"pool_size"`     // top-K pools per ranking
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// FactoryAddressHex returns the factory address as common.Address.
func (v *VenueConfig) FactoryAddressHex() common.Address {
	return common.HexToAddress(v.FactoryAddress)
}

// RouterAddressHex returns the router address as common.Address.
func (v *VenueConfig) RouterAddressHex() common.Address {
	return common.HexToAddress(v.RouterAddress)
}

// PermitAddressHex returns the permit2 address as common.Address.
func (v *VenueConfig) PermitAddressHex() common.Address {
	return common.HexToAddress(v.PermitAddress)
}

// ArbitrageConfig holds discovery, quoting and execution settings.
type ArbitrageConfig struct {
	Tokens             []string          `mapstructure:"tokens"`       // symbols from the registry
	StartAmounts       map[string]string `mapstructure:"start_amounts"` // symbol -> human amount
	CycleLength        int               `mapstructure:"cycle_length"`
	BorrowCostBps      int64             `mapstructure:"borrow_cost_bps"`
	MinMarginBps       int64             `mapstructure:"min_margin_bps"`
	CallsPerSecond     int               `mapstructure:"calls_per_second"`
	BatchSize          int               `mapstructure:"batch_size"` // multicall chunk size, defaults to calls_per_second
	GasPriceCeilingWei string            `mapstructure:"gas_price_ceiling_wei"`
	Mode               string            `mapstructure:"mode"` // "interval" or "blocks"
	Interval           time.Duration     `mapstructure:"interval"`
	DryRun             bool              `mapstructure:"dry_run"`
}

// EffectiveBatchSize returns the multicall batch size, falling back to
// calls_per_second when batch_size is unset.
func (c *ArbitrageConfig) EffectiveBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return c.CallsPerSecond
}

// GasPriceCeiling returns the gas price ceiling as *big.Int wei.
func (c *ArbitrageConfig) GasPriceCeiling() *big.Int {
	ceiling, ok := new(big.Int).SetString(c.GasPriceCeilingWei, 10)
	if !ok {
		return nil
	}
	return ceiling
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("FC")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "FC_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "FC_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "FC_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.rpc_urls", "FC_RPC_URLS", "RPC_URLS")
	v.BindEnv("chain.websocket_url", "FC_WS_URL", "WS_URL")
	v.BindEnv("chain.chain_id", "FC_CHAIN_ID", "CHAIN_ID")

	// Wallet
	v.BindEnv("wallet.private_key", "FC_PRIVATE_KEY", "PRIVATE_KEY")

	// Contracts
	v.BindEnv("contracts.quoter_address", "FC_QUOTER_ADDRESS")
	v.BindEnv("contracts.executor_address", "FC_EXECUTOR_ADDRESS")
	v.BindEnv("contracts.multicall_address", "FC_MULTICALL_ADDRESS")

	// Cache
	v.BindEnv("cache.addr", "FC_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("cache.password", "FC_REDIS_PASSWORD", "REDIS_PASSWORD")

	// Trade store
	v.BindEnv("trade_store.uri", "FC_TRADE_STORE_URI", "TRADE_STORE_URI")

	// Arbitrage
	v.BindEnv("arbitrage.borrow_cost_bps", "FC_BORROW_COST_BPS")
	v.BindEnv("arbitrage.min_margin_bps", "FC_MIN_MARGIN_BPS")
	v.BindEnv("arbitrage.calls_per_second", "FC_CALLS_PER_SECOND")
	v.BindEnv("arbitrage.batch_size", "FC_BATCH_SIZE")
	v.BindEnv("arbitrage.mode", "FC_MODE")
	v.BindEnv("arbitrage.dry_run", "FC_DRY_RUN")

	// Telemetry
	v.BindEnv("telemetry.enabled", "FC_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "FC_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "FC_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "flashcycle")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults (BSC mainnet)
	v.SetDefault("chain.chain_id", 56)
	v.SetDefault("chain.poll_interval", "3s") // ~1 BSC block
	v.SetDefault("chain.reconnect_delay", "5s")
	v.SetDefault("chain.block_buffer", 16)

	// Cache defaults
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)

	// Arbitrage defaults
	v.SetDefault("arbitrage.tokens", []string{"USDT", "BTCB", "WBNB"})
	v.SetDefault("arbitrage.cycle_length", 3)
	v.SetDefault("arbitrage.borrow_cost_bps", 25)
	v.SetDefault("arbitrage.min_margin_bps", 5) // 0.05%
	v.SetDefault("arbitrage.calls_per_second", 18)
	v.SetDefault("arbitrage.gas_price_ceiling_wei", "10000000000") // 10 gwei
	v.SetDefault("arbitrage.mode", "blocks")
	v.SetDefault("arbitrage.interval", "3s")
	v.SetDefault("arbitrage.dry_run", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashcycle")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration. Violations here are fatal at
// startup; nothing else aborts the process.
func (c *Config) Validate() error {
	if len(c.Chain.RPCURLs) == 0 {
		return fmt.Errorf("chain.rpc_urls is required")
	}
	if !common.IsHexAddress(c.Contracts.QuoterAddress) {
		return fmt.Errorf("invalid contracts.quoter_address: %s", c.Contracts.QuoterAddress)
	}
	if !common.IsHexAddress(c.Contracts.MulticallAddress) {
		return fmt.Errorf("invalid contracts.multicall_address: %s", c.Contracts.MulticallAddress)
	}
	if !c.Arbitrage.DryRun {
		if !common.IsHexAddress(c.Contracts.ExecutorAddress) {
			return fmt.Errorf("invalid contracts.executor_address: %s", c.Contracts.ExecutorAddress)
		}
		if c.Wallet.PrivateKey == "" {
			return fmt.Errorf("wallet.private_key is required unless arbitrage.dry_run is set")
		}
	}
	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue is required")
	}
	for i, venue := range c.Venues {
		if venue.Name == "" {
			return fmt.Errorf("venues[%d].name is required", i)
		}
		if venue.AnalyticsURL == "" && venue.SnapshotPath == "" {
			return fmt.Errorf("venue %s: analytics_url or snapshot_path is required", venue.Name)
		}
		if !common.IsHexAddress(venue.FactoryAddress) {
			return fmt.Errorf("venue %s: invalid factory_address", venue.Name)
		}
	}
	if c.Arbitrage.CycleLength < 2 {
		return fmt.Errorf("arbitrage.cycle_length must be >= 2")
	}
	for symbol, amount := range c.Arbitrage.StartAmounts {
		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return fmt.Errorf("arbitrage.start_amounts[%s]: invalid amount %q", symbol, amount)
		}
		if parsed.Sign() <= 0 {
			return fmt.Errorf("arbitrage.start_amounts[%s] must be positive, got %q", symbol, amount)
		}
	}
	if c.Arbitrage.CallsPerSecond < 1 {
		return fmt.Errorf("arbitrage.calls_per_second must be >= 1")
	}
	if c.Arbitrage.BatchSize < 0 {
		return fmt.Errorf("arbitrage.batch_size must be >= 0")
	}
	if c.Arbitrage.BorrowCostBps < 0 {
		return fmt.Errorf("arbitrage.borrow_cost_bps must be >= 0")
	}
	if c.Arbitrage.MinMarginBps < 0 {
		return fmt.Errorf("arbitrage.min_margin_bps must be >= 0")
	}
	if c.Arbitrage.GasPriceCeiling() == nil {
		return fmt.Errorf("invalid arbitrage.gas_price_ceiling_wei: %s", c.Arbitrage.GasPriceCeilingWei)
	}
	if mode := c.Arbitrage.Mode; mode != "interval" && mode != "blocks" {
		return fmt.Errorf("arbitrage.mode must be \"interval\" or \"blocks\", got %q", mode)
	}
	return nil
}
