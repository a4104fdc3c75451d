package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "flashcycle", Environment: "test", LogLevel: "info"},
		Chain: ChainConfig{
			RPCURLs:      []string{"https://bsc-dataseed.binance.org"},
			ChainID:      56,
			PollInterval: 3 * time.Second,
		},
		Contracts: ContractsConfig{
			QuoterAddress:    "0x78D78E420Da98ad378D7799bE8f4AF69033EB077",
			ExecutorAddress:  "0x1111111111111111111111111111111111111111",
			MulticallAddress: "0xcA11bde05977b3631167028862bE2a173976CA11",
		},
		Wallet: WalletConfig{PrivateKey: "deadbeef"},
		Venues: []VenueConfig{{
			Name:           "pancakeswap-v3",
			Protocol:       "v3",
			FactoryAddress: "0x0BFbCF9fa4f9C56B0F40a671Ad40E0805A091865",
			AnalyticsURL:   "https://example.com/graphql",
			PoolSize:       50,
			CacheTTL:       time.Hour,
		}},
		Arbitrage: ArbitrageConfig{
			Tokens:             []string{"USDT", "BTCB", "WBNB"},
			CycleLength:        3,
			BorrowCostBps:      25,
			MinMarginBps:       5,
			CallsPerSecond:     18,
			GasPriceCeilingWei: "10000000000",
			Mode:               "blocks",
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing rpc urls",
			mutate:  func(c *Config) { c.Chain.RPCURLs = nil },
			wantMsg: "chain.rpc_urls",
		},
		{
			name:    "bad quoter address",
			mutate:  func(c *Config) { c.Contracts.QuoterAddress = "not-an-address" },
			wantMsg: "quoter_address",
		},
		{
			name: "missing private key",
			mutate: func(c *Config) {
				c.Arbitrage.DryRun = false
				c.Wallet.PrivateKey = ""
			},
			wantMsg: "private_key",
		},
		{
			name: "dry run does not need key",
			mutate: func(c *Config) {
				c.Arbitrage.DryRun = true
				c.Wallet.PrivateKey = ""
				c.Contracts.ExecutorAddress = ""
			},
			wantMsg: "",
		},
		{
			name:    "no venues",
			mutate:  func(c *Config) { c.Venues = nil },
			wantMsg: "at least one venue",
		},
		{
			name: "venue without source",
			mutate: func(c *Config) {
				c.Venues[0].AnalyticsURL = ""
				c.Venues[0].SnapshotPath = ""
			},
			wantMsg: "analytics_url or snapshot_path",
		},
		{
			name:    "cycle length too short",
			mutate:  func(c *Config) { c.Arbitrage.CycleLength = 1 },
			wantMsg: "cycle_length",
		},
		{
			name:    "zero start amount",
			mutate:  func(c *Config) { c.Arbitrage.StartAmounts = map[string]string{"USDT": "0"} },
			wantMsg: "start_amounts[USDT] must be positive",
		},
		{
			name:    "malformed start amount",
			mutate:  func(c *Config) { c.Arbitrage.StartAmounts = map[string]string{"USDT": "lots"} },
			wantMsg: "start_amounts[USDT]",
		},
		{
			name:    "negative batch size",
			mutate:  func(c *Config) { c.Arbitrage.BatchSize = -1 },
			wantMsg: "arbitrage.batch_size",
		},
		{
			name:    "bad gas ceiling",
			mutate:  func(c *Config) { c.Arbitrage.GasPriceCeilingWei = "ten gwei" },
			wantMsg: "gas_price_ceiling_wei",
		},
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.Arbitrage.Mode = "turbo" },
			wantMsg: "arbitrage.mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestEffectiveBatchSize(t *testing.T) {
	cfg := ArbitrageConfig{CallsPerSecond: 18}
	if got := cfg.EffectiveBatchSize(); got != 18 {
		t.Errorf("unset batch_size = %d, want calls_per_second fallback 18", got)
	}
	cfg.BatchSize = 6
	if got := cfg.EffectiveBatchSize(); got != 6 {
		t.Errorf("batch_size = %d, want 6", got)
	}
}
