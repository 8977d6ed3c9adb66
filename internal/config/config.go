package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProviderCfg is the shared shape of one external data source entry.
// APIKey wins over APIKeyEnv when both are set; keys left at a
// "your_..._here" placeholder count as unconfigured.
type ProviderCfg struct {
	Enabled        bool   `yaml:"enabled"`
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	APIKeyEnv      string `yaml:"api_key_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MinResults     int    `yaml:"min_results"`
}

type AlphaVantageCfg struct {
	ProviderCfg `yaml:",inline"`
	DailyCap    int `yaml:"daily_cap"`
	PaceMs      int `yaml:"pace_ms"`
}

type FinnhubCfg struct {
	ProviderCfg `yaml:",inline"`
	MaxSymbols  int `yaml:"max_symbols"`
}

type Root struct {
	ListenAddr             string `yaml:"listen_addr"`
	StatePath              string `yaml:"state_path"`
	RefreshIntervalSeconds int    `yaml:"refresh_interval_seconds"`
	HistoryDays            int    `yaml:"history_days"`
	SimSeed                int64  `yaml:"sim_seed"` // 0 = seed from clock

	Yahoo        ProviderCfg     `yaml:"yahoo"`
	AlphaVantage AlphaVantageCfg `yaml:"alpha_vantage"`
	FMP          ProviderCfg     `yaml:"fmp"`
	Finnhub      FinnhubCfg      `yaml:"finnhub"`
}

// Key resolves the provider API key, preferring the literal value and
// falling back to the named environment variable.
func (p ProviderCfg) Key() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	if p.APIKeyEnv != "" {
		return os.Getenv(p.APIKeyEnv)
	}
	return ""
}

// Configured reports whether a usable key is present. Placeholder values
// shipped in example configs do not count.
func (p ProviderCfg) Configured() bool {
	k := p.Key()
	return k != "" && !strings.HasPrefix(k, "your_")
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	return c, nil
}

// Default returns a config with every default applied, used when no config
// file is given.
func Default() Root {
	var c Root
	c.applyDefaults()
	return c
}

func (c *Root) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.StatePath == "" {
		c.StatePath = "data/marketfeed.db"
	}
	if c.RefreshIntervalSeconds == 0 {
		c.RefreshIntervalSeconds = 30
	}
	if c.HistoryDays == 0 {
		c.HistoryDays = 90
	}

	if c.Yahoo.BaseURL == "" {
		c.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Yahoo.TimeoutSeconds == 0 {
		c.Yahoo.TimeoutSeconds = 10
	}
	if c.Yahoo.MinResults == 0 {
		c.Yahoo.MinResults = 5
	}
	c.Yahoo.Enabled = true // no key needed, always a candidate

	if c.AlphaVantage.BaseURL == "" {
		c.AlphaVantage.BaseURL = "https://www.alphavantage.co/query"
	}
	if c.AlphaVantage.TimeoutSeconds == 0 {
		c.AlphaVantage.TimeoutSeconds = 12
	}
	if c.AlphaVantage.MinResults == 0 {
		c.AlphaVantage.MinResults = 3
	}
	if c.AlphaVantage.DailyCap == 0 {
		c.AlphaVantage.DailyCap = 25 // free tier
	}
	if c.AlphaVantage.PaceMs == 0 {
		c.AlphaVantage.PaceMs = 250
	}

	if c.FMP.BaseURL == "" {
		c.FMP.BaseURL = "https://financialmodelingprep.com"
	}
	if c.FMP.TimeoutSeconds == 0 {
		c.FMP.TimeoutSeconds = 8
	}
	if c.FMP.MinResults == 0 {
		c.FMP.MinResults = 3
	}
	if c.FMP.APIKey == "" && c.FMP.APIKeyEnv == "" {
		c.FMP.APIKey = "demo"
	}

	if c.Finnhub.BaseURL == "" {
		c.Finnhub.BaseURL = "https://finnhub.io/api/v1"
	}
	if c.Finnhub.TimeoutSeconds == 0 {
		c.Finnhub.TimeoutSeconds = 5
	}
	if c.Finnhub.MinResults == 0 {
		c.Finnhub.MinResults = 2
	}
	if c.Finnhub.MaxSymbols == 0 {
		c.Finnhub.MaxSymbols = 5
	}
}
