package config

import (
	"strings"

	"tickbot/internal/agent"
)

// Config is the top-level configuration carrier for tickbot.
type Config struct {
	App    AppConfig    `toml:"app"`
	Agent  AgentConfig  `toml:"agent"`
	Market MarketConfig `toml:"market"`
	Feed   FeedConfig   `toml:"feed"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
	DBPath   string `toml:"db_path"`
}

// AgentConfig is the operator policy for the agent loop.
type AgentConfig struct {
	DelayMs  int `toml:"delay_ms"`
	JitterMs int `toml:"jitter_ms"`

	DryRun      bool `toml:"dry_run"`
	AutoDeposit bool `toml:"auto_deposit"`

	MinNotionalUSD float64 `toml:"min_notional_usd"`
	MaxNotionalUSD float64 `toml:"max_notional_usd"`
	DepositUSD     float64 `toml:"deposit_usd"`

	LogCapacity int `toml:"log_capacity"`

	// DisabledActions removes catalog entries from selection; everything not
	// listed stays enabled.
	DisabledActions []string           `toml:"disabled_actions"`
	Weights         map[string]float64 `toml:"weights"`

	// ProfilesPath points at the weight-profile file watched at runtime;
	// Profile names the one applied at boot.
	ProfilesPath string `toml:"profiles_path"`
	Profile      string `toml:"profile"`

	AutoStart bool `toml:"auto_start"`
}

// MarketConfig describes the single simulated market the daemon serves.
type MarketConfig struct {
	ID            string `toml:"id"`
	Symbol        string `toml:"symbol"`
	BaseToken     string `toml:"base_token"`
	QuoteToken    string `toml:"quote_token"`
	BaseDecimals  int    `toml:"base_decimals"`
	QuoteDecimals int    `toml:"quote_decimals"`

	BaseTransferFee  int64 `toml:"base_transfer_fee"`
	QuoteTransferFee int64 `toml:"quote_transfer_fee"`
	FeePips          int   `toml:"fee_pips"`

	GenesisTick int64 `toml:"genesis_tick"`
	// StartUninitialized leaves the market without a reference tick until
	// the price feed (or first pool trade) seeds one.
	StartUninitialized bool `toml:"start_uninitialized"`

	WalletBase  int64 `toml:"wallet_base"`
	WalletQuote int64 `toml:"wallet_quote"`
}

// FeedConfig controls the optional binance reference-price seed.
type FeedConfig struct {
	Enabled        bool   `toml:"enabled"`
	Symbol         string `toml:"symbol"`
	RESTBaseURL    string `toml:"rest_base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AgentPolicy converts the file representation into the agent package's
// runtime Config.
func (c *Config) AgentPolicy() agent.Config {
	policy := agent.DefaultConfig()
	policy.Market = c.Market.ID
	if c.Agent.DelayMs > 0 {
		policy.DelayMs = c.Agent.DelayMs
	}
	if c.Agent.JitterMs >= 0 {
		policy.JitterMs = c.Agent.JitterMs
	}
	policy.DryRun = c.Agent.DryRun
	policy.AutoDeposit = c.Agent.AutoDeposit
	if c.Agent.MinNotionalUSD > 0 {
		policy.MinNotionalUSD = c.Agent.MinNotionalUSD
	}
	if c.Agent.MaxNotionalUSD > 0 {
		policy.MaxNotionalUSD = c.Agent.MaxNotionalUSD
	}
	if c.Agent.DepositUSD > 0 {
		policy.DepositUSD = c.Agent.DepositUSD
	}
	if c.Agent.LogCapacity > 0 {
		policy.LogCapacity = c.Agent.LogCapacity
	}
	for _, name := range c.Agent.DisabledActions {
		policy.Enabled[agent.ActionType(strings.TrimSpace(name))] = false
	}
	for name, w := range c.Agent.Weights {
		policy.Weights[agent.ActionType(strings.TrimSpace(name))] = w
	}
	return policy
}
