package config

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.HTTPAddr == "" {
		c.App.HTTPAddr = ":9991"
	}
	if c.App.DBPath == "" {
		c.App.DBPath = "data/tickbot.db"
	}

	if c.Agent.DelayMs <= 0 {
		c.Agent.DelayMs = 2000
	}
	if c.Agent.JitterMs < 0 {
		c.Agent.JitterMs = 0
	}
	if c.Agent.MinNotionalUSD <= 0 {
		c.Agent.MinNotionalUSD = 20
	}
	if c.Agent.MaxNotionalUSD <= 0 {
		c.Agent.MaxNotionalUSD = 200
	}
	if c.Agent.DepositUSD <= 0 {
		c.Agent.DepositUSD = 2000
	}
	if c.Agent.LogCapacity <= 0 {
		c.Agent.LogCapacity = 500
	}

	if c.Market.ID == "" {
		c.Market.ID = "tkb-usdc"
	}
	if c.Market.Symbol == "" {
		c.Market.Symbol = "TKB/USDC"
	}
	if c.Market.BaseToken == "" {
		c.Market.BaseToken = "tkb"
	}
	if c.Market.QuoteToken == "" {
		c.Market.QuoteToken = "usdc"
	}
	if c.Market.BaseDecimals <= 0 {
		c.Market.BaseDecimals = 18
	}
	if c.Market.QuoteDecimals <= 0 {
		c.Market.QuoteDecimals = 6
	}
	if c.Market.FeePips <= 0 {
		c.Market.FeePips = 3000
	}
	if c.Market.WalletBase <= 0 {
		c.Market.WalletBase = 1_000_000_000_000_000_000
	}
	if c.Market.WalletQuote <= 0 {
		c.Market.WalletQuote = 1_000_000_000_000
	}

	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = 10
	}
}
