package config

import (
	"fmt"
	"strings"

	"tickbot/internal/agent"
)

func validate(cfg *Config) error {
	if cfg.Agent.DelayMs <= 0 {
		return fmt.Errorf("agent.delay_ms must be positive, got %d", cfg.Agent.DelayMs)
	}
	if cfg.Agent.JitterMs < 0 {
		return fmt.Errorf("agent.jitter_ms cannot be negative, got %d", cfg.Agent.JitterMs)
	}
	if cfg.Agent.MinNotionalUSD > cfg.Agent.MaxNotionalUSD {
		return fmt.Errorf("agent.min_notional_usd (%v) exceeds agent.max_notional_usd (%v)",
			cfg.Agent.MinNotionalUSD, cfg.Agent.MaxNotionalUSD)
	}
	for _, name := range cfg.Agent.DisabledActions {
		if !knownAction(name) {
			return fmt.Errorf("agent.disabled_actions contains unknown action %q", name)
		}
	}
	for name, w := range cfg.Agent.Weights {
		if !knownAction(name) {
			return fmt.Errorf("agent.weights contains unknown action %q", name)
		}
		if w < 0 {
			return fmt.Errorf("agent.weights[%s] cannot be negative, got %v", name, w)
		}
	}
	if cfg.Agent.Profile != "" && cfg.Agent.ProfilesPath == "" {
		return fmt.Errorf("agent.profile %q set without agent.profiles_path", cfg.Agent.Profile)
	}

	if cfg.Market.BaseToken == cfg.Market.QuoteToken {
		return fmt.Errorf("market base and quote token must differ, both are %q", cfg.Market.BaseToken)
	}
	if cfg.Market.BaseTransferFee < 0 || cfg.Market.QuoteTransferFee < 0 {
		return fmt.Errorf("market transfer fees cannot be negative")
	}
	switch cfg.Market.FeePips {
	case 100, 500, 3000, 10000:
	default:
		return fmt.Errorf("market.fee_pips must be one of 100, 500, 3000, 10000; got %d", cfg.Market.FeePips)
	}

	if cfg.Feed.Enabled && cfg.Feed.Symbol == "" {
		return fmt.Errorf("feed.symbol is required when the feed is enabled")
	}
	return nil
}

func knownAction(name string) bool {
	at := agent.ActionType(strings.TrimSpace(name))
	for _, a := range agent.AllActions {
		if a == at {
			return true
		}
	}
	return false
}
