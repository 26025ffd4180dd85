package app

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"tickbot/internal/agent/engine"
	"tickbot/internal/config"
	"tickbot/internal/dex/sim"
	"tickbot/internal/gateway/binance"
	"tickbot/internal/logger"
	"tickbot/internal/monitoring"
	"tickbot/internal/profile"
	"tickbot/internal/store"
	"tickbot/internal/tickmath"
	agenthttp "tickbot/internal/transport/http/agent"

	"github.com/prometheus/client_golang/prometheus"
)

// AppBuilder assembles the daemon from configuration.
type AppBuilder struct {
	cfg *config.Config
}

func NewAppBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{cfg: cfg}
}

// Build wires the exchange, engine, persistence, metrics, profiles, and the
// HTTP surface. Nothing is started here.
func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	archive, err := store.NewArchive(cfg.App.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.New(registry)

	exchange := sim.New(simConfig(cfg.Market), rand.New(rand.NewSource(time.Now().UnixNano())))
	seedReferenceTick(ctx, cfg, exchange)

	eng := engine.New(exchange, exchange, cfg.AgentPolicy(),
		engine.WithArchive(archive),
		engine.WithMetrics(metrics),
	)

	profiles, err := bindProfiles(cfg, eng)
	if err != nil {
		archive.Close()
		return nil, err
	}

	router := agenthttp.NewRouter(eng, exchange, archive.Actions, cfg.Market.ID)
	server, err := agenthttp.NewServer(agenthttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Router:   router,
		Gatherer: registry,
	})
	if err != nil {
		archive.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		engine:   eng,
		server:   server,
		archive:  archive,
		profiles: profiles,
	}, nil
}

func simConfig(m config.MarketConfig) sim.Config {
	return sim.Config{
		MarketID:         m.ID,
		Symbol:           m.Symbol,
		BaseToken:        m.BaseToken,
		QuoteToken:       m.QuoteToken,
		BaseDecimals:     m.BaseDecimals,
		QuoteDecimals:    m.QuoteDecimals,
		BaseTransferFee:  m.BaseTransferFee,
		QuoteTransferFee: m.QuoteTransferFee,
		FeePips:          m.FeePips,
		GenesisTick:      m.GenesisTick,
		HasGenesisTick:   !m.StartUninitialized,
		WalletBase:       m.WalletBase,
		WalletQuote:      m.WalletQuote,
	}
}

// seedReferenceTick pulls an external spot price and seeds the market's tick.
// A feed failure is logged and the market stays uninitialized until the first
// pool trade.
func seedReferenceTick(ctx context.Context, cfg *config.Config, exchange *sim.Exchange) {
	if !cfg.Feed.Enabled {
		return
	}
	feed, err := binance.New(binance.Config{
		Symbol:      cfg.Feed.Symbol,
		RESTBaseURL: cfg.Feed.RESTBaseURL,
		HTTPTimeout: time.Duration(cfg.Feed.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		logger.Warnf("App: price feed disabled: %v", err)
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Feed.TimeoutSeconds)*time.Second)
	defer cancel()
	price, err := feed.ReferencePrice(fetchCtx)
	if err != nil {
		logger.Warnf("App: reference price fetch failed: %v", err)
		return
	}
	tick := tickmath.TickFromPrice(price, cfg.Market.BaseDecimals, cfg.Market.QuoteDecimals, cfg.Market.Symbol)
	exchange.SeedTick(tick)
	logger.Infof("App: seeded tick %d from %s price %.4f", tick, cfg.Feed.Symbol, price)
}

// bindProfiles loads the weight-profile registry, applies the boot profile,
// and keeps the engine's tables in sync with file edits.
func bindProfiles(cfg *config.Config, eng *engine.Engine) (*profile.Registry, error) {
	if cfg.Agent.ProfilesPath == "" {
		return nil, nil
	}
	reg, err := profile.NewRegistry(cfg.Agent.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("profile registry: %w", err)
	}
	active := cfg.Agent.Profile
	if active != "" {
		p, ok := reg.Profile(active)
		if !ok {
			return nil, fmt.Errorf("profile %q not found in %s", active, cfg.Agent.ProfilesPath)
		}
		weights, enabled := p.Apply()
		eng.SetWeights(weights)
		eng.SetEnabled(enabled)
	}
	reg.Subscribe(func(snap profile.Snapshot) {
		if active == "" {
			return
		}
		p, ok := snap.Profiles[active]
		if !ok {
			logger.Warnf("App: active profile %q missing after reload, keeping previous weights", active)
			return
		}
		weights, enabled := p.Apply()
		eng.SetWeights(weights)
		eng.SetEnabled(enabled)
		logger.Infof("App: profile %q reapplied (version %d)", active, snap.Version)
	})
	return reg, nil
}
