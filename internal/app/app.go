package app

import (
	"context"
	"fmt"

	"tickbot/internal/agent/engine"
	"tickbot/internal/config"
	"tickbot/internal/logger"
	"tickbot/internal/profile"
	"tickbot/internal/store"
	agenthttp "tickbot/internal/transport/http/agent"

	"golang.org/x/sync/errgroup"
)

// App owns application-level orchestration: load config, build dependencies,
// run the HTTP surface and the agent engine.
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	server   *agenthttp.Server
	archive  *store.Archive
	profiles *profile.Registry
}

// NewApp builds the application object from configuration (not started).
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Engine exposes the engine instance for test and replay harnesses.
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Run serves HTTP until ctx is cancelled. The engine only ticks once started,
// either by auto_start or through the control API.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	logger.Infof("App: listening on %s market=%s", a.server.Addr(), a.cfg.Market.ID)

	if a.cfg.Agent.AutoStart {
		if err := a.engine.Start(a.cfg.Market.ID); err != nil {
			return fmt.Errorf("auto start: %w", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("agent http server error: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		a.engine.Stop()
		if err := a.archive.Close(); err != nil {
			logger.Warnf("App: archive close failed: %v", err)
		}
		return nil
	})
	return group.Wait()
}
