// Package app wires configuration into the running agent: paper broker,
// tool registry, model provider, decision loop and status HTTP server.
package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"arena/internal/agent"
	"arena/internal/config"
	"arena/internal/logger"
	livehttp "arena/internal/transport/http/live"
)

// App owns the wired services for one process.
type App struct {
	cfg      *config.Config
	loop     *agent.Loop
	liveHTTP *livehttp.Server
	summary  *StartupSummary
	closers  []func() error
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return build(cfg)
}

// Run starts the decision loop and the status HTTP server, and blocks until
// the context is canceled or either fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.loop == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.summary != nil {
		a.summary.Print()
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.liveHTTP != nil {
		group.Go(func() error {
			if err := a.liveHTTP.Start(ctx); err != nil {
				return fmt.Errorf("live http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		return a.loop.Run(ctx)
	})
	err := group.Wait()
	a.Close()
	return err
}

func (a *App) addCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases stores and watchers in reverse construction order.
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("closing resource: %v", err)
		}
	}
	a.closers = nil
}
