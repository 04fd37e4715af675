package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SignalDesk/internal/service/ratelimit"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
	xhttp "SignalDesk/pkg/http"
	applogger "SignalDesk/pkg/logger"
	"SignalDesk/pkg/poller"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	hub        *usecase.Hub
	limiter    *ratelimit.Limiter
	pruneEvery time.Duration
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	hub *usecase.Hub,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		hub:        hub,
		limiter:    limiter,
		pruneEvery: time.Minute,
	}
}

// Run starts the application and blocks until ctx ends or an interrupt arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.hub.Start()
	a.log.Info("orchestrator hub started",
		applogger.Duration("interval", a.cfg.Polling.Interval),
		applogger.Duration("idle_ttl", a.cfg.Polling.IdleTTL),
		applogger.Strings("free_pairs", a.cfg.Polling.FreePairs),
	)

	prune := poller.New(a.pruneEvery, func(context.Context, bool) {
		if n := a.limiter.Prune(); n > 0 {
			a.log.Debug("refresh limiter pruned", applogger.Int("keys", n))
		}
	})
	prune.Start(ctx)
	defer prune.Stop()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		a.log.Info("shutdown signal received")
	case <-ctx.Done():
		a.log.Info("context cancelled")
	}
	return a.shutdown()
}

// shutdown stops accepting requests, then stops every orchestrator so pending snapshot
// writes finish before infrastructure clients are closed by the caller.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.hub.Close()

	a.log.Info("shutdown complete")
	return nil
}
