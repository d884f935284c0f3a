// Package startup boots the application graph and runs its long-lived loops.
package startup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/politifan/school-peaky-minds/internal/application/container"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/performance"
	"github.com/politifan/school-peaky-minds/internal/presentation/http/server"
	"github.com/politifan/school-peaky-minds/pkg/clock"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

// NewLogger builds the channeled logger from configuration. Console output
// goes to console.
func NewLogger(console io.Writer) (*logging.ChanneledLogger, error) {
	cfg := logging.DefaultLoggerConfig()
	cfg.Console = console
	cfg.OutputToFile = config.LogToFile
	cfg.OutputToConsole = config.LogToConsole
	cfg.LogDirectory = config.LogDirectory
	cfg.JSONFormat = config.LogJSON
	cfg.DefaultLevel = logging.ParseLevel(config.LogLevel)
	return logging.NewChanneledLogger(cfg)
}

// Initialize creates the logger, performance tracker and container.
func Initialize(ctx context.Context, console io.Writer) (*container.Container, error) {
	start := time.Now()
	if config.GinMode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := NewLogger(console)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	perfTracker := performance.NewTracker(&performance.TrackerConfig{
		MaxEntries:    config.PerfMaxEntries,
		SlowThreshold: config.PerfSlowRequest,
	})
	perfTracker.OnSlow(func(e performance.Entry) {
		logger.Perf().Warn("Slow operation", "operation", e.Operation, "scope", e.Scope, "duration", e.Duration, "success", e.Success)
	})

	c, err := container.NewContainer(ctx, container.SettingsFromConfig(), nil, clock.Real{}, logger, perfTracker)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(start), false, map[string]any{"error": err.Error()})
		return nil, err
	}
	logger.LogStartupPhase("container", time.Since(start), true, map[string]any{
		"backend": c.Settings.StoreBackend,
		"bot":     c.Dispatcher != nil,
	})
	return c, nil
}

// ignoreCanceled treats a cancelled context as a clean exit.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Serve runs the HTTP server, feed hub, whitelist watcher and, when
// configured, the bot poller until ctx is cancelled or one of them fails.
func Serve(ctx context.Context, c *container.Container) error {
	start := time.Now()
	logger := c.Logger
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return ignoreCanceled(c.Hub.Run(ctx)) })
	g.Go(func() error { return ignoreCanceled(c.Whitelist.Watch(ctx)) })
	if c.Dispatcher != nil {
		g.Go(func() error { return ignoreCanceled(c.Telegram.Poll(ctx, config.BotPollTimeout, c.Dispatcher)) })
	}

	httpServer := server.New(":"+config.Port, server.Timeouts{
		Read:  config.ServerReadTimeout,
		Write: config.ServerWriteTimeout,
		Idle:  config.ServerIdleTimeout,
	}, c)
	g.Go(func() error { return httpServer.Run(ctx, config.ShutdownTimeout) })

	logger.Startup().Info("Application startup complete", "port", config.Port, "bot", c.Dispatcher != nil)
	err := g.Wait()

	shutdownStart := time.Now()
	if closeErr := c.Close(); closeErr != nil {
		logger.Shutdown().Error("Error closing container", "error", closeErr.Error())
	}
	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))
	return err
}

// RunBot runs only the bot poller and the whitelist watcher.
func RunBot(ctx context.Context, c *container.Container) error {
	if c.Dispatcher == nil {
		return errors.New("TELEGRAM_BOT_TOKEN is not set")
	}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(c.Whitelist.Watch(ctx)) })
	g.Go(func() error { return ignoreCanceled(c.Telegram.Poll(ctx, config.BotPollTimeout, c.Dispatcher)) })
	err := g.Wait()
	if closeErr := c.Close(); closeErr != nil {
		c.Logger.Shutdown().Error("Error closing container", "error", closeErr.Error())
	}
	return err
}
