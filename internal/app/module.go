// Package app wires the interactive chat client together with fx.
package app

import (
	"context"

	"github.com/avitalVissoky/ChatLibrary/internal/bus"
	"github.com/avitalVissoky/ChatLibrary/internal/chatapi"
	"github.com/avitalVissoky/ChatLibrary/internal/config"
	"github.com/avitalVissoky/ChatLibrary/internal/logging"
	"github.com/avitalVissoky/ChatLibrary/internal/session"
	"github.com/avitalVissoky/ChatLibrary/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Params holds the resolved command line passed to the fx module.
type Params struct {
	User       string // optional; empty shows the login page
	ConfigPath string // empty = session.ConfigPath()
	Binary     string // log file name
}

// Module returns the fx module for the chat UI, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("chatui",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideClient,
			provideSessions,
			provideUI,
		),
		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.Named("fx")}
		}),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = session.ConfigPath()
	}
	return config.LoadOrDefault(path)
}

func provideLogger(p Params, cfg *config.Config) (*zap.Logger, error) {
	binary := p.Binary
	if binary == "" {
		binary = "chatui"
	}
	return logging.New(session.HostLogPath(binary), "", false, logging.ParseLevel(cfg.LogLevel))
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideClient(cfg *config.Config, logger *zap.Logger) (*chatapi.Client, error) {
	return NewClient(cfg, logger)
}

func provideSessions(logger *zap.Logger) *Sessions {
	return NewSessions(logger)
}

func provideUI(p Params, cfg *config.Config, c *chatapi.Client, b *bus.Bus, s *Sessions, logger *zap.Logger) *tui.App {
	return tui.NewApp(tui.Deps{
		Client:   c,
		Bus:      b,
		Sessions: s,
		Logger:   logger,
		Config:   cfg,
		User:     session.Resolve(p.User, cfg),
	})
}

func registerLifecycle(lc fx.Lifecycle, sd fx.Shutdowner, ui *tui.App, s *Sessions, logger *zap.Logger) {
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			logger.Info("starting chat ui")
			go func() {
				defer close(done)
				if err := ui.Run(); err != nil {
					logger.Error("ui error", zap.Error(err))
				}
				// Leaving the UI ends the process.
				_ = sd.Shutdown()
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ui.Stop()
			select {
			case <-done:
			case <-ctx.Done():
				logger.Warn("ui did not stop in time")
			}
			if err := s.Logout(); err != nil {
				logger.Warn("error releasing session", zap.Error(err))
			}
			logger.Info("chat ui stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
