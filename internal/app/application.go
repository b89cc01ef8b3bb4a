package app

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/muratoffalex/omnibot/internal/app/di"
	"github.com/muratoffalex/omnibot/internal/commands/ask"
	"github.com/muratoffalex/omnibot/internal/commands/history"
	"github.com/muratoffalex/omnibot/internal/commands/imagine"
	"github.com/muratoffalex/omnibot/internal/commands/model"
	"github.com/muratoffalex/omnibot/internal/commands/start"
	"github.com/muratoffalex/omnibot/internal/commands/youtube"
	"github.com/muratoffalex/omnibot/internal/config"
	"github.com/muratoffalex/omnibot/internal/core"
	"github.com/muratoffalex/omnibot/internal/logger"
	"github.com/muratoffalex/omnibot/internal/storage"
)

const (
	FailedToInit = "Failed to init"

	taskRetention = 7 * 24 * time.Hour
)

type Application struct {
	Logger logger.Logger
	cfg    *config.Config
	bot    *core.Bot
	di     *di.Container
	ctx    context.Context
	cancel context.CancelFunc
}

func New() (*Application, error) {
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cfg, err := config.Load()
	if err != nil {
		cancel()
		return nil, err
	}

	di, err := di.NewContainer(cfg)
	if err != nil {
		cancel()
		return nil, err
	}
	di.Logger.Info("DI Container created")

	botInstance := core.NewBot(
		di.BotClient,
		di.Queue,
		di.Dispatcher,
		di.Logger,
		cfg,
		di.Localizer,
	)
	di.Logger.Info("Bot instance created")

	app := &Application{
		cfg:    cfg,
		bot:    botInstance,
		di:     di,
		Logger: di.Logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.registerCommands(ctx)

	return app, nil
}

func (a *Application) Start() error {
	a.Logger.Info("Starting application")
	a.StartCleaner()
	return a.bot.Start(a.ctx)
}

func (a *Application) registerCommands(ctx context.Context) {
	if a.cfg.GetCommandConfig(start.CommandName).Enabled {
		a.bot.RegisterCommand(start.New(a.di))
	}
	if a.cfg.GetCommandConfig(history.CommandName).Enabled {
		a.bot.RegisterCommand(history.New(a.di))
	}
	if a.cfg.GetCommandConfig(model.CommandName).Enabled {
		a.bot.RegisterCommand(model.New(a.di))
	}
	if a.cfg.GetCommandConfig(ask.CommandName).Enabled {
		a.bot.RegisterCommand(ask.New(a.di))
	}
	if a.cfg.GetCommandConfig(imagine.CommandName).Enabled {
		if a.cfg.ImageGen().GetAPIKey() == "" {
			a.Logger.WithField("command", imagine.CommandName).Warn("Image generation enabled, but api key is not set")
		} else {
			a.bot.RegisterCommand(imagine.New(a.di))
		}
	}
	if a.cfg.GetCommandConfig(youtube.CommandName).Enabled {
		go func() {
			initCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
			defer cancel()

			cmd, err := youtube.New(initCtx, a.di)
			if err != nil {
				a.Logger.WithError(err).WithField("command", youtube.CommandName).Error(FailedToInit)
				return
			}

			a.bot.RegisterCommand(cmd)
			a.Logger.WithField("command", youtube.CommandName).Info("YouTube command registered successfully")
		}()
	}
}

func (a *Application) WaitForShutdown() {
	<-a.ctx.Done()
	a.cancel()
	if err := a.di.DB.Close(); err != nil {
		a.Logger.WithError(err).Error("Failed to close database")
	}
	a.Logger.Info("Application stopped")
}

// StartCleaner periodically drops finished queue tasks and expired
// storage keys.
func (a *Application) StartCleaner() {
	interval := a.cfg.Global().CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.ctx.Done():
				return
			case <-ticker.C:
				a.cleanup()
			}
		}
	}()
}

func (a *Application) cleanup() {
	if n, err := a.di.DB.PurgeOldTasks(a.ctx, taskRetention); err != nil {
		a.Logger.WithError(err).Error("Failed to purge old tasks")
	} else if n > 0 {
		a.Logger.WithField("count", n).Debug("Old tasks purged")
	}

	if purger, ok := a.di.Store.(storage.Purger); ok {
		if n, err := purger.PurgeExpired(a.ctx); err != nil {
			a.Logger.WithError(err).Error("Failed to purge expired keys")
		} else if n > 0 {
			a.Logger.WithField("count", n).Debug("Expired keys purged")
		}
	}
}
