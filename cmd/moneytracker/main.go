package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"moneytracker/internal/cache"
	"moneytracker/internal/cli"
	apphttp "moneytracker/internal/http"
	"moneytracker/internal/log"
	"moneytracker/internal/notify"
	"moneytracker/internal/reminder"
	"moneytracker/internal/repository"
	"moneytracker/internal/services"
	"moneytracker/internal/state"
)

const cacheCleanInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	logger.Info("Starting moneytracker",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"reminder_in_process", cfg.ReminderInProcess)

	res := cli.InitBackend(context.Background(), logger, cfg)

	repo := repository.New(res.Backend,
		repository.WithPublisher(res.Publisher()),
		repository.WithLogger(logger))
	balance := services.NewBalanceUseCase(repo)

	appCtx, stopHolders := context.WithCancel(context.Background())
	list := state.NewListHolder(appCtx, repo, balance, state.WithLogger(logger))
	stats := state.NewStatisticsHolder(appCtx, repo, state.WithLogger(logger))

	caches := cache.NewManager(logger)
	tray := notify.NewTray(cfg.NotificationTTL, logger)
	caches.Register(tray.Cache())

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		List:       list,
		Statistics: stats,
		Editor:     repo,
		Tray:       tray,
		Ready:      res.Backend.Ping,
		Logger:     logger,
		Caches:     caches,
	})
	if err != nil {
		logger.Error("Failed to initialize HTTP server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		stopHolders()
		list.Close()
		stats.Close()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return caches.Run(gctx, cacheCleanInterval)
	})

	if cfg.ReminderInProcess {
		notifier := notify.Multi{tray, notify.NewLogNotifier(logger)}
		scheduler := reminder.NewScheduler(res.Backend, logger)
		scheduler.Register(reminder.DailyReminderWork, reminder.NewReminderJob(notifier, logger))
		if _, _, err := scheduler.EnsureDaily(gctx, reminder.DailyReminderWork, cfg.ReminderHour); err != nil {
			logger.Error("Failed to schedule daily reminder", log.FieldError, err)
			os.Exit(1)
		}
		g.Go(func() error {
			return scheduler.Run(gctx, cfg.ReminderCheckInterval)
		})
	}

	// Reminders fired by a separate reminder-worker arrive over the broker.
	if res.AMQP != nil && !cfg.ReminderInProcess {
		g.Go(func() error {
			err := res.AMQP.ConsumeNotifications(gctx, tray.Notify)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
