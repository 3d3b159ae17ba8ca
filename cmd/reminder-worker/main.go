package main

import (
	"context"
	"os"
	"time"

	"moneytracker/internal/cli"
	"moneytracker/internal/log"
	"moneytracker/internal/notify"
	"moneytracker/internal/reminder"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentReminder)

	logger.Info("Starting reminder-worker",
		"reminder_hour", cfg.ReminderHour,
		"check_interval", cfg.ReminderCheckInterval)

	if err := cfg.ValidateReminderWorker(); err != nil {
		logger.Error("Reminder worker configuration invalid", log.FieldError, err)
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if res.AMQP != nil {
		notifiers = append(notifiers, res.AMQP)
		logger.Info("Reminders will be delivered over AMQP", "exchange", cfg.AMQPExchange)
	} else {
		logger.Warn("AMQP disabled - reminders are only logged")
	}

	scheduler := reminder.NewScheduler(res.Backend, logger)
	scheduler.Register(reminder.DailyReminderWork, reminder.NewReminderJob(notifiers, logger))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}
	})

	sc, created, err := scheduler.EnsureDaily(ctx, reminder.DailyReminderWork, cfg.ReminderHour)
	if err != nil {
		logger.Error("Failed to schedule daily reminder", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Daily reminder scheduled",
		log.FieldSchedule, sc.Name,
		"next_run", sc.NextRun,
		"created", created)

	if err := scheduler.Run(ctx, cfg.ReminderCheckInterval); err != nil {
		logger.Error("Scheduler stopped with error", log.FieldError, err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder worker stopped")
}
