package reminder

import (
	"context"
	"time"

	"moneytracker/internal/log"
	"moneytracker/internal/notify"
)

// ReminderJob posts the daily reminder notification.
type ReminderJob struct {
	notifier notify.Notifier
	now      func() time.Time
	logger   *log.Logger
}

func NewReminderJob(notifier notify.Notifier, logger *log.Logger) *ReminderJob {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReminderJob{
		notifier: notifier,
		now:      time.Now,
		logger:   logger.WithComponent(log.ComponentReminder),
	}
}

// Run always reports success. A notifier failure is only logged since
// there is nothing to retry until the next day.
func (j *ReminderJob) Run(ctx context.Context) error {
	n := notify.DailyReminder(j.now())
	if err := j.notifier.Notify(ctx, n); err != nil {
		j.logger.WarnContext(ctx, "Failed to post daily reminder",
			log.FieldNotification, n.ID,
			log.FieldError, err)
	}
	return nil
}
