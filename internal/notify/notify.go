// Package notify posts user-facing notifications such as the daily reminder.
package notify

import (
	"context"
	"strconv"
	"time"

	"moneytracker/internal/cache"
	"moneytracker/internal/log"
)

const (
	ReminderChannelID   = "daily_reminder_channel"
	ReminderChannelName = "Daily expense reminder"
	ReminderID          = 1
)

// Notification is one message shown to the user. Posting a notification
// with an ID that is already shown replaces it.
type Notification struct {
	ID          int       `json:"id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PostedAt    time.Time `json:"posted_at"`
}

// DailyReminder builds the fixed evening reminder.
func DailyReminder(now time.Time) Notification {
	return Notification{
		ID:          ReminderID,
		ChannelID:   ReminderChannelID,
		ChannelName: ReminderChannelName,
		Title:       "Don't forget!",
		Body:        "Time to record today's income and expenses.",
		PostedAt:    now,
	}
}

type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Tray keeps the currently shown notifications, one per ID, until they
// are dismissed or expire.
type Tray struct {
	entries  *cache.LRUCache[Notification]
	logger   *log.Logger
	onChange func()
}

const trayCapacity = 32

func NewTray(ttl time.Duration, logger *log.Logger) *Tray {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Tray{
		entries: cache.NewLRUCache[Notification](trayCapacity, ttl),
		logger:  logger.WithComponent(log.ComponentNotify),
	}
}

// OnChange registers fn to run after every post or dismissal.
func (t *Tray) OnChange(fn func()) {
	t.onChange = fn
}

// Cache exposes the backing cache for periodic cleanup.
func (t *Tray) Cache() *cache.LRUCache[Notification] {
	return t.entries
}

func (t *Tray) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.entries.Set(strconv.Itoa(n.ID), n)
	t.logger.InfoContext(ctx, "Notification posted",
		log.FieldNotification, n.ID,
		"channel", n.ChannelID,
		"title", n.Title)
	t.changed()
	return nil
}

// Active returns the notifications currently shown, newest first.
func (t *Tray) Active() []Notification {
	return t.entries.Values()
}

// Dismiss removes a notification and reports whether it was shown.
func (t *Tray) Dismiss(id int) bool {
	ok := t.entries.Delete(strconv.Itoa(id))
	if ok {
		t.changed()
	}
	return ok
}

func (t *Tray) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}

// LogNotifier only writes notifications to the log.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotify)}
}

func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, n.Title,
		log.FieldNotification, n.ID,
		"channel", n.ChannelID,
		"body", n.Body)
	return nil
}

// Multi posts to every notifier and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, x := range m {
		if err := x.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
