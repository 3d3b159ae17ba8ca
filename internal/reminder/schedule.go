// Package reminder runs named periodic jobs on a persistent schedule and
// provides the daily expense reminder job.
package reminder

import (
	"context"
	"fmt"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
)

const (
	DailyReminderWork = "DailyReminderWork"
	Day               = 24 * time.Hour
)

// NextOccurrence returns today at hour:00 in now's location, or the same
// time tomorrow when that moment has already passed.
func NextOccurrence(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, hour, 0, 0, 0, now.Location())
	if next.Before(now) {
		next = time.Date(y, m, d+1, hour, 0, 0, 0, now.Location())
	}
	return next
}

// InitialDelay is the wait from now until NextOccurrence.
func InitialDelay(now time.Time, hour int) time.Duration {
	return NextOccurrence(now, hour).Sub(now)
}

// ScheduleStore persists schedules. storage.SQLiteRepository and
// storage/memory.Store implement it.
type ScheduleStore interface {
	InsertScheduleIfAbsent(ctx context.Context, s core.Schedule) (core.Schedule, bool, error)
	GetSchedule(ctx context.Context, name string) (core.Schedule, error)
	ListDueSchedules(ctx context.Context, now time.Time) ([]core.Schedule, error)
	UpdateSchedule(ctx context.Context, s core.Schedule) error
}

// Job is the work attached to a schedule name.
type Job interface {
	Run(ctx context.Context) error
}

type JobFunc func(ctx context.Context) error

func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }

type Scheduler struct {
	store  ScheduleStore
	jobs   map[string]Job
	now    func() time.Time
	logger *log.Logger
}

func NewScheduler(store ScheduleStore, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Scheduler{
		store:  store,
		jobs:   make(map[string]Job),
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentReminder),
	}
}

// WithClock replaces time.Now.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Register attaches job to the schedule name. Call before Run.
func (s *Scheduler) Register(name string, job Job) {
	s.jobs[name] = job
}

// EnsureDaily registers a daily schedule at hour:00. An existing schedule
// with the same name is kept unchanged and returned with created=false.
func (s *Scheduler) EnsureDaily(ctx context.Context, name string, hour int) (core.Schedule, bool, error) {
	if hour < 0 || hour > 23 {
		return core.Schedule{}, false, fmt.Errorf("invalid reminder hour %d", hour)
	}
	now := s.now()
	sc, created, err := s.store.InsertScheduleIfAbsent(ctx, core.Schedule{
		Name:      name,
		NextRun:   NextOccurrence(now, hour),
		Interval:  Day,
		CreatedAt: now,
	})
	if err != nil {
		return core.Schedule{}, false, fmt.Errorf("ensure schedule %s: %w", name, err)
	}

	fields := log.NewFields().WithSchedule(name).WithOperation(log.OpSchedule)
	if created {
		s.logger.InfoContext(ctx, "Schedule registered",
			append(fields.ToSlice(), "next_run", sc.NextRun.Format(time.RFC3339), "initial_delay", sc.NextRun.Sub(now).String())...)
	} else {
		s.logger.DebugContext(ctx, "Schedule already registered, keeping existing",
			append(fields.ToSlice(), "next_run", sc.NextRun.Format(time.RFC3339))...)
	}
	return sc, created, nil
}

// RunDue fires every schedule that is due, once, and moves it to its next
// run after now. It returns the number of jobs fired.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.ListDueSchedules(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due schedules: %w", err)
	}

	fired := 0
	for _, sc := range due {
		job, ok := s.jobs[sc.Name]
		if !ok {
			s.logger.WarnContext(ctx, "No job registered for due schedule", log.FieldSchedule, sc.Name)
			continue
		}

		if err := job.Run(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled job failed",
				log.FieldSchedule, sc.Name,
				log.FieldError, err)
		} else {
			fired++
		}

		sc.LastFired = now
		sc.NextRun = sc.Advance(now)
		if err := s.store.UpdateSchedule(ctx, sc); err != nil {
			return fired, fmt.Errorf("advance schedule %s: %w", sc.Name, err)
		}
		s.logger.InfoContext(ctx, "Scheduled job fired",
			log.FieldSchedule, sc.Name,
			"next_run", sc.NextRun.Format(time.RFC3339))
	}
	return fired, nil
}

// State reports whether the named schedule already fired today.
func (s *Scheduler) State(ctx context.Context, name string) (core.ScheduleState, error) {
	sc, err := s.store.GetSchedule(ctx, name)
	if err != nil {
		return "", err
	}
	return sc.StateAt(s.now()), nil
}

// Run checks for due schedules immediately and then every tick until ctx
// is done.
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) error {
	if _, err := s.RunDue(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Initial schedule check failed", log.FieldError, err)
	}

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RunDue(ctx); err != nil {
				s.logger.ErrorContext(ctx, "Schedule check failed", log.FieldError, err)
			}
		}
	}
}
