package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/notify"
	"moneytracker/internal/storage/memory"
)

func TestNextOccurrence(t *testing.T) {
	loc := time.Local
	cases := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"morning", time.Date(2025, 5, 10, 8, 30, 0, 0, loc), time.Date(2025, 5, 10, 20, 0, 0, 0, loc)},
		{"exactly at hour", time.Date(2025, 5, 10, 20, 0, 0, 0, loc), time.Date(2025, 5, 10, 20, 0, 0, 0, loc)},
		{"after hour", time.Date(2025, 5, 10, 20, 0, 1, 0, loc), time.Date(2025, 5, 11, 20, 0, 0, 0, loc)},
		{"month end", time.Date(2025, 5, 31, 23, 0, 0, 0, loc), time.Date(2025, 6, 1, 20, 0, 0, 0, loc)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextOccurrence(tc.now, 20); !got.Equal(tc.want) {
				t.Fatalf("NextOccurrence = %v, want %v", got, tc.want)
			}
		})
	}
	if d := InitialDelay(time.Date(2025, 5, 10, 19, 0, 0, 0, loc), 20); d != time.Hour {
		t.Fatalf("InitialDelay = %v", d)
	}
}

func TestEnsureDailyKeepsExisting(t *testing.T) {
	store := memory.New()
	now := time.Date(2025, 5, 10, 21, 0, 0, 0, time.Local)
	s := NewScheduler(store, nil).WithClock(func() time.Time { return now })
	ctx := context.Background()

	first, created, err := s.EnsureDaily(ctx, DailyReminderWork, 20)
	if err != nil || !created {
		t.Fatalf("first registration: created=%v err=%v", created, err)
	}
	if !first.NextRun.Equal(time.Date(2025, 5, 11, 20, 0, 0, 0, time.Local)) {
		t.Fatalf("late start must schedule tomorrow, got %v", first.NextRun)
	}

	now = now.Add(time.Hour)
	second, created, err := s.EnsureDaily(ctx, DailyReminderWork, 20)
	if err != nil || created {
		t.Fatalf("second registration: created=%v err=%v", created, err)
	}
	if !second.NextRun.Equal(first.NextRun) {
		t.Fatal("second registration must not replace the pending schedule")
	}

	due, _ := store.ListDueSchedules(ctx, time.Date(2030, 1, 1, 0, 0, 0, 0, time.Local))
	if len(due) != 1 {
		t.Fatalf("expected exactly one schedule, got %d", len(due))
	}

	if _, _, err := s.EnsureDaily(ctx, "bad", 24); err == nil {
		t.Fatal("expected error for hour 24")
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func TestRunDueFiresOncePerDay(t *testing.T) {
	store := memory.New()
	now := time.Date(2025, 5, 10, 9, 0, 0, 0, time.Local)
	s := NewScheduler(store, nil).WithClock(func() time.Time { return now })
	n := &recordingNotifier{}
	s.Register(DailyReminderWork, NewReminderJob(n, nil))
	ctx := context.Background()

	if _, _, err := s.EnsureDaily(ctx, DailyReminderWork, 20); err != nil {
		t.Fatal(err)
	}
	if state, _ := s.State(ctx, DailyReminderWork); state != core.SchedulePending {
		t.Fatalf("state = %s", state)
	}

	if fired, _ := s.RunDue(ctx); fired != 0 {
		t.Fatalf("fired %d jobs before the hour", fired)
	}

	now = time.Date(2025, 5, 10, 20, 0, 30, 0, time.Local)
	if fired, err := s.RunDue(ctx); err != nil || fired != 1 {
		t.Fatalf("fired=%d err=%v", fired, err)
	}
	if fired, _ := s.RunDue(ctx); fired != 0 {
		t.Fatal("job must not fire twice on the same day")
	}
	if state, _ := s.State(ctx, DailyReminderWork); state != core.ScheduleFired {
		t.Fatalf("state = %s", state)
	}

	sc, _ := store.GetSchedule(ctx, DailyReminderWork)
	if !sc.NextRun.Equal(time.Date(2025, 5, 11, 20, 0, 0, 0, time.Local)) {
		t.Fatalf("next run = %v", sc.NextRun)
	}
	if len(n.sent) != 1 || n.sent[0].ID != notify.ReminderID {
		t.Fatalf("unexpected notifications: %+v", n.sent)
	}
}

func TestReminderJobAlwaysSucceeds(t *testing.T) {
	job := NewReminderJob(&recordingNotifier{err: errors.New("no display")}, nil)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("job must report success, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := NewScheduler(memory.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, time.Millisecond) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
