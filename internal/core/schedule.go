package core

import "time"

type ScheduleState string

const (
	SchedulePending ScheduleState = "pending"
	ScheduleFired   ScheduleState = "fired"
)

// Schedule is a named, persistent, periodic job registration.
type Schedule struct {
	Name      string
	NextRun   time.Time
	Interval  time.Duration
	LastFired time.Time // zero until the first run
	CreatedAt time.Time
}

// Due reports whether the job should run at now.
func (s Schedule) Due(now time.Time) bool {
	return !now.Before(s.NextRun)
}

// Advance returns the first run time strictly after now, keeping the
// original phase of the schedule.
func (s Schedule) Advance(now time.Time) time.Time {
	if s.Interval <= 0 || now.Before(s.NextRun) {
		return s.NextRun
	}
	missed := now.Sub(s.NextRun)/s.Interval + 1
	return s.NextRun.Add(missed * s.Interval)
}

// StateAt reports whether the job already fired on the calendar day of now.
func (s Schedule) StateAt(now time.Time) ScheduleState {
	if s.LastFired.IsZero() {
		return SchedulePending
	}
	ly, lm, ld := s.LastFired.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	if ly == ny && lm == nm && ld == nd {
		return ScheduleFired
	}
	return SchedulePending
}
