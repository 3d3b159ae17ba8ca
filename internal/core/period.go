package core

import (
	"fmt"
	"time"
)

// Period is a half-open time interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

func NewPeriod(start, end time.Time) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("period end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether t lies inside the period.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// StartMillis and EndMillis are the bounds in the store's epoch-millisecond encoding.
func (p Period) StartMillis() int64 { return p.Start.UnixMilli() }
func (p Period) EndMillis() int64   { return p.End.UnixMilli() }

// StartOfMonth returns midnight of the first day of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthToDate covers the start of now's calendar month through now. The end
// is the millisecond after now so an entry stamped now is counted.
func MonthToDate(now time.Time) Period {
	return Period{
		Start: StartOfMonth(now),
		End:   now.Truncate(time.Millisecond).Add(time.Millisecond),
	}
}

// CalendarYear covers the whole calendar year containing now.
func CalendarYear(now time.Time) Period {
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return Period{Start: start, End: start.AddDate(1, 0, 0)}
}

// YearToDate covers January 1 of now's year through now, with the same
// millisecond end as MonthToDate.
func YearToDate(now time.Time) Period {
	return Period{
		Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()),
		End:   now.Truncate(time.Millisecond).Add(time.Millisecond),
	}
}
