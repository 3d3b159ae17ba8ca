// Package state holds the view state of the three screens. Each holder owns
// a live.Value snapshot that renderers read and subscribe to.
package state

import (
	"time"

	"moneytracker/internal/log"
)

type options struct {
	now     func() time.Time
	logger  *log.Logger
	refresh time.Duration
}

type Option func(*options)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRefresh sets how often holders re-derive their now-relative periods
// when the store is quiet.
func WithRefresh(d time.Duration) Option {
	return func(o *options) { o.refresh = d }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, refresh: time.Minute}
	for _, opt := range opts {
		opt(&o)
	}
	if o.refresh <= 0 {
		o.refresh = time.Minute
	}
	if o.logger == nil {
		o.logger = log.New(log.DefaultConfig())
	}
	o.logger = o.logger.WithComponent(log.ComponentState)
	return o
}
