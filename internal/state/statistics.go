package state

import (
	"context"
	"reflect"
	"sync"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/live"
	"moneytracker/internal/log"
)

// StatisticsState is what the statistics screen shows.
type StatisticsState struct {
	Statistics  core.Statistics
	PeriodLabel string
	Loading     bool
	Error       string
}

type AllWatcher interface {
	WatchAll(ctx context.Context) <-chan live.Update[[]core.Transaction]
}

// StatisticsHolder recomputes the month-to-date report on every change and
// whenever the clock moves the period, so a quiet store never pins an old
// month or hides entries dated later today.
type StatisticsHolder struct {
	opts   options
	state  *live.Value[StatisticsState]
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	txs    []core.Transaction
	loaded bool
}

func NewStatisticsHolder(ctx context.Context, repo AllWatcher, opts ...Option) *StatisticsHolder {
	ctx, cancel := context.WithCancel(ctx)
	h := &StatisticsHolder{
		opts:   buildOptions(opts),
		state:  live.NewValue(StatisticsState{Loading: true}),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go h.run(ctx, repo.WatchAll(ctx))
	return h
}

// State returns the report for the current month to date.
func (h *StatisticsHolder) State() StatisticsState {
	st := h.state.Get()
	h.mu.Lock()
	txs, loaded := h.txs, h.loaded
	h.mu.Unlock()
	if !loaded {
		return st
	}
	fresh := h.compute(txs)
	fresh.Error = st.Error
	return fresh
}

func (h *StatisticsHolder) Subscribe(ctx context.Context) <-chan StatisticsState {
	return h.state.Subscribe(ctx)
}

func (h *StatisticsHolder) Await(ctx context.Context, pred func(StatisticsState) bool) (StatisticsState, error) {
	return h.state.Await(ctx, pred)
}

func (h *StatisticsHolder) Close() {
	h.cancel()
	<-h.done
}

func (h *StatisticsHolder) compute(txs []core.Transaction) StatisticsState {
	period := core.MonthToDate(h.opts.now())
	return StatisticsState{
		Statistics:  core.ComputeStatistics(txs, period),
		PeriodLabel: period.Start.Format("January 2006"),
	}
}

func (h *StatisticsHolder) run(ctx context.Context, txs <-chan live.Update[[]core.Transaction]) {
	defer close(h.done)
	ticker := time.NewTicker(h.opts.refresh)
	defer ticker.Stop()

	for {
		select {
		case u, ok := <-txs:
			if !ok {
				return
			}
			if u.Err != nil {
				h.opts.logger.ErrorContext(ctx, "Statistics stream failed", log.FieldError, u.Err)
				h.state.Update(func(s StatisticsState) StatisticsState {
					s.Loading = false
					s.Error = msgLoadFailed
					return s
				})
				continue
			}
			h.mu.Lock()
			h.txs, h.loaded = u.Value, true
			h.mu.Unlock()
			h.state.Set(h.compute(u.Value))

		case <-ticker.C:
			h.mu.Lock()
			snapshot, loaded := h.txs, h.loaded
			h.mu.Unlock()
			if !loaded {
				continue
			}
			cur, next := h.state.Get(), h.compute(snapshot)
			if sameReport(cur, next) {
				continue
			}
			next.Error = cur.Error
			h.state.Set(next)
		}
	}
}

// sameReport ignores the period end, which moves with every tick.
func sameReport(a, b StatisticsState) bool {
	return a.PeriodLabel == b.PeriodLabel &&
		a.Statistics.TotalIncome == b.Statistics.TotalIncome &&
		a.Statistics.TotalExpense == b.Statistics.TotalExpense &&
		reflect.DeepEqual(a.Statistics.ByCategory, b.Statistics.ByCategory)
}
