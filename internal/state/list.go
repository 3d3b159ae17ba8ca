package state

import (
	"context"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/live"
	"moneytracker/internal/log"
)

const (
	msgLoadFailed   = "could not load transactions"
	msgDeleteFailed = "could not delete transaction"
)

// ListState is what the list screen shows.
type ListState struct {
	Transactions []core.Transaction
	Balance      core.Money
	Filter       *core.TransactionType
	Loading      bool
	Error        string
}

// FilterLabel names the active filter chip.
func (s ListState) FilterLabel() string {
	if s.Filter == nil {
		return "ALL"
	}
	return s.Filter.String()
}

type ListRepository interface {
	WatchFiltered(ctx context.Context, filter *core.TransactionType) <-chan live.Update[[]core.Transaction]
	Delete(ctx context.Context, tx core.Transaction) error
}

type BalanceWatcher interface {
	Watch(ctx context.Context, period core.Period) <-chan live.Update[core.Money]
}

// ListHolder keeps the list screen state current. It follows the filtered
// transaction stream and the balance from January 1 through now.
type ListHolder struct {
	repo    ListRepository
	balance BalanceWatcher
	opts    options
	state   *live.Value[ListState]

	filters chan *core.TransactionType
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewListHolder starts following the store. The holder stops when ctx is
// cancelled or Close is called.
func NewListHolder(ctx context.Context, repo ListRepository, balance BalanceWatcher, opts ...Option) *ListHolder {
	ctx, cancel := context.WithCancel(ctx)
	h := &ListHolder{
		repo:    repo,
		balance: balance,
		opts:    buildOptions(opts),
		state:   live.NewValue(ListState{Loading: true}),
		filters: make(chan *core.TransactionType),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.run(ctx)
	return h
}

func (h *ListHolder) State() ListState {
	return h.state.Get()
}

func (h *ListHolder) Subscribe(ctx context.Context) <-chan ListState {
	return h.state.Subscribe(ctx)
}

// Await blocks until pred holds for the published state.
func (h *ListHolder) Await(ctx context.Context, pred func(ListState) bool) (ListState, error) {
	return h.state.Await(ctx, pred)
}

// ApplyFilter switches the list to one type, or to all transactions when
// filter is nil. The previous list subscription is dropped.
func (h *ListHolder) ApplyFilter(ctx context.Context, filter *core.TransactionType) error {
	var f *core.TransactionType
	if filter != nil {
		v := *filter
		f = &v
	}
	select {
	case h.filters <- f:
		return nil
	case <-h.done:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delete removes tx. The list itself changes when the store re-emits.
func (h *ListHolder) Delete(ctx context.Context, tx core.Transaction) error {
	if err := h.repo.Delete(ctx, tx); err != nil {
		h.opts.logger.ErrorContext(ctx, "Delete from list failed",
			log.FieldTransactionID, tx.ID,
			log.FieldError, err)
		h.state.Update(func(s ListState) ListState {
			s.Error = msgDeleteFailed
			return s
		})
		return err
	}
	h.state.Update(func(s ListState) ListState {
		s.Error = ""
		return s
	})
	return nil
}

// Close stops the holder and waits for its subscriptions to end.
func (h *ListHolder) Close() {
	h.cancel()
	<-h.done
}

func (h *ListHolder) run(ctx context.Context) {
	defer close(h.done)

	var filter *core.TransactionType
	listCtx, cancelList := context.WithCancel(ctx)
	list := h.repo.WatchFiltered(listCtx, filter)

	balanceCtx, cancelBalance := context.WithCancel(ctx)
	balance := h.balance.Watch(balanceCtx, core.YearToDate(h.opts.now()))

	ticker := time.NewTicker(h.opts.refresh)
	defer func() {
		ticker.Stop()
		cancelList()
		cancelBalance()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case f := <-h.filters:
			cancelList()
			filter = f
			listCtx, cancelList = context.WithCancel(ctx)
			list = h.repo.WatchFiltered(listCtx, filter)
			h.state.Update(func(s ListState) ListState {
				s.Filter = f
				s.Transactions = nil
				s.Loading = true
				s.Error = ""
				return s
			})

		case u, ok := <-list:
			if !ok {
				list = nil
				continue
			}
			if u.Err != nil {
				h.opts.logger.ErrorContext(ctx, "Transaction stream failed", log.FieldError, u.Err)
				h.state.Update(func(s ListState) ListState {
					s.Loading = false
					s.Error = msgLoadFailed
					return s
				})
				continue
			}
			h.state.Update(func(s ListState) ListState {
				s.Transactions = u.Value
				s.Loading = false
				if s.Error == msgLoadFailed {
					s.Error = ""
				}
				return s
			})

		case <-ticker.C:
			// The period end is now, so entries dated later today enter it
			// and New Year resets it without any write.
			cancelBalance()
			balanceCtx, cancelBalance = context.WithCancel(ctx)
			balance = h.balance.Watch(balanceCtx, core.YearToDate(h.opts.now()))

		case u, ok := <-balance:
			if !ok {
				balance = nil
				continue
			}
			if u.Err != nil {
				h.opts.logger.ErrorContext(ctx, "Balance stream failed", log.FieldError, u.Err)
				continue
			}
			if h.state.Get().Balance == u.Value {
				continue
			}
			h.state.Update(func(s ListState) ListState {
				s.Balance = u.Value
				return s
			})
		}
	}
}
