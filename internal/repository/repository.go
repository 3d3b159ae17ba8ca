// Package repository narrows the store to the domain operations the screens
// need. Reads are live streams that re-emit after every committed write;
// writes are one-shot.
package repository

import (
	"context"
	"fmt"

	"moneytracker/internal/core"
	"moneytracker/internal/live"
	"moneytracker/internal/log"
)

// Store is the persistence port implemented by storage.SQLiteRepository and
// storage/memory.Store.
type Store interface {
	ListTransactions(ctx context.Context, filter *core.TransactionType) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	UpsertTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	DeleteTransaction(ctx context.Context, id int64) error
	SumAmount(ctx context.Context, typ core.TransactionType, period core.Period) (core.Money, error)
}

// ChangePublisher forwards committed writes to other processes.
type ChangePublisher interface {
	PublishTransactionChanged(ctx context.Context, id int64, kind core.ChangeKind) error
}

type Repository struct {
	store     Store
	hub       *live.Hub
	publisher ChangePublisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

type Option func(*Repository)

// WithPublisher sends a change event after every successful write.
func WithPublisher(p ChangePublisher) Option {
	return func(r *Repository) { r.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(r *Repository) { r.logger = l }
}

// WithHub shares an existing hub, e.g. with a consumer of remote changes.
func WithHub(h *live.Hub) Option {
	return func(r *Repository) { r.hub = h }
}

func New(store Store, opts ...Option) *Repository {
	r := &Repository{store: store}
	for _, opt := range opts {
		opt(r)
	}
	if r.hub == nil {
		r.hub = live.NewHub()
	}
	if r.logger == nil {
		r.logger = log.New(log.DefaultConfig())
	}
	r.logger = r.logger.WithComponent(log.ComponentRepository)
	r.events = log.NewStructuredLogger(r.logger)
	return r
}

// Hub exposes the change hub. Publishing on it makes every live read
// re-query the store.
func (r *Repository) Hub() *live.Hub {
	return r.hub
}

// WatchAll streams every transaction, newest first.
func (r *Repository) WatchAll(ctx context.Context) <-chan live.Update[[]core.Transaction] {
	return r.WatchFiltered(ctx, nil)
}

// WatchFiltered streams the transactions of one type, or all of them when
// filter is nil.
func (r *Repository) WatchFiltered(ctx context.Context, filter *core.TransactionType) <-chan live.Update[[]core.Transaction] {
	var f *core.TransactionType
	if filter != nil {
		v := *filter
		f = &v
	}
	return live.Watch(ctx, r.hub, func(ctx context.Context) ([]core.Transaction, error) {
		return r.store.ListTransactions(ctx, f)
	})
}

// WatchSum streams the total of one type within period.
func (r *Repository) WatchSum(ctx context.Context, typ core.TransactionType, period core.Period) <-chan live.Update[core.Money] {
	return live.Watch(ctx, r.hub, func(ctx context.Context) (core.Money, error) {
		return r.store.SumAmount(ctx, typ, period)
	})
}

// Get returns the transaction with the given ID or storage.ErrNotFound.
func (r *Repository) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return r.store.GetTransaction(ctx, id)
}

// Save inserts tx, or replaces the stored transaction with the same ID, and
// returns it with its stored ID.
func (r *Repository) Save(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx = tx.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	created := tx.IsNew()

	id, err := r.store.UpsertTransaction(ctx, tx)
	if err != nil {
		r.events.LogError(ctx, "Failed to save transaction", err, log.ComponentRepository, log.OpSave,
			log.NewFields().WithTransaction(tx.ID, tx.Type.String(), tx.Category, tx.Amount.Cents))
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	tx.ID = id

	r.events.LogTransactionSaved(ctx, tx.ID, tx.Type.String(), tx.Category, tx.Amount.Cents, created)
	r.changed(ctx, tx.ID, core.ChangeUpsert)
	return tx, nil
}

// Delete removes tx. Other transactions are left untouched.
func (r *Repository) Delete(ctx context.Context, tx core.Transaction) error {
	if err := r.store.DeleteTransaction(ctx, tx.ID); err != nil {
		r.events.LogError(ctx, "Failed to delete transaction", err, log.ComponentRepository, log.OpDelete,
			log.NewFields().WithTransaction(tx.ID, tx.Type.String(), tx.Category, tx.Amount.Cents))
		return fmt.Errorf("delete transaction %d: %w", tx.ID, err)
	}
	r.events.LogTransactionDeleted(ctx, tx.ID)
	r.changed(ctx, tx.ID, core.ChangeDelete)
	return nil
}

func (r *Repository) changed(ctx context.Context, id int64, kind core.ChangeKind) {
	r.hub.Publish()
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishTransactionChanged(ctx, id, kind); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish transaction change",
			log.FieldTransactionID, id,
			log.FieldOperation, string(kind),
			log.FieldError, err)
	}
}
