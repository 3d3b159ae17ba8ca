package worker

import (
	"context"
	"fmt"
	"time"

	"moneytracker/internal/amqp"
	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/sheets"

	"golang.org/x/sync/singleflight"
)

// TransactionLister is the read side of the transaction store.
type TransactionLister interface {
	ListTransactions(ctx context.Context, filter *core.TransactionType) ([]core.Transaction, error)
}

// SyncWorker mirrors the transaction table to an external sheet whenever a
// change event arrives. Every resync writes the full table, so lost or
// duplicated events only delay the mirror.
type SyncWorker struct {
	store  TransactionLister
	mirror sheets.TransactionMirror
	logger *log.Logger
	group  singleflight.Group
}

func NewSyncWorker(store TransactionLister, mirror sheets.TransactionMirror, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		store:  store,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange processes one change event from AMQP.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.TransactionChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing change message",
		log.FieldTransactionID, msg.ID,
		log.FieldOperation, string(msg.Kind),
		"message_id", msg.MessageID)

	if err := w.Resync(ctx); err != nil {
		return fmt.Errorf("resync after %s of %d: %w", msg.Kind, msg.ID, err)
	}
	return nil
}

// Resync writes the whole table to the mirror. Concurrent callers share one
// in-flight write.
func (w *SyncWorker) Resync(ctx context.Context) error {
	_, err, shared := w.group.Do("resync", func() (interface{}, error) {
		start := time.Now()
		txs, err := w.store.ListTransactions(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		if err := w.mirror.ReplaceAll(ctx, txs); err != nil {
			return nil, fmt.Errorf("replace mirror: %w", err)
		}
		w.logger.InfoContext(ctx, "Mirror updated",
			log.FieldOperation, log.OpSync,
			"rows", len(txs),
			log.FieldDuration, time.Since(start).Milliseconds())
		return nil, nil
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "Mirror sync failed",
			log.FieldOperation, log.OpSync,
			log.FieldError, err,
			"shared", shared)
	}
	return err
}

// Run resyncs once at startup and then every interval, as a backstop for
// messages lost while the worker was down. It returns nil once ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	if err := w.Resync(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup sync failed, will retry", log.FieldError, err)
	}
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Resync(ctx); err != nil {
				w.logger.WarnContext(ctx, "Periodic sync failed", log.FieldError, err)
			}
		}
	}
}
