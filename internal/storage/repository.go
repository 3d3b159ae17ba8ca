package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moneytracker/internal/core"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database handle is usable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SchemaVersion reports the applied migration version of this database.
func (r *SQLiteRepository) SchemaVersion() (uint, bool, error) {
	return SchemaVersion(r.path)
}

// ListTransactions returns every transaction, or only those of the given
// type when filter is non-nil, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter *core.TransactionType) ([]core.Transaction, error) {
	var (
		rows []TransactionRow
		err  error
	)
	if filter == nil {
		rows, err = r.queries.ListTransactions(ctx)
	} else {
		rows, err = r.queries.ListTransactionsByType(ctx, filter.String())
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toTransaction(row)
}

// UpsertTransaction inserts tx, or replaces the stored row with the same ID.
// An ID of 0 lets the database assign one. The stored ID is returned.
func (r *SQLiteRepository) UpsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	description := sql.NullString{String: tx.Description, Valid: tx.Description != ""}

	var (
		id  int64
		err error
	)
	if tx.IsNew() {
		id, err = r.queries.InsertTransaction(ctx, InsertTransactionParams{
			Amount:       tx.Amount.Float(),
			CategoryName: tx.Category,
			Description:  description,
			Date:         tx.Date.UnixMilli(),
			Type:         tx.Type.String(),
		})
	} else {
		id, err = r.queries.UpsertTransaction(ctx, UpsertTransactionParams{
			ID:           tx.ID,
			Amount:       tx.Amount.Float(),
			CategoryName: tx.Category,
			Description:  description,
			Date:         tx.Date.UnixMilli(),
			Type:         tx.Type.String(),
		})
	}
	if err != nil {
		return 0, fmt.Errorf("upsert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction stored in SQLite",
		"id", id,
		"type", tx.Type,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	return id, nil
}

// DeleteTransaction removes the row with the given ID. Deleting a missing
// row is not an error.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Delete matched no transaction", "id", id)
	}
	return nil
}

// SumAmount totals the amounts of one type within [period.Start, period.End).
func (r *SQLiteRepository) SumAmount(ctx context.Context, typ core.TransactionType, period core.Period) (core.Money, error) {
	total, err := r.queries.SumAmountByTypeBetween(ctx, SumAmountParams{
		Type:  typ.String(),
		Start: period.StartMillis(),
		End:   period.EndMillis(),
	})
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s amounts: %w", typ, err)
	}
	return core.MoneyFromFloat(total), nil
}

// InsertScheduleIfAbsent registers s unless a schedule with the same name
// exists. It returns the stored schedule and whether it was created.
func (r *SQLiteRepository) InsertScheduleIfAbsent(ctx context.Context, s core.Schedule) (core.Schedule, bool, error) {
	n, err := r.queries.InsertScheduleIfAbsent(ctx, InsertScheduleParams{
		Name:       s.Name,
		NextRun:    s.NextRun.UnixMilli(),
		IntervalMs: s.Interval.Milliseconds(),
		CreatedAt:  s.CreatedAt.UnixMilli(),
	})
	if err != nil {
		return core.Schedule{}, false, fmt.Errorf("insert schedule %s: %w", s.Name, err)
	}
	stored, err := r.GetSchedule(ctx, s.Name)
	if err != nil {
		return core.Schedule{}, false, err
	}
	return stored, n > 0, nil
}

func (r *SQLiteRepository) GetSchedule(ctx context.Context, name string) (core.Schedule, error) {
	row, err := r.queries.GetSchedule(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Schedule{}, ErrNotFound
	}
	if err != nil {
		return core.Schedule{}, fmt.Errorf("get schedule %s: %w", name, err)
	}
	return toSchedule(row), nil
}

// ListDueSchedules returns the schedules whose next run is at or before now.
func (r *SQLiteRepository) ListDueSchedules(ctx context.Context, now time.Time) ([]core.Schedule, error) {
	rows, err := r.queries.ListDueSchedules(ctx, now.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	out := make([]core.Schedule, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSchedule(row))
	}
	return out, nil
}

// UpdateSchedule persists the next run and last fired time of s.
func (r *SQLiteRepository) UpdateSchedule(ctx context.Context, s core.Schedule) error {
	lastFired := sql.NullInt64{}
	if !s.LastFired.IsZero() {
		lastFired = sql.NullInt64{Int64: s.LastFired.UnixMilli(), Valid: true}
	}
	n, err := r.queries.UpdateSchedule(ctx, UpdateScheduleParams{
		NextRun:   s.NextRun.UnixMilli(),
		LastFired: lastFired,
		Name:      s.Name,
	})
	if err != nil {
		return fmt.Errorf("update schedule %s: %w", s.Name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	typ, err := core.ParseTransactionType(row.Type)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Amount:      core.MoneyFromFloat(row.Amount),
		Category:    row.CategoryName,
		Description: row.Description.String,
		Date:        time.UnixMilli(row.Date),
		Type:        typ,
	}, nil
}

func toSchedule(row ScheduledJob) core.Schedule {
	s := core.Schedule{
		Name:      row.Name,
		NextRun:   time.UnixMilli(row.NextRun),
		Interval:  time.Duration(row.IntervalMs) * time.Millisecond,
		CreatedAt: time.UnixMilli(row.CreatedAt),
	}
	if row.LastFired.Valid {
		s.LastFired = time.UnixMilli(row.LastFired.Int64)
	}
	return s
}
