package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow mirrors one row of the transactions table.
type TransactionRow struct {
	ID           int64
	Amount       float64
	CategoryName string
	Description  sql.NullString
	Date         int64
	Type         string
}

// ScheduledJob mirrors one row of the scheduled_jobs table.
type ScheduledJob struct {
	Name       string
	NextRun    int64
	IntervalMs int64
	LastFired  sql.NullInt64
	CreatedAt  int64
}

const listTransactions = `SELECT id, amount, categoryName, description, date, type
FROM transactions
ORDER BY date DESC, id DESC`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

const listTransactionsByType = `SELECT id, amount, categoryName, description, date, type
FROM transactions
WHERE type = ?
ORDER BY date DESC, id DESC`

func (q *Queries) ListTransactionsByType(ctx context.Context, typ string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByType, typ)
	if err != nil {
		return nil, err
	}
	return scanTransactionRows(rows)
}

const getTransaction = `SELECT id, amount, categoryName, description, date, type
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.Amount, &i.CategoryName, &i.Description, &i.Date, &i.Type)
	return i, err
}

const insertTransaction = `INSERT INTO transactions (amount, categoryName, description, date, type)
VALUES (?, ?, ?, ?, ?)
RETURNING id`

type InsertTransactionParams struct {
	Amount       float64
	CategoryName string
	Description  sql.NullString
	Date         int64
	Type         string
}

func (q *Queries) InsertTransaction(ctx context.Context, arg InsertTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertTransaction,
		arg.Amount,
		arg.CategoryName,
		arg.Description,
		arg.Date,
		arg.Type,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const upsertTransaction = `INSERT INTO transactions (id, amount, categoryName, description, date, type)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    amount = excluded.amount,
    categoryName = excluded.categoryName,
    description = excluded.description,
    date = excluded.date,
    type = excluded.type
RETURNING id`

type UpsertTransactionParams struct {
	ID           int64
	Amount       float64
	CategoryName string
	Description  sql.NullString
	Date         int64
	Type         string
}

func (q *Queries) UpsertTransaction(ctx context.Context, arg UpsertTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertTransaction,
		arg.ID,
		arg.Amount,
		arg.CategoryName,
		arg.Description,
		arg.Date,
		arg.Type,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const sumAmountByTypeBetween = `SELECT COALESCE(SUM(amount), 0)
FROM transactions
WHERE type = ? AND date >= ? AND date < ?`

type SumAmountParams struct {
	Type  string
	Start int64
	End   int64
}

func (q *Queries) SumAmountByTypeBetween(ctx context.Context, arg SumAmountParams) (float64, error) {
	row := q.db.QueryRowContext(ctx, sumAmountByTypeBetween, arg.Type, arg.Start, arg.End)
	var total float64
	err := row.Scan(&total)
	return total, err
}

const insertScheduleIfAbsent = `INSERT INTO scheduled_jobs (name, next_run, interval_ms, last_fired, created_at)
VALUES (?, ?, ?, NULL, ?)
ON CONFLICT(name) DO NOTHING`

type InsertScheduleParams struct {
	Name       string
	NextRun    int64
	IntervalMs int64
	CreatedAt  int64
}

func (q *Queries) InsertScheduleIfAbsent(ctx context.Context, arg InsertScheduleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertScheduleIfAbsent, arg.Name, arg.NextRun, arg.IntervalMs, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getSchedule = `SELECT name, next_run, interval_ms, last_fired, created_at
FROM scheduled_jobs
WHERE name = ?`

func (q *Queries) GetSchedule(ctx context.Context, name string) (ScheduledJob, error) {
	row := q.db.QueryRowContext(ctx, getSchedule, name)
	var i ScheduledJob
	err := row.Scan(&i.Name, &i.NextRun, &i.IntervalMs, &i.LastFired, &i.CreatedAt)
	return i, err
}

const listDueSchedules = `SELECT name, next_run, interval_ms, last_fired, created_at
FROM scheduled_jobs
WHERE next_run <= ?
ORDER BY next_run ASC, name ASC`

func (q *Queries) ListDueSchedules(ctx context.Context, now int64) ([]ScheduledJob, error) {
	rows, err := q.db.QueryContext(ctx, listDueSchedules, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduledJob
	for rows.Next() {
		var i ScheduledJob
		if err := rows.Scan(&i.Name, &i.NextRun, &i.IntervalMs, &i.LastFired, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateSchedule = `UPDATE scheduled_jobs
SET next_run = ?, last_fired = ?
WHERE name = ?`

type UpdateScheduleParams struct {
	NextRun   int64
	LastFired sql.NullInt64
	Name      string
}

func (q *Queries) UpdateSchedule(ctx context.Context, arg UpdateScheduleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSchedule, arg.NextRun, arg.LastFired, arg.Name)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanTransactionRows(rows *sql.Rows) ([]TransactionRow, error) {
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.Amount, &i.CategoryName, &i.Description, &i.Date, &i.Type); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
