package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense TransactionType = "EXPENSE"
	Income  TransactionType = "INCOME"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is one income or expense record. ID 0 means the record
	// has not been stored yet.
	Transaction struct {
		ID          int64
		Amount      Money
		Category    string
		Description string
		Date        time.Time
		Type        TransactionType
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrZeroDate      = errors.New("date cannot be zero")
)

// TransactionTypes lists the supported types in display order.
func TransactionTypes() []TransactionType {
	return []TransactionType{Expense, Income}
}

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseTransactionType accepts the enum name in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Normalize trims the free-text fields and truncates the date to the
// millisecond precision the store keeps.
func (t Transaction) Normalize() Transaction {
	t.Category = strings.TrimSpace(t.Category)
	t.Description = strings.TrimSpace(t.Description)
	t.Date = t.Date.Truncate(time.Millisecond)
	return t
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// IsNew reports whether the store still has to assign an ID.
func (t Transaction) IsNew() bool {
	return t.ID == 0
}

// Signed returns the amount with expenses negated.
func (t Transaction) Signed() Money {
	if t.Type == Expense {
		return Money{Cents: -t.Amount.Cents}
	}
	return t.Amount
}

// ChangeKind describes a committed write for change subscribers.
type ChangeKind string

const (
	ChangeUpsert ChangeKind = "upsert"
	ChangeDelete ChangeKind = "delete"
)
