package state

import (
	"context"
	"errors"
	"strings"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/live"
	"moneytracker/internal/log"
	"moneytracker/internal/storage"
)

const (
	msgInvalidAmount = "invalid amount"
	msgEmptyCategory = "enter category"
	msgNotFound      = "transaction not found"
	msgLoadOneFailed = "could not load transaction"
	msgSaveFailed    = "could not save transaction"
)

// Draft is the edit form. Amount stays free text until Save parses it.
type Draft struct {
	ID             int64
	Amount         string
	Category       string
	Description    string
	Date           time.Time
	Type           core.TransactionType
	Saving         bool
	Saved          bool
	ShowDatePicker bool
	Error          string
}

// IsNew reports whether saving will create a transaction.
func (d Draft) IsNew() bool {
	return d.ID == 0
}

type EditRepository interface {
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Save(ctx context.Context, tx core.Transaction) (core.Transaction, error)
}

// EditHolder owns the draft of one add or edit session.
type EditHolder struct {
	repo  EditRepository
	opts  options
	draft *live.Value[Draft]
}

// NewEditHolder starts a blank expense dated now.
func NewEditHolder(repo EditRepository, opts ...Option) *EditHolder {
	o := buildOptions(opts)
	return &EditHolder{
		repo:  repo,
		opts:  o,
		draft: live.NewValue(Draft{Date: o.now().Truncate(time.Millisecond), Type: core.Expense}),
	}
}

func (h *EditHolder) Draft() Draft {
	return h.draft.Get()
}

func (h *EditHolder) Subscribe(ctx context.Context) <-chan Draft {
	return h.draft.Subscribe(ctx)
}

func (h *EditHolder) Await(ctx context.Context, pred func(Draft) bool) (Draft, error) {
	return h.draft.Await(ctx, pred)
}

// Load fills the draft from the stored transaction with the given ID.
func (h *EditHolder) Load(ctx context.Context, id int64) error {
	tx, err := h.repo.Get(ctx, id)
	if err != nil {
		msg := msgLoadOneFailed
		if errors.Is(err, storage.ErrNotFound) {
			msg = msgNotFound
		} else {
			h.opts.logger.ErrorContext(ctx, "Load transaction failed",
				log.FieldTransactionID, id,
				log.FieldError, err)
		}
		h.draft.Update(func(d Draft) Draft {
			d.Error = msg
			return d
		})
		return err
	}
	h.draft.Set(Draft{
		ID:          tx.ID,
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date,
		Type:        tx.Type,
	})
	return nil
}

func (h *EditHolder) SetAmount(s string) {
	h.edit(func(d *Draft) { d.Amount = s })
}

func (h *EditHolder) SetCategory(s string) {
	h.edit(func(d *Draft) { d.Category = s })
}

func (h *EditHolder) SetDescription(s string) {
	h.edit(func(d *Draft) { d.Description = s })
}

func (h *EditHolder) SetType(t core.TransactionType) {
	h.edit(func(d *Draft) { d.Type = t })
}

// SetDate also closes the date picker.
func (h *EditHolder) SetDate(t time.Time) {
	h.edit(func(d *Draft) {
		d.Date = t
		d.ShowDatePicker = false
	})
}

func (h *EditHolder) ShowDatePicker(show bool) {
	h.draft.Update(func(d Draft) Draft {
		d.ShowDatePicker = show
		return d
	})
}

// Save validates the draft and writes it. Validation problems and write
// failures are reported in the draft's Error and returned; nothing is
// retried.
func (h *EditHolder) Save(ctx context.Context) error {
	d := h.draft.Get()

	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		h.fail(msgInvalidAmount)
		return core.ErrInvalidAmount
	}
	if strings.TrimSpace(d.Category) == "" {
		h.fail(msgEmptyCategory)
		return core.ErrEmptyCategory
	}
	if !d.Type.Valid() {
		h.fail("invalid type")
		return core.ErrInvalidType
	}

	h.draft.Update(func(d Draft) Draft {
		d.Saving = true
		d.Error = ""
		return d
	})

	saved, err := h.repo.Save(ctx, core.Transaction{
		ID:          d.ID,
		Amount:      amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		Type:        d.Type,
	})
	if err != nil {
		h.opts.logger.ErrorContext(ctx, "Save transaction failed",
			log.FieldTransactionID, d.ID,
			log.FieldError, err)
		h.draft.Update(func(d Draft) Draft {
			d.Saving = false
			d.Error = msgSaveFailed
			return d
		})
		return err
	}

	h.draft.Update(func(d Draft) Draft {
		d.ID = saved.ID
		d.Category = saved.Category
		d.Description = saved.Description
		d.Saving = false
		d.Saved = true
		return d
	})
	return nil
}

func (h *EditHolder) edit(fn func(*Draft)) {
	h.draft.Update(func(d Draft) Draft {
		fn(&d)
		d.Error = ""
		return d
	})
}

func (h *EditHolder) fail(msg string) {
	h.draft.Update(func(d Draft) Draft {
		d.Error = msg
		return d
	})
}
