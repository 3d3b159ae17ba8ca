package http

import (
	"errors"
	"net/http"
	"strings"

	"moneytracker/internal/core"
	"moneytracker/internal/state"
	"moneytracker/internal/storage"
)

type editView struct {
	Draft state.Draft
	Types []core.TransactionType
	Title string
}

func newEditView(d state.Draft) editView {
	title := "Edit transaction"
	if d.IsNew() {
		title = "New transaction"
	}
	return editView{Draft: d, Types: core.TransactionTypes(), Title: title}
}

func (s *Server) newEditHolder() *state.EditHolder {
	return state.NewEditHolder(s.deps.Editor, state.WithClock(s.now), state.WithLogger(s.logger))
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	h := s.newEditHolder()
	if t := r.URL.Query().Get("type"); t != "" {
		if typ, err := core.ParseTransactionType(t); err == nil {
			h.SetType(typ)
		}
	}
	s.render(w, r, http.StatusOK, "edit_page", newEditView(h.Draft()))
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		NotFoundError("Transaction not found").Write(w)
		return
	}
	h := s.newEditHolder()
	if err := h.Load(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			NotFoundError("Transaction not found").Write(w)
			return
		}
		InternalServerError(h.Draft().Error).Write(w)
		return
	}
	s.render(w, r, http.StatusOK, "edit_page", newEditView(h.Draft()))
}

// handleSave creates or updates a transaction from the edit form. Invalid
// input re-renders the form with the error; a failed write is not retried.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	form, err := ParseTransactionForm(r)
	if err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	h := s.newEditHolder()
	if form.ID != "" && form.ID != "0" {
		id, err := parseID(form.ID)
		if err != nil {
			BadRequestError("Invalid transaction").Write(w)
			return
		}
		if err := h.Load(r.Context(), id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				NotFoundError("Transaction not found").Write(w)
				return
			}
			InternalServerError(h.Draft().Error).Write(w)
			return
		}
	}

	h.SetAmount(form.Amount)
	h.SetCategory(form.Category)
	h.SetDescription(form.Description)
	h.SetType(core.TransactionType(strings.ToUpper(form.Type)))
	if form.Date != "" {
		date, err := parseDateInput(form.Date, h.Draft().Date)
		if err != nil {
			s.render(w, r, http.StatusUnprocessableEntity, "edit_form", newEditView(withError(h.Draft(), "invalid date")))
			return
		}
		h.SetDate(date)
	}

	created := h.Draft().IsNew()
	if err := h.Save(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrEmptyCategory) ||
			errors.Is(err, core.ErrInvalidType) || errors.Is(err, core.ErrZeroDate) {
			status = http.StatusUnprocessableEntity
		}
		s.render(w, r, status, "edit_form", newEditView(h.Draft()))
		return
	}

	d := h.Draft()

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerTransactionSaved(d.ID, created).
		Redirect("/").
		Write(w)
}

func withError(d state.Draft, msg string) state.Draft {
	d.Error = msg
	return d
}
