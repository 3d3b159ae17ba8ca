package http

import (
	"context"
	"net/http"
	"time"

	"moneytracker/internal/core"
	"moneytracker/internal/log"
	"moneytracker/internal/notify"
	"moneytracker/internal/state"
)

// filterSettleTimeout bounds how long the filter handler waits for the
// first result of the new subscription.
const filterSettleTimeout = 2 * time.Second

type filterChip struct {
	Value  string
	Label  string
	Active bool
}

type listView struct {
	State         state.ListState
	Filters       []filterChip
	Notifications []notify.Notification
}

func (s *Server) listView(st state.ListState) listView {
	active := st.FilterLabel()
	chips := []filterChip{{Value: "ALL", Label: "All", Active: active == "ALL"}}
	for _, t := range core.TransactionTypes() {
		label := "Expenses"
		if t == core.Income {
			label = "Income"
		}
		chips = append(chips, filterChip{Value: t.String(), Label: label, Active: active == t.String()})
	}
	v := listView{State: st, Filters: chips}
	if s.deps.Tray != nil {
		v.Notifications = s.deps.Tray.Active()
	}
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index_page", s.listView(s.deps.List.State()))
}

// handleListPartial returns the balance, chips and rows for htmx refreshes.
func (s *Server) handleListPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "transactions_list", s.listView(s.deps.List.State()))
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request").Write(w)
		return
	}
	filter, err := parseFilter(p.Get("filter"))
	if err != nil {
		BadRequestError("Unknown filter").Write(w)
		return
	}
	if err := s.deps.List.ApplyFilter(r.Context(), filter); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Apply filter failed", log.FieldError, err)
		ServiceUnavailableError("List is not available").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), filterSettleTimeout)
	defer cancel()
	want := filterValue(filter)
	st, err := s.deps.List.Await(ctx, func(st state.ListState) bool {
		return st.FilterLabel() == want && !st.Loading
	})
	if err != nil {
		// Still loading; the event stream refreshes the list once rows arrive.
		st = s.deps.List.State()
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "transactions_list", s.listView(st))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		BadRequestError("Invalid transaction").Write(w)
		return
	}

	tx := core.Transaction{ID: id}
	for _, t := range s.deps.List.State().Transactions {
		if t.ID == id {
			tx = t
			break
		}
	}

	if err := s.deps.List.Delete(r.Context(), tx); err != nil {
		NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Could not delete transaction").
			Write(w)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	NewHTMXResponse().
		TriggerTransactionDeleted(id).
		TriggerListRefresh().
		Write(w)
}
