package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"moneytracker/internal/log"
)

const heartbeatInterval = 25 * time.Second

// handleEvents streams "refresh" events naming the screen part that
// changed. The page reloads that part through htmx.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Event stream not supported", log.FieldError, err)
		return
	}

	ctx := r.Context()
	list := s.deps.List.Subscribe(ctx)
	stats := s.deps.Statistics.Subscribe(ctx)
	tray, cancelTray := s.trayChanged.Subscribe()
	defer cancelTray()

	// Both holders emit their current state first; the page already has it.
	select {
	case <-list:
	case <-ctx.Done():
		return
	}
	select {
	case <-stats:
	case <-ctx.Done():
		return
	}

	s.streamsMu.Lock()
	s.streams++
	s.streamsMu.Unlock()
	defer func() {
		s.streamsMu.Lock()
		s.streams--
		s.streamsMu.Unlock()
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	send := func(data string) bool {
		if _, err := fmt.Fprintf(w, "event: refresh\ndata: %s\n\n", data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	for {
		var ok bool
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		case _, open := <-list:
			if !open {
				return
			}
			ok = send("list")
		case _, open := <-stats:
			if !open {
				return
			}
			ok = send("statistics")
		case <-tray:
			ok = send("notifications")
		case <-heartbeat.C:
			_, err := fmt.Fprint(w, ": ping\n\n")
			ok = err == nil && rc.Flush() == nil
		}
		if !ok {
			return
		}
	}
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "notifications", s.listView(s.deps.List.State()))
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		BadRequestError("Invalid notification").Write(w)
		return
	}
	if s.deps.Tray != nil {
		s.deps.Tray.Dismiss(id)
	}
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "notifications", s.listView(s.deps.List.State()))
}
