package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"moneytracker/internal/cache"
	"moneytracker/internal/core"
	"moneytracker/internal/live"
	"moneytracker/internal/log"
	"moneytracker/internal/middleware/ratelimit"
	"moneytracker/internal/middleware/security"
	"moneytracker/internal/middleware/trace"
	"moneytracker/internal/notify"
	"moneytracker/internal/state"
	appweb "moneytracker/web"
)

// ListScreen is the list screen's state holder.
type ListScreen interface {
	State() state.ListState
	Subscribe(ctx context.Context) <-chan state.ListState
	Await(ctx context.Context, pred func(state.ListState) bool) (state.ListState, error)
	ApplyFilter(ctx context.Context, filter *core.TransactionType) error
	Delete(ctx context.Context, tx core.Transaction) error
}

// StatisticsScreen is the statistics screen's state holder.
type StatisticsScreen interface {
	State() state.StatisticsState
	Subscribe(ctx context.Context) <-chan state.StatisticsState
}

// NotificationTray holds the notifications shown in the page header.
type NotificationTray interface {
	Active() []notify.Notification
	Dismiss(id int) bool
	OnChange(fn func())
}

// Deps are the collaborators the screens render and dispatch to.
type Deps struct {
	List       ListScreen
	Statistics StatisticsScreen
	// Editor backs the add/edit form; each request gets its own draft.
	Editor state.EditRepository
	Tray   NotificationTray
	// Ready reports whether the store answers.
	Ready  func(ctx context.Context) error
	Logger *log.Logger
	// Caches registers the rate limiter's client table for eviction.
	Caches *cache.Manager
	Now    func() time.Time
}

type Server struct {
	http.Server
	templates *template.Template
	deps      Deps
	logger    *log.Logger
	now       func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// trayChanged wakes event streams when a notification is posted or dismissed.
	trayChanged *live.Hub
	started     time.Time

	streamsMu sync.Mutex
	streams   int
	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) (*Server, error) {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	t, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:   t,
		deps:        deps,
		logger:      logger,
		now:         now,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig(), logger),
		detector:    security.NewDetector(logger),
		trayChanged: live.NewHub(),
		closing:     make(chan struct{}),
		started:     now(),
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	if deps.Caches != nil {
		deps.Caches.Register(s.limiter.Cache())
	}
	if deps.Tray != nil {
		deps.Tray.OnChange(s.trayChanged.Publish)
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/transactions", s.handleListPartial)
	mux.HandleFunc("POST /filter", s.handleFilter)
	mux.HandleFunc("POST /transactions/{id}/delete", s.handleDelete)

	mux.HandleFunc("GET /transactions/new", s.handleNewForm)
	mux.HandleFunc("GET /transactions/{id}/edit", s.handleEditForm)
	mux.HandleFunc("POST /transactions", s.handleSave)

	mux.HandleFunc("GET /statistics", s.handleStatistics)

	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("GET /ui/notifications", s.handleNotifications)
	mux.HandleFunc("POST /notifications/{id}/dismiss", s.handleDismissNotification)

	// Outermost first: trace, probe detection, security headers, rate limit.
	var handler http.Handler = mux
	handler = s.limitWrites(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// No WriteTimeout: /events streams for the lifetime of the page.
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}
	return s, nil
}

// limitWrites applies the rate limiter to state-changing requests.
func (s *Server) limitWrites(next http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, slow down.").Write(w)
	})(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"money":  formatMoney,
		"signed": formatSigned,
		"date":   func(t time.Time) string { return t.Format(dateDisplayLayout) },
		"dateIn": func(t time.Time) string { return t.Format(dateTimeInputLayout) },
		"lower":  strings.ToLower,
		"types":  core.TransactionTypes,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
}

func filterValue(f *core.TransactionType) string {
	if f == nil {
		return "ALL"
	}
	return f.String()
}

// ActiveStreams returns the number of open /events connections.
func (s *Server) ActiveStreams() int {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()
	return s.streams
}

// Shutdown ends open event streams, stops accepting requests and waits
// for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.InfoContext(ctx, "Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
	s.closeOnce.Do(func() { close(s.closing) })
	return s.Server.Shutdown(ctx)
}
