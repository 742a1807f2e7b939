package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"honorarios/internal/core"
	applog "honorarios/internal/log"
	"honorarios/internal/middleware/trace"
	"honorarios/internal/ports"
	"honorarios/internal/services"
)

type (
	// SnapshotBuilder reads a full dump for the xlsx download.
	SnapshotBuilder interface {
		Build(ctx context.Context) (core.Snapshot, error)
	}

	// SnapshotStatusSource reports the outcome of the last snapshot request.
	SnapshotStatusSource interface {
		LastSnapshot() services.SnapshotStatus
	}

	// Pinger checks the primary store for readiness.
	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Dependencies wires the services behind the routes. Status and Store are
// optional.
type Dependencies struct {
	Clients   *services.ClientService
	Ledger    *services.Ledger
	Reports   *services.Reconciler
	Snapshots SnapshotBuilder
	Renderer  ports.ReportRenderer
	Status    SnapshotStatusSource
	Store     Pinger
}

type Server struct {
	http.Server
	deps    Dependencies
	logger  *applog.Logger
	tracer  *trace.Middleware
	started time.Time
	now     func() time.Time

	onShutdown   []func()
	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:    deps,
		logger:  logger,
		tracer:  trace.NewMiddleware(extractClientIP, logger),
		started: time.Now(),
		now:     time.Now,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /clients", s.handleListClients)
	mux.HandleFunc("POST /clients", s.handleCreateClient)
	mux.HandleFunc("GET /clients/next-code", s.handleNextCode)
	mux.HandleFunc("GET /clients/{code}", s.handleGetClient)
	mux.HandleFunc("PUT /clients/{code}", s.handleUpdateClient)
	mux.HandleFunc("DELETE /clients/{code}", s.handleDeleteClient)

	mux.HandleFunc("GET /clients/{code}/installments", s.handleListInstallments)
	mux.HandleFunc("POST /clients/{code}/installments", s.handleAppendInstallment)
	mux.HandleFunc("POST /clients/{code}/installments/split", s.handleSplit)
	mux.HandleFunc("PUT /clients/{code}/installments/{number}", s.handleUpdateInstallment)
	mux.HandleFunc("DELETE /clients/{code}/installments", s.handleRemoveInstallments)
	mux.HandleFunc("GET /clients/{code}/report.pdf", s.handleReportPDF)

	mux.HandleFunc("GET /reports/overdue", s.handleOverdue)
	mux.HandleFunc("GET /reports/paid", s.handlePaid)
	mux.HandleFunc("GET /reports/receivable", s.handleReceivable)
	mux.HandleFunc("GET /snapshot.xlsx", s.handleSnapshotXLSX)
	mux.HandleFunc("GET /orphans", s.handleOrphans)

	var h http.Handler = mux
	h = applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(h)
	h = s.tracer.Middleware(h)
	h = applog.Middleware(logger)(h)
	s.Handler = h

	return s
}

// OnShutdown registers cleanup run once before the listener is closed.
func (s *Server) OnShutdown(fn func()) {
	s.onShutdown = append(s.onShutdown, fn)
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		for _, fn := range s.onShutdown {
			fn()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSnapshotStatus flags a failed snapshot request triggered during the
// current request. The mutation itself has already succeeded.
func (s *Server) withSnapshotStatus(rb *ResponseBuilder, since time.Time) *ResponseBuilder {
	if s.deps.Status == nil {
		return rb
	}
	last := s.deps.Status.LastSnapshot()
	if last.Err != nil && !last.RequestedAt.Before(since) {
		rb.Header("X-Snapshot-Error", last.Err.Error())
	}
	return rb
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"requests":  s.tracer.GetMetrics().TotalRequests,
	}
	if s.deps.Status != nil {
		body["snapshot"] = snapshotStatusOf(s.deps.Status.LastSnapshot())
	}
	NewResponse().JSON(body).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	code := http.StatusOK
	checks := map[string]string{}

	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			checks["store"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}

	NewResponse().Status(code).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
