// Package http serves the finance engine as a JSON API under /api/v1.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"firefly/internal/format"
	"firefly/internal/log"
	"firefly/internal/middleware/ratelimit"
	"firefly/internal/middleware/security"
	"firefly/internal/middleware/trace"
	"firefly/internal/ports"
	"firefly/internal/services"
	"firefly/internal/settings"
	"firefly/internal/sheets"
)

// Deps are the collaborators the API is served from.
type Deps struct {
	Backend  ports.Backend
	Settings settings.Store
	Bank     *services.BankService
	Exporter sheets.TransactionExporter // nil disables the Sheets export
	Location *time.Location
	Logger   *log.Logger

	// Ready reports whether the backend can serve requests.
	Ready func(ctx context.Context) error

	RateLimitPerMinute int
	Now                func() time.Time
}

type Server struct {
	http.Server
	logger  *log.Logger
	backend ports.Backend
	prefs   settings.Store
	format  format.Formatter
	ready   func(context.Context) error
	now     func() time.Time
	started time.Time

	ledger    *services.LedgerService
	imports   *services.ImportService
	exports   *services.ExportService
	budgets   *services.BudgetService
	reports   *services.ReportService
	dashboard *services.DashboardService
	invoices  *services.InvoiceService
	bank      *services.BankService

	limiter      *ratelimit.Limiter
	detector     *security.Detector
	tracer       *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer wires the services and routes, returning a ready-to-run server.
// Shutdown releases the rate limiter as well as the listener.
func NewServer(addr string, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = log.New(log.DefaultConfig())
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Settings == nil {
		d.Settings = settings.NewStatic(format.DefaultCurrency)
	}
	if d.Bank == nil {
		d.Bank = services.NewBankService(d.Backend, services.WithBankClock(d.Now))
	}
	if d.Ready == nil {
		d.Ready = func(context.Context) error { return nil }
	}

	logger := d.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		logger:    logger,
		backend:   d.Backend,
		prefs:     d.Settings,
		format:    format.Formatter{Preference: d.Settings, Location: d.Location},
		ready:     d.Ready,
		now:       d.Now,
		started:   d.Now(),
		ledger:    services.NewLedgerService(d.Backend),
		imports:   services.NewImportService(d.Backend, d.Logger),
		exports:   services.NewExportService(d.Backend, d.Exporter),
		budgets:   services.NewBudgetService(d.Backend, d.Location),
		reports:   services.NewReportService(d.Backend),
		dashboard: services.NewDashboardService(d.Backend),
		invoices:  services.NewInvoiceService(d.Backend, d.Now),
		bank:      d.Bank,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		detector:  security.NewDetector(),
	}
	s.tracer = trace.NewMiddleware(d.Logger, s.detector.ExtractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.WritesOnly, s.handleRateLimited))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/accounts", s.handleListAccounts)
		r.Post("/accounts", s.handleCreateAccount)
		r.Get("/accounts/{id}", s.handleGetAccount)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Get("/categories/{id}", s.handleGetCategory)

		r.Get("/tags", s.handleListTags)
		r.Post("/tags", s.handleCreateTag)
		r.Delete("/tags/{id}", s.handleDeleteTag)

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleListTransactions)
			r.Post("/", s.handleCreateTransaction)
			r.Post("/import", s.handleImportTransactions)
			r.Get("/export", s.handleExportTransactions)
			r.Post("/export/sheets", s.handleExportSheets)
		})

		r.Get("/dashboard", s.handleDashboard)

		r.Route("/budgets", func(r chi.Router) {
			r.Get("/", s.handleListBudgets)
			r.Get("/status", s.handleBudgetStatus)
			r.Put("/month/{month}", s.handleSaveBudget)
			r.Get("/{id}", s.handleGetBudget)
			r.Delete("/{id}", s.handleDeleteBudget)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.handleListReports)
			r.Post("/", s.handleCreateReport)
			r.Get("/{id}", s.handleGetReport)
			r.Put("/{id}", s.handleUpdateReport)
			r.Delete("/{id}", s.handleDeleteReport)
			r.Get("/{id}/results", s.handleReportResults)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.handleListInvoices)
			r.Post("/", s.handleCreateInvoice)
			r.Get("/{id}", s.handleGetInvoice)
			r.Put("/{id}", s.handleUpdateInvoice)
			r.Delete("/{id}", s.handleDeleteInvoice)
		})

		r.Route("/bank-connections", func(r chi.Router) {
			r.Get("/", s.handleListBankConnections)
			r.Post("/", s.handleCreateBankConnection)
			r.Get("/{id}", s.handleGetBankConnection)
			r.Delete("/{id}", s.handleDeleteBankConnection)
			r.Post("/{id}/sync", s.handleSyncBankConnection)
		})

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// Shutdown stops the rate limiter and gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
