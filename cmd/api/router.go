package main

import (
	"database/sql"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/crucial707/detector/internal/config"
	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/handlers"
	"github.com/crucial707/detector/internal/metrics"
	"github.com/crucial707/detector/internal/middleware"
	"github.com/crucial707/detector/internal/repo"
	"github.com/crucial707/detector/internal/service"
)

// Settings keys read by the API.
var (
	keyGoogleClientID     = []string{"auth", "google", "clientId"}
	keyRestrictDomains    = []string{"auth", "options", "restrictUserDomains"}
	keyCascadeScanHistory = []string{"resources", "cascade", "scanHistory"}
)

type routerDeps struct {
	DB       *sql.DB
	Config   config.Config
	Settings *config.Settings
	Logger   *zap.Logger
	Version  string
	// Provider verifies login credentials; Google tokeninfo when nil.
	Provider service.IdentityProvider
	// BcryptCost overrides the access-token hash cost.
	BcryptCost int
}

// newRouter wires repositories, services and handlers onto one chi router.
func newRouter(d routerDeps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := d.Settings
	if settings == nil {
		settings = config.NewSettings(nil, nil)
	}
	clientID := settings.String(keyGoogleClientID...)
	provider := d.Provider
	if provider == nil {
		provider = service.NewGoogleProvider(clientID)
	}

	// ===== Repositories =====
	resourceRepo := repo.NewResourceRepo(d.DB)
	issueRepo := repo.NewIssueRepo(d.DB)
	alertRepo := repo.NewAlertRepo(d.DB)
	resultRepo := repo.NewScanResultRepo(d.DB)
	graphRepo := repo.NewGraphRepo(d.DB)
	auditRepo := repo.NewAuditRepo(d.DB)
	userRepo := repo.NewUserRepo(d.DB)

	// ===== Services =====
	resources := service.NewResourceService(service.ResourceDeps{
		Resources:          resourceRepo,
		Issues:             issueRepo,
		Alerts:             alertRepo,
		ScanResults:        resultRepo,
		Graphs:             graphRepo,
		CascadeScanHistory: settings.Bool(false, keyCascadeScanHistory...),
		Audit:              auditRepo,
		Tx:                 db.NewTransactor(d.DB),
		Logger:             logger.Named("resources"),
		Metrics:            metrics.Recorder{},
	})
	auth := service.NewAuthService(service.AuthDeps{
		Users:          userRepo,
		Provider:       provider,
		AllowedDomains: settings.Strings(keyRestrictDomains...),
		Cost:           d.BcryptCost,
		Logger:         logger.Named("auth"),
	})

	// ===== Handlers =====
	resourceHandler := handlers.NewResourceHandler(resources, logger)
	historyHandler := &handlers.HistoryHandler{
		Resources: resources,
		Issues:    issueRepo,
		Alerts:    alertRepo,
		Results:   resultRepo,
		Logs:      auditRepo,
		Graphs:    graphRepo,
		Logger:    logger,
	}
	authHandler := &handlers.AuthHandler{
		Auth:         auth,
		CookieSecure: d.Config.CookieSecure,
		Logger:       logger,
	}
	metaHandler := &handlers.MetaHandler{
		Version:        d.Version,
		GoogleClientID: clientID,
		Resources:      resourceRepo,
		Issues:         issueRepo,
		Logger:         logger,
	}
	loginLimiter := middleware.LoginRateLimiter()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(d.Config.TLSCertFile != "" && d.Config.TLSKeyFile != ""))
	r.Use(middleware.CORS(d.Config.CORSAllowedOrigins))
	r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := d.DB.PingContext(r.Context()); err != nil {
			logger.Warn("readiness ping failed", zap.Error(err))
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ready")
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/settings", metaHandler.Settings)
		r.Get("/stats", metaHandler.Stats)
		r.With(loginLimiter.Middleware).Post("/auth", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser(auth, logger))

			r.Get("/auth", authHandler.Me)
			r.Delete("/auth", authHandler.Logout)

			r.Route("/resource", func(r chi.Router) {
				r.Get("/", resourceHandler.List)
				r.Post("/", resourceHandler.Create)
				r.Post("/bulk", resourceHandler.CreateBulk)
				r.Delete("/bulk/{idList}", resourceHandler.DeleteBulk)
				r.Post("/toggle-active/bulk/{idList}", resourceHandler.ToggleActive)
				r.Get("/{id}", resourceHandler.Get)
				r.Post("/{id}", resourceHandler.Update)
				r.Delete("/{id}", resourceHandler.Delete)
			})

			r.Get("/issue", historyHandler.ListIssues)
			r.Get("/alert", historyHandler.ListAlerts)
			r.Get("/result", historyHandler.ListResults)
			r.Get("/log", historyHandler.ListLogs)
			r.Get("/graph/resource/{id}", historyHandler.Graph)
		})
	})

	return r
}
