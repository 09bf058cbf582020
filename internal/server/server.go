// Package server exposes the field catalog, compatibility checks, form
// templates, profiles, and document uploads over a REST API.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/formmaster/pro/internal/config"
	"github.com/formmaster/pro/internal/database"
	"github.com/formmaster/pro/internal/documents"
	"github.com/formmaster/pro/internal/fields"
	"github.com/formmaster/pro/internal/forms"
	"github.com/formmaster/pro/internal/logger"
	"github.com/formmaster/pro/internal/metrics"
	"github.com/formmaster/pro/internal/profile"
	"github.com/formmaster/pro/internal/rbac"
)

// Dependencies carries the wired services the HTTP layer exposes.
type Dependencies struct {
	DB        database.DB
	Catalog   *fields.Catalog
	Checker   *fields.Checker
	Templates *forms.Store
	Profiles  *profile.Service
	Documents *documents.Service
	Registry  *rbac.Registry
	Monitor   *metrics.Monitor

	// PromRegistry backs GET /metrics. Optional; nil hides the endpoint.
	PromRegistry *prometheus.Registry
}

// Server is the HTTP front end.
type Server struct {
	http *http.Server
	log  *logger.Logger
}

// New builds the router and the http.Server around it.
func New(cfg *config.Config, deps Dependencies, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New(nil)
	}

	h := &handlers{deps: deps, maxUploadBytes: cfg.Server.MaxUploadBytes}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(monitorRequests(deps.Monitor))

	r.Get("/healthz", h.health)
	if deps.PromRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.PromRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(authorize(deps.Registry))

		r.Route("/fields", func(r chi.Router) {
			r.Use(requirePermission("fields", "read"))
			r.Get("/", h.listFields)
			r.Get("/grouped", h.groupedFields)
			r.Get("/categories", h.categorizedFields)
			r.Get("/search", h.searchFields)
		})

		r.Route("/tables/{table}/fields", func(r chi.Router) {
			r.Use(requirePermission("fields", "read"))
			r.Get("/", h.tableFields)
			r.Get("/{column}/metadata", h.fieldMetadata)
		})

		r.Route("/compatibility", func(r chi.Router) {
			r.Use(requirePermission("fields", "read"))
			r.Post("/field", h.checkField)
			r.Post("/form", h.checkForm)
			r.Post("/switch", h.switchReport)
		})

		r.Route("/forms", func(r chi.Router) {
			r.With(requirePermission("forms", "read")).Get("/", h.listTemplates)
			r.With(requirePermission("forms", "read")).Get("/{id}", h.getTemplate)
			r.With(requirePermission("forms", "create")).Post("/", h.createTemplate)
			r.With(requirePermission("forms", "update")).Put("/{id}", h.updateTemplate)
		})

		r.Route("/profiles/{clientID}", func(r chi.Router) {
			r.With(requirePermission("profiles", "read")).Get("/data", h.loadProfile)
			r.With(requirePermission("profiles", "update")).Put("/data", h.saveProfile)
			r.With(requirePermission("documents", "read")).Get("/documents", h.listDocuments)
			r.With(requirePermission("documents", "create")).Post("/documents", h.uploadDocument)
		})

		r.Route("/documents/{id}", func(r chi.Router) {
			r.With(requirePermission("documents", "read")).Get("/download", h.downloadDocument)
			r.With(requirePermission("documents", "delete")).Delete("/", h.deleteDocument)
		})

		r.Route("/admin", func(r chi.Router) {
			r.With(requirePermission("admin", "update")).Post("/cache/invalidate", h.invalidateCache)
			r.With(requirePermission("admin", "read")).Get("/performance", h.performance)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		log: log,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving HTTP until Shutdown is called or the listener fails.
func (s *Server) Start() error {
	s.log.Infof("listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
