package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/formmaster/pro/internal/errs"
	"github.com/formmaster/pro/internal/logger"
	"github.com/formmaster/pro/internal/metrics"
	"github.com/formmaster/pro/internal/rbac"
)

// requestIDHeader carries the caller-supplied correlation ID; one is
// generated when absent.
const requestIDHeader = "X-Request-ID"

// rolesHeader names the authenticated principal's roles, comma-separated.
// Authentication itself happens upstream; this service only authorizes.
const rolesHeader = "X-User-Roles"

// requestID ensures every request carries a correlation ID, echoed back in
// the response and bound to the request logger.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		log := logger.FromContext(r.Context()).With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context())))
	})
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logger.FromContext(r.Context()).InfoWith("request", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		})
	})
}

// recoverer converts panics into 500 responses instead of dropped
// connections.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.FromContext(r.Context()).ErrorWith("panic recovered", nil, map[string]any{
					"panic": rec,
					"path":  r.URL.Path,
				})
				respondJSON(w, http.StatusInternalServerError, errorBody{
					Error: "internal server error",
					Kind:  errs.ErrKindUnknown.String(),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// monitorRequests records per-route durations into the performance monitor.
// A nil monitor disables recording.
func monitorRequests(mon *metrics.Monitor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mon == nil {
				next.ServeHTTP(w, r)
				return
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			op := r.Method + " " + routePattern(r)
			mon.Record(op, time.Since(start), ww.Status() < http.StatusInternalServerError)
		})
	}
}

// routePattern returns the chi route template ("/api/tables/{table}/fields")
// rather than the concrete path, keeping metric cardinality bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// authorize resolves the caller's permissions once per request. Requests
// without a roles header get viewer access.
func authorize(registry *rbac.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := []string{"viewer"}
			if raw := r.Header.Get(rolesHeader); raw != "" {
				roles = strings.Split(raw, ",")
			}

			perms := registry.Resolve(nil, roles)
			ctx := rbac.WithPermissions(r.Context(), perms)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requirePermission guards a route subtree with a single resource/action
// check.
func requirePermission(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			perms := rbac.PermissionsFromContext(r.Context())
			if !rbac.Allowed(perms, resource, action) {
				respondError(w, r, errs.Newf(errs.ErrKindPermissionDenied,
					"missing permission %s:%s", resource, action))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
