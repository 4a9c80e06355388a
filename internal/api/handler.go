package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querydesk/querydesk/internal/audit"
	"github.com/querydesk/querydesk/internal/auth"
	"github.com/querydesk/querydesk/internal/config"
	"github.com/querydesk/querydesk/internal/nl2sql"
	"github.com/querydesk/querydesk/internal/observability"
)

const version = "1.0.0"

type ReadinessCheck func(ctx context.Context) error

// QueryService is the question pipeline behind the query routes.
type QueryService interface {
	ProcessQuery(ctx context.Context, text string) (nl2sql.Plan, error)
	ExplainQuery(plan nl2sql.Plan) nl2sql.Explanation
	ValidateQuery(ctx context.Context, plan nl2sql.Plan) nl2sql.ValidationResult
	ExecuteQuery(ctx context.Context, plan nl2sql.Plan) nl2sql.ExecutionResult
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Queries           QueryService
	Audit             audit.Store
	Users             *auth.Users
	Sessions          *auth.SessionStore
	LoginLimiter      *auth.LoginLimiter
	UI                http.Handler
	Now               func() time.Time

	index map[string]string
}

// route is one API endpoint. Public routes skip the auth middleware; a
// non-empty summary lists the route in the GET /v1 index.
type route struct {
	method  string
	path    string
	public  bool
	summary string
	handle  func(deps Dependencies, w http.ResponseWriter, r *http.Request)
}

func (rt route) pattern() string { return rt.method + " " + rt.path }

func apiRoutes(cfg config.Config) []route {
	metrics := promhttp.Handler()
	return []route{
		{method: http.MethodGet, path: "/v1/health", public: true, summary: "Check API health (GET)",
			handle: func(_ Dependencies, w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
			}},
		{method: http.MethodGet, path: "/v1/ready", public: true, handle: handleReady},
		{method: http.MethodGet, path: "/v1/metrics", public: true,
			handle: func(_ Dependencies, w http.ResponseWriter, r *http.Request) { metrics.ServeHTTP(w, r) }},
		{method: http.MethodGet, path: "/v1", public: true, handle: handleIndex},
		{method: http.MethodPost, path: "/v1/auth/login", public: true, summary: "Get authentication token (POST)", handle: handleLogin},
		{method: http.MethodGet, path: "/v1/auth/verify", summary: "Check the current token (GET)",
			handle: func(_ Dependencies, w http.ResponseWriter, r *http.Request) { handleVerify(w, r) }},
		{method: http.MethodPost, path: "/v1/query", summary: "Process natural language queries (POST)", handle: handleQuery},
		{method: http.MethodPost, path: "/v1/explain", summary: "Get explanation of a query (POST)", handle: handleExplain},
		{method: http.MethodPost, path: "/v1/validate", summary: "Validate a query (POST)", handle: handleValidate},
		{method: http.MethodGet, path: "/v1/audit", summary: "List recent questions (GET)", handle: handleListAudit},
		{method: http.MethodGet, path: "/v1/audit/{id}", handle: handleGetAudit},
	}
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	routes := apiRoutes(cfg)
	deps.index = make(map[string]string)
	for _, rt := range routes {
		if rt.summary != "" {
			deps.index[rt.path] = rt.summary
		}
	}

	guard := func(next http.Handler) http.Handler { return next }
	if cfg.Auth.Required {
		switch {
		case deps.AuthMiddleware != nil:
			guard = deps.AuthMiddleware
		default:
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			guard = func(http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
				})
			}
		}
	}

	mux := http.NewServeMux()
	for _, rt := range routes {
		handle := rt.handle
		var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handle(deps, w, r)
		})
		if !rt.public {
			h = guard(h)
		}
		mux.Handle(rt.pattern(), h)
	}
	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

func handleReady(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Readiness == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}
	timeout := deps.DependencyTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	if err := deps.Readiness(ctx); err != nil {
		writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func handleIndex(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Welcome to the QueryDesk API",
		"endpoints": deps.index,
		"version":   version,
	})
}

func CheckObjectStoreConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		if cfg.ObjectStore.Endpoint == "" {
			return errors.New("object store endpoint is not configured")
		}
		if cfg.ObjectStore.Bucket == "" {
			return errors.New("object store bucket is not configured")
		}
		return nil
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}

func principal(r *http.Request) string {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return identity.Subject
	}
	return "anonymous"
}

func (d Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
