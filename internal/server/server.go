package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"corpdesk/internal/engine"
	"corpdesk/internal/identity"
	"corpdesk/internal/logger"
	"corpdesk/internal/pool"
	"corpdesk/internal/repo"
	"corpdesk/internal/session"
)

// Config for the HTTP API handler.
type Config struct {
	Engine      *engine.Engine
	Resolver    identity.Resolver
	Log         logger.Logger
	BasePath    string
	CORSOrigins []string
	UploadsDir  string
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"not_found"`
	Message string         `json:"message" example:"document not found"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true"`
}

// apiError models the error envelope every endpoint returns.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the corpdesk API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the envelope above.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	log := cfg.Log
	if log == nil {
		log = logger.NewNoopLogger()
	}

	router := chi.NewRouter()
	router.Use(corsMiddleware(cfg.CORSOrigins))
	router.Use(requestContextMiddleware(cfg.Resolver))
	router.Use(observabilityMiddleware(log))

	hcfg := huma.DefaultConfig("Corpdesk API", "1.0.0")
	hcfg.OpenAPIPath = "/openapi"
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerHealth(group, cfg.Engine)
	registerAuth(group, cfg.Engine)
	registerDocuments(group, cfg.Engine)
	registerGerencias(group, cfg.Engine)
	registerUsers(group, cfg.Engine)
	registerTickets(group, cfg.Engine)
	registerSecurityLogs(group, cfg.Engine)
	registerAnnouncement(group, cfg.Engine)
	registerUploads(router, cfg.UploadsDir)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, pool.ErrPoolUnavailable):
		return newAPIError(http.StatusServiceUnavailable, "service_unavailable", "database unavailable", nil)
	case errors.Is(err, engine.ErrInvalidCredentials):
		return newAPIError(http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case errors.Is(err, engine.ErrUserExists):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, engine.ErrNoMembership):
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), nil)
	case errors.Is(err, repo.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return newAPIError(http.StatusServiceUnavailable, "service_unavailable", "database timeout", nil)
	case errors.Is(err, session.ErrTenantBind), errors.Is(err, engine.ErrSweep):
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": err.Error()})
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
}

func registerHealth(api huma.API, e *engine.Engine) {
	// The combined check answers 200 either way; the body says whether
	// the database behind it is reachable.
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body healthStatus `json:"body"`
	}, error) {
		body := healthStatus{Status: "ok", Database: "connected"}
		if err := e.Ping(ctx); err != nil {
			body = healthStatus{Status: "error", Database: "error", Message: err.Error()}
		}
		return &struct {
			Body healthStatus `json:"body"`
		}{Body: body}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health-live",
		Method:      http.MethodGet,
		Path:        "/health/live",
		Summary:     "Liveness check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "health-ready",
		Method:      http.MethodGet,
		Path:        "/health/ready",
		Summary:     "Readiness check",
		Errors:      []int{http.StatusServiceUnavailable},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		if err := e.Ping(ctx); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ready"}}, nil
	})
}

// registerUploads serves stored attachments from disk.
func registerUploads(r chi.Router, dir string) {
	if dir == "" {
		dir = "uploads"
	}
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(dir)))
	r.Get("/uploads/*", fs.ServeHTTP)
}
