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

	"github.com/ancillary-hub/ancillary/internal/advisor"
	"github.com/ancillary-hub/ancillary/internal/config"
	"github.com/ancillary-hub/ancillary/internal/dashboard"
	"github.com/ancillary-hub/ancillary/internal/history"
	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/pipeline"
	"github.com/ancillary-hub/ancillary/internal/schema"
)

const maxJSONBodyBytes = 1 << 20

type ReadinessCheck func(ctx context.Context) error

type Asker interface {
	Answer(ctx context.Context, question string) pipeline.Result
}

type DashboardLoader interface {
	Load(ctx context.Context) (dashboard.Dashboard, error)
	WeakestPairInsight(ctx context.Context) (dashboard.WeakestPair, string, error)
}

type Advisor interface {
	Advise(ctx context.Context, req advisor.Request, onChunk func(string)) (advisor.Response, error)
}

// Dependencies left nil make their routes answer 501.
type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	DependencyTimeout time.Duration
	Catalog           *schema.Catalog
	Asker             Asker
	Dashboard         DashboardLoader
	Advisor           Advisor
	History           history.Store
	UI                http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
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
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})
	mux.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	mux.HandleFunc("GET /v1/dashboard", func(w http.ResponseWriter, r *http.Request) {
		handleDashboard(deps, w, r)
	})
	mux.HandleFunc("POST /v1/dashboard/insight", func(w http.ResponseWriter, r *http.Request) {
		handleDashboardInsight(deps, w, r)
	})
	mux.HandleFunc("POST /v1/lifecycle/classify", func(w http.ResponseWriter, r *http.Request) {
		handleClassify(w, r)
	})
	mux.HandleFunc("POST /v1/advisor", func(w http.ResponseWriter, r *http.Request) {
		handleAdvisor(deps, w, r)
	})
	mux.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleListHistory(deps, w, r)
	})
	mux.HandleFunc("GET /v1/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		handleGetHistory(deps, w, r)
	})
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

// CheckWarehouseConfig verifies the settings the configured warehouse driver
// cannot start without.
func CheckWarehouseConfig(cfg config.Config) ReadinessCheck {
	return func(_ context.Context) error {
		switch cfg.Warehouse.Driver {
		case config.WarehouseBigQuery:
			if cfg.Warehouse.Project == "" {
				return errors.New("bigquery project is not configured")
			}
		case config.WarehouseDuckDB:
			if cfg.ObjectStore.Endpoint == "" {
				return errors.New("object store endpoint is not configured")
			}
			if cfg.ObjectStore.Bucket == "" {
				return errors.New("object store bucket is not configured")
			}
		default:
			return fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
		}
		return nil
	}
}

// CheckHistory pings the interaction history database.
func CheckHistory(ping func(ctx context.Context) error) ReadinessCheck {
	if ping == nil {
		return nil
	}
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("history database unavailable: %w", err)
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

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
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
