package api

import (
	"errors"
	"net/http"

	"github.com/ancillary-hub/ancillary/internal/dashboard"
	"github.com/ancillary-hub/ancillary/internal/trend"
)

type classifyRequest struct {
	Values []float64 `json:"values"`
}

func handleDashboard(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dashboard == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DASHBOARD_NOT_CONFIGURED", "dashboard is not configured", false, nil)
		return
	}
	d, err := deps.Dashboard.Load(r.Context())
	if err != nil {
		writeDashboardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func handleDashboardInsight(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Dashboard == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DASHBOARD_NOT_CONFIGURED", "dashboard is not configured", false, nil)
		return
	}
	pair, insight, err := deps.Dashboard.WeakestPairInsight(r.Context())
	if err != nil {
		writeDashboardError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pair": pair, "insight": insight})
}

func writeDashboardError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, dashboard.ErrNoData) {
		writeError(r.Context(), w, http.StatusNotFound, "DASHBOARD_NO_DATA", err.Error(), false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusBadGateway, "DASHBOARD_FAILED", "failed to build dashboard", true, map[string]any{"details": err.Error()})
}

func handleClassify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid classify request body", false, map[string]any{"details": err.Error()})
		return
	}
	label, explanation := trend.Classify(req.Values)
	writeJSON(w, http.StatusOK, map[string]any{"stage": label, "explanation": explanation})
}
