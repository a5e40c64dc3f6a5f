package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ancillary-hub/ancillary/internal/history"
)

func handleListHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "interaction history is not configured", false, nil)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}
	limit = history.ClampLimit(limit)

	entries, err := deps.History.List(r.Context(), limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_LIST_FAILED", "failed to list interactions", true, map[string]any{"details": err.Error()})
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"interactions": entries, "limit": limit})
}

func handleGetHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "HISTORY_NOT_CONFIGURED", "interaction history is not configured", false, nil)
		return
	}
	id := r.PathValue("id")
	entry, err := deps.History.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "INTERACTION_NOT_FOUND", "interaction not found", false, map[string]any{"id": id})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "HISTORY_GET_FAILED", "failed to load interaction", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
