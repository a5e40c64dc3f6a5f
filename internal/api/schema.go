package api

import (
	"net/http"

	"github.com/ancillary-hub/ancillary/internal/prompt"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Catalog == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema catalog is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents":      deps.Catalog.Documents(),
		"columns":        deps.Catalog.Columns(),
		"allowed_tables": prompt.AllowedTables,
		"allowed_models": prompt.AllowedModels,
		"triggers": map[string]any{
			"prediction": prompt.PredictionTriggers,
			"market":     prompt.MarketTriggers,
		},
	})
}
