package api

import (
	"net/http"
	"strings"

	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

type askRequest struct {
	Question string `json:"question"`
}

// askResponse mirrors pipeline.Result. A failed stage still answers 200 with
// Error set and whatever the pipeline produced before it stopped.
type askResponse struct {
	Question         string         `json:"question"`
	Intent           prompt.Intent  `json:"intent"`
	SQL              string         `json:"sql,omitempty"`
	UsesMarketData   bool           `json:"uses_market_data"`
	UsesMLPrediction bool           `json:"uses_ml_prediction"`
	Table            *tabular.Table `json:"table,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	Error            string         `json:"error,omitempty"`
	FailedStage      string         `json:"failed_stage,omitempty"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "question pipeline is not configured", false, nil)
		return
	}

	var req askRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	result := deps.Asker.Answer(r.Context(), question)
	resp := askResponse{
		Question:         question,
		Intent:           prompt.DetectIntent(question),
		SQL:              result.SQL,
		UsesMarketData:   result.UsesMarketData,
		UsesMLPrediction: result.UsesMLPrediction,
		Summary:          result.Summary,
		Error:            result.ErrorMessage(),
	}
	if result.Table != nil {
		safe := result.Table.Safe()
		resp.Table = &safe
	}
	if stage, failed := result.FailedStage(); failed {
		resp.FailedStage = stage.String()
	}
	writeJSON(w, http.StatusOK, resp)
}
