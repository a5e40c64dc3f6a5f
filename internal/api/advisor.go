package api

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/ancillary-hub/ancillary/internal/advisor"
)

const maxUploadBytes = 10 << 20

type advisorRequest struct {
	Mode     string `json:"mode"`
	Question string `json:"question"`
	CSV      string `json:"csv"`
}

// handleAdvisor accepts either a JSON body or a multipart form with the
// fields mode and question plus an optional file part.
func handleAdvisor(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Advisor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ADVISOR_NOT_CONFIGURED", "advisor is not configured", false, nil)
		return
	}

	req, closeUpload, err := parseAdvisorRequest(w, r)
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ADVISOR_REQUEST", "invalid advisor request", false, map[string]any{"details": err.Error()})
		return
	}
	defer closeUpload()

	resp, err := deps.Advisor.Advise(r.Context(), req, nil)
	if err != nil {
		switch {
		case errors.Is(err, advisor.ErrEmptyQuestion):
			writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", err.Error(), false, nil)
		case errors.Is(err, advisor.ErrUnknownMode):
			writeError(r.Context(), w, http.StatusBadRequest, "UNKNOWN_MODE", err.Error(), false, nil)
		case errors.Is(err, advisor.ErrInvalidCSV):
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_CSV", err.Error(), false, nil)
		default:
			writeError(r.Context(), w, http.StatusBadGateway, "ADVISOR_FAILED", "advisor request failed", true, map[string]any{"details": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseAdvisorRequest(w http.ResponseWriter, r *http.Request) (advisor.Request, func(), error) {
	noop := func() {}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body advisorRequest
		if err := decodeJSON(w, r, &body); err != nil {
			return advisor.Request{}, noop, err
		}
		req := advisor.Request{Mode: advisor.Mode(body.Mode), Question: body.Question}
		if body.CSV != "" {
			req.CSV = strings.NewReader(body.CSV)
		}
		return req, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return advisor.Request{}, noop, err
	}
	cleanup := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}
	req := advisor.Request{
		Mode:     advisor.Mode(r.FormValue("mode")),
		Question: r.FormValue("question"),
	}
	file, _, err := r.FormFile("file")
	switch {
	case err == nil:
		req.CSV = file
		return req, func() { _ = file.Close(); cleanup() }, nil
	case errors.Is(err, http.ErrMissingFile):
		return req, cleanup, nil
	default:
		cleanup()
		return advisor.Request{}, noop, err
	}
}
