package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ancillary-hub/ancillary/internal/pipeline"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

type fakeAsker struct {
	result    pipeline.Result
	questions []string
}

func (f *fakeAsker) Answer(_ context.Context, question string) pipeline.Result {
	f.questions = append(f.questions, question)
	return f.result
}

func TestAskEndpointReturnsPipelineResult(t *testing.T) {
	table := tabular.Table{Columns: []string{"city", "roi"}, Rows: [][]any{{"Dubai", 12.5}}}
	asker := &fakeAsker{result: pipeline.Result{
		SQL:            "SELECT city, roi FROM t",
		Table:          &table,
		Summary:        "Dubai leads.",
		UsesMarketData: true,
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Asker: asker})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"  Which competitor price is best?  "}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if len(asker.questions) != 1 || asker.questions[0] != "Which competitor price is best?" {
		t.Fatalf("questions = %#v", asker.questions)
	}

	body := decodeBody(t, rr)
	if body["sql"] != "SELECT city, roi FROM t" || body["summary"] != "Dubai leads." {
		t.Fatalf("body = %#v", body)
	}
	if body["uses_market_data"] != true || body["uses_ml_prediction"] != false {
		t.Fatalf("flags = %v %v", body["uses_market_data"], body["uses_ml_prediction"])
	}
	if _, ok := body["error"]; ok {
		t.Fatalf("error should be omitted, got %v", body["error"])
	}
	intent, _ := body["intent"].(map[string]any)
	if intent["market"] != true {
		t.Fatalf("intent = %#v", body["intent"])
	}
	tableBody, _ := body["table"].(map[string]any)
	rows, _ := tableBody["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("table = %#v", body["table"])
	}
}

func TestAskEndpointReportsStageFailuresWith200(t *testing.T) {
	asker := &fakeAsker{result: pipeline.Result{
		SQL: "SELECT broken",
		Err: &pipeline.StageError{Stage: pipeline.StageExecution, Err: errors.New("syntax error")},
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Asker: asker})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(`{"question":"q"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["error"] != "Query Execution Error: syntax error" {
		t.Fatalf("error = %v", body["error"])
	}
	if body["failed_stage"] != "execution" {
		t.Fatalf("failed_stage = %v", body["failed_stage"])
	}
	if _, ok := body["table"]; ok {
		t.Fatal("table should be omitted after an execution failure")
	}
}

func TestAskEndpointValidatesBody(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{Asker: &fakeAsker{}})
	cases := map[string]int{
		`{"question":"   "}`:       http.StatusBadRequest,
		`{"prompt":"unknown key"}`: http.StatusBadRequest,
		`not json`:                 http.StatusBadRequest,
	}
	for payload, want := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/ask", strings.NewReader(payload)))
		if rr.Code != want {
			t.Fatalf("payload %q status = %d, want %d", payload, rr.Code, want)
		}
	}
}
