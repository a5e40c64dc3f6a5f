package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ancillary-hub/ancillary/internal/dashboard"
)

type fakeDashboard struct {
	dashboard dashboard.Dashboard
	pair      dashboard.WeakestPair
	insight   string
	err       error
}

func (f *fakeDashboard) Load(context.Context) (dashboard.Dashboard, error) {
	return f.dashboard, f.err
}

func (f *fakeDashboard) WeakestPairInsight(context.Context) (dashboard.WeakestPair, string, error) {
	return f.pair, f.insight, f.err
}

func TestDashboardEndpoint(t *testing.T) {
	fake := &fakeDashboard{dashboard: dashboard.Dashboard{
		Period:   dashboard.Period{Year: 2024, Month: 1, Label: "January 2024"},
		ROI:      dashboard.ROICard{Current: 18.5, MoM: -1.5, Trend: dashboard.DirectionDeclining},
		Rankings: dashboard.Rankings{BestService: "Spa", BestCity: "Dubai"},
	}}
	h := NewHandler(testConfig(t, nil), Dependencies{Dashboard: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	roi, _ := body["roi"].(map[string]any)
	if roi["current"] != 18.5 || roi["yoy"] != nil {
		t.Fatalf("roi = %#v", body["roi"])
	}
}

func TestDashboardEndpointMapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
		code string
	}{
		{dashboard.ErrNoData, http.StatusNotFound, "DASHBOARD_NO_DATA"},
		{fmt.Errorf("load kpis: %w", errors.New("warehouse down")), http.StatusBadGateway, "DASHBOARD_FAILED"},
	}
	for _, tc := range cases {
		h := NewHandler(testConfig(t, nil), Dependencies{Dashboard: &fakeDashboard{err: tc.err}})
		for _, route := range []struct{ method, path string }{
			{http.MethodGet, "/v1/dashboard"},
			{http.MethodPost, "/v1/dashboard/insight"},
		} {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(route.method, route.path, nil))
			if rr.Code != tc.want {
				t.Fatalf("%s status = %d, want %d", route.path, rr.Code, tc.want)
			}
			if body := decodeBody(t, rr); body["error_code"] != tc.code {
				t.Fatalf("%s error_code = %v", route.path, body["error_code"])
			}
		}
	}
}

func TestDashboardInsightEndpoint(t *testing.T) {
	fake := &fakeDashboard{
		pair:    dashboard.WeakestPair{Service: "Gym", City: "Paris", AvgROI: -4.2, Direction: dashboard.DirectionDeclining},
		insight: "- Root cause: low demand",
	}
	h := NewHandler(testConfig(t, nil), Dependencies{Dashboard: fake})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/dashboard/insight", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	pair, _ := body["pair"].(map[string]any)
	if pair["service_category"] != "Gym" || pair["city"] != "Paris" {
		t.Fatalf("pair = %#v", body["pair"])
	}
	if body["insight"] != "- Root cause: low demand" {
		t.Fatalf("insight = %v", body["insight"])
	}
}

func TestClassifyEndpoint(t *testing.T) {
	h := NewHandler(testConfig(t, nil), Dependencies{})
	cases := map[string]string{
		`{"values":[1,2,3]}`:      "Growth",
		`{"values":[9,3,2,1]}`:    "Decline",
		`{"values":[-1,-2,-0.5]}`: "High Risk",
		`{"values":[1]}`:          "Insufficient Data",
		`{"values":[5,2,4]}`:      "Stable",
		`{"values":[]}`:           "Insufficient Data",
	}
	for payload, want := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/lifecycle/classify", strings.NewReader(payload)))
		if rr.Code != http.StatusOK {
			t.Fatalf("payload %s status = %d", payload, rr.Code)
		}
		body := decodeBody(t, rr)
		if body["stage"] != want {
			t.Fatalf("payload %s stage = %v, want %s", payload, body["stage"], want)
		}
		if explanation, _ := body["explanation"].(string); explanation == "" {
			t.Fatalf("payload %s explanation is empty", payload)
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/lifecycle/classify", strings.NewReader(`{"values":"nope"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid payload status = %d", rr.Code)
	}
}
