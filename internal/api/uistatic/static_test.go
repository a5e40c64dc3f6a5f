package uistatic

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesIndexForUnknownPaths(t *testing.T) {
	h := Handler()
	for _, target := range []string{"/", "/dashboard", "/advisor/roi"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d", target, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "Ancillary Intelligence Hub") {
			t.Fatalf("%s did not serve index.html", target)
		}
		if got := rr.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/html") {
			t.Fatalf("%s content type = %q", target, got)
		}
	}
}

func TestHandlerServesStaticAssets(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "/v1/ask") {
		t.Fatal("app.js should call the ask endpoint")
	}
}
