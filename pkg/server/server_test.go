package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mbeckner/fetch-fanout/internal/testutil"
	"github.com/mbeckner/fetch-fanout/pkg/fetcher"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	f, err := fetcher.New(fetcher.DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	return New(f, nil, 10*time.Second)
}

func postFetch(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest("POST", "/v1/fetch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, req)
	return w
}

func TestFetchHandler_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "this is not json"},
		{"truncated", `{"urls": ["http://a.test"`},
		{"wrong field type", `{"urls": "http://a.test"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postFetch(t, s, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestFetchHandler_NoTargets(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty list", `{"urls": []}`},
		{"missing field", `{}`},
		{"null field", `{"urls": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postFetch(t, s, tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if !strings.Contains(w.Body.String(), "no urls provided") {
				t.Errorf("Body = %q, want no-urls message", w.Body.String())
			}
		})
	}
}

func TestFetchHandler_Success(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	target.SetResponse("/a", testutil.TargetResponse{StatusCode: http.StatusOK, Body: "<body-a>"})
	target.SetResponse("/c", testutil.TargetResponse{StatusCode: http.StatusOK, Body: "<body-c>"})

	s := newTestServer(t)

	body := `{"urls": ["` + target.URL() + `/a", "` + target.URL() + `/c"]}`
	w := postFetch(t, s, body)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d (body: %s)", w.Code, http.StatusOK, w.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(resp.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(resp.Results))
	}
	if resp.Results[0] != "<body-a>" {
		t.Errorf("results[0] = %q, want %q", resp.Results[0], "<body-a>")
	}
	if resp.Results[1] != "<body-c>" {
		t.Errorf("results[1] = %q, want %q", resp.Results[1], "<body-c>")
	}
}

func TestFetchHandler_MixedOutcomes(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	target.SetResponse("/a", testutil.TargetResponse{StatusCode: http.StatusOK, Body: "<body-a>"})
	target.SetResponse("/c", testutil.TargetResponse{StatusCode: http.StatusOK, Body: "<body-c>"})

	dead := testutil.NewMockTarget()
	deadURL := dead.URL()
	dead.Close()

	s := newTestServer(t)

	body := `{"urls": ["` + target.URL() + `/a", "` + deadURL + `/b", "` + target.URL() + `/c"]}`
	w := postFetch(t, s, body)

	// Individual failures never fail the batch.
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(resp.Results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(resp.Results))
	}
	if resp.Results[0] != "<body-a>" {
		t.Errorf("results[0] = %q, want %q", resp.Results[0], "<body-a>")
	}
	if !strings.HasPrefix(resp.Results[1], "Error fetching data from "+deadURL+"/b: ") {
		t.Errorf("results[1] = %q, want error string with URL", resp.Results[1])
	}
	if resp.Results[2] != "<body-c>" {
		t.Errorf("results[2] = %q, want %q", resp.Results[2], "<body-c>")
	}
}

func TestFetchHandler_BatchTimeout(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	target.SetResponse("/hang", testutil.TargetResponse{
		StatusCode: http.StatusOK,
		Body:       "too late",
		Delay:      2 * time.Second,
	})

	f, err := fetcher.New(fetcher.DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}
	s := New(f, nil, 100*time.Millisecond)

	body := `{"urls": ["` + target.URL() + `/hang"]}`
	w := postFetch(t, s, body)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(w.Body.String(), "batch failed") {
		t.Errorf("Body = %q, want batch failure message", w.Body.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Body = %q, want OK", w.Body.String())
	}
}

func TestReadyEndpoint_NoCache(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Status = %d, want 200", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
		t.Error("Expected Prometheus format metrics output")
	}
}
