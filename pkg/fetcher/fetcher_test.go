package fetcher

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mbeckner/fetch-fanout/internal/testutil"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config",
			config:      DefaultConfig("TestApp/1.0.0 (test@example.com)"),
			expectError: false,
		},
		{
			name:        "empty user agent",
			config:      Config{},
			expectError: true,
			errorMsg:    "user-agent is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := New(tt.config)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got nil")
					return
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("Error message = %q, want %q", err.Error(), tt.errorMsg)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
					return
				}
				if f == nil {
					t.Error("Fetcher is nil")
				}
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("TestApp/1.0.0")

	if cfg.UserAgent != "TestApp/1.0.0" {
		t.Errorf("UserAgent = %q, want %q", cfg.UserAgent, "TestApp/1.0.0")
	}
	if cfg.FetchTimeout <= 0 {
		t.Errorf("FetchTimeout = %v, should be > 0", cfg.FetchTimeout)
	}
	if cfg.MaxConcurrency != 0 {
		t.Errorf("MaxConcurrency = %d, want 0 (unbounded)", cfg.MaxConcurrency)
	}
}

func TestFetch_Success(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	target.SetResponse("/data", testutil.TargetResponse{
		StatusCode: http.StatusOK,
		Body:       `{"test": "data"}`,
	})

	f, err := New(DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	body, err := f.Fetch(context.Background(), target.URL()+"/data")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if body != `{"test": "data"}` {
		t.Errorf("Body = %q, want %q", body, `{"test": "data"}`)
	}
}

func TestFetch_UserAgentSet(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	userAgent := "TestApp/1.0.0 (test@example.com)"
	f, err := New(DefaultConfig(userAgent))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	if _, err := f.Fetch(context.Background(), target.URL()); err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if target.GetLastUserAgent() != userAgent {
		t.Errorf("User-Agent = %q, want %q", target.GetLastUserAgent(), userAgent)
	}
}

func TestFetch_NonOKStatusPassesBodyThrough(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	target.SetResponse("/missing", testutil.TargetResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": "not found"}`,
	})

	f, err := New(DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	body, err := f.Fetch(context.Background(), target.URL()+"/missing")
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}

	if body != `{"error": "not found"}` {
		t.Errorf("Body = %q, want upstream error body passed through", body)
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	// Start and immediately close a server to get a port that refuses
	// connections.
	target := testutil.NewMockTarget()
	deadURL := target.URL()
	target.Close()

	f, err := New(DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	_, err = f.Fetch(context.Background(), deadURL)
	if err == nil {
		t.Fatal("Expected error for refused connection, got nil")
	}

	if !strings.Contains(err.Error(), deadURL) {
		t.Errorf("Error %q should contain the target URL %q", err.Error(), deadURL)
	}
}

func TestFetch_MalformedURL(t *testing.T) {
	f, err := New(DefaultConfig("TestApp/1.0.0"))
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	_, err = f.Fetch(context.Background(), "://not-a-url")
	if err == nil {
		t.Fatal("Expected error for malformed URL, got nil")
	}
}

func TestFetch_Timeout(t *testing.T) {
	target := testutil.NewMockTarget()
	defer target.Close()

	target.SetResponse("/slow", testutil.TargetResponse{
		StatusCode: http.StatusOK,
		Body:       "too late",
		Delay:      500 * time.Millisecond,
	})

	cfg := DefaultConfig("TestApp/1.0.0")
	cfg.FetchTimeout = 50 * time.Millisecond

	f, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create fetcher: %v", err)
	}

	start := time.Now()
	_, err = f.Fetch(context.Background(), target.URL()+"/slow")
	duration := time.Since(start)

	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if duration > 400*time.Millisecond {
		t.Errorf("Fetch took %v, per-fetch timeout did not apply", duration)
	}
}
