package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestOpenAIChecker_Creation tests that the checker is created correctly.
func TestOpenAIChecker_Creation(t *testing.T) {
	checker := NewOpenAIChecker("", "sk-test")
	if checker == nil {
		t.Fatal("expected checker to be non-nil")
	}

	if checker.baseURL != "https://api.openai.com" {
		t.Errorf("expected default base URL, got %s", checker.baseURL)
	}

	if checker.client == nil {
		t.Error("expected HTTP client to be initialized")
	}

	if checker.client.Timeout == 0 {
		t.Error("expected HTTP client timeout to be set")
	}
}

// TestOpenAIChecker_MissingKey tests that a missing API key returns an error.
func TestOpenAIChecker_MissingKey(t *testing.T) {
	checker := NewOpenAIChecker("", "")

	err := checker.HealthCheck(context.Background())
	if err == nil {
		t.Error("expected error with missing API key")
	}

	expectedMsg := "openai api key not configured"
	if err.Error() != expectedMsg {
		t.Errorf("expected error message %q, got %q", expectedMsg, err.Error())
	}
}

// TestOpenAIChecker_SuccessfulResponse tests health check with 2xx response.
func TestOpenAIChecker_SuccessfulResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("expected /v1/models path, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("expected bearer auth header, got %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewOpenAIChecker(server.URL, "sk-test")

	if err := checker.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected no error for 200 OK response, got %v", err)
	}
}

// TestOpenAIChecker_ErrorResponse tests health check with non-2xx response.
func TestOpenAIChecker_ErrorResponse(t *testing.T) {
	testCases := []struct {
		name       string
		statusCode int
	}{
		{"401 Unauthorized", http.StatusUnauthorized},
		{"500 Internal Server Error", http.StatusInternalServerError},
		{"503 Service Unavailable", http.StatusServiceUnavailable},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			checker := NewOpenAIChecker(server.URL, "sk-test")

			if err := checker.HealthCheck(context.Background()); err == nil {
				t.Errorf("expected error for %d response, got nil", tc.statusCode)
			}
		})
	}
}

// TestOpenAIChecker_ContextCancellation tests that context cancellation is handled.
func TestOpenAIChecker_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	checker := NewOpenAIChecker(server.URL, "sk-test")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := checker.HealthCheck(ctx); err == nil {
		t.Error("expected error for cancelled context")
	}
}
