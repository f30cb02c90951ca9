package server

import (
	"context"
	"net/http"
	"testing"
	"time"
)

// TestAPIConnectivitySmoke is a single smoke test to validate that the real
// arXiv endpoints are reachable. This is the ONLY test in this package that
// makes real HTTP requests; everything else uses httptest fixtures to avoid
// network dependencies and flakiness.
func TestAPIConnectivitySmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping smoke test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	endpoints := []struct {
		name string
		url  string
	}{
		{"arXiv query API", defaultAPIBaseURL + "?search_query=all:electron&max_results=1"},
		{"arXiv PDF host", defaultPDFBaseURL + "/1706.03762"},
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.url, nil)
			if err != nil {
				t.Fatalf("Failed to create request: %v", err)
			}
			req.Header.Set("User-Agent", userAgent)

			resp, err := client.Do(req)
			if err != nil {
				t.Logf("WARNING: %s connectivity test failed: %v", endpoint.name, err)
				t.Skip("Skipping due to connectivity issues - this is expected in offline environments")
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 500 {
				t.Logf("WARNING: %s returned server error: %d", endpoint.name, resp.StatusCode)
				t.Skip("Skipping due to server error - this may be temporary")
				return
			}

			t.Logf("SUCCESS: %s is reachable (status: %d)", endpoint.name, resp.StatusCode)
		})
	}
}
