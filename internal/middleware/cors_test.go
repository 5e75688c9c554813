package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/focus-chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != AllowedHeaders {
		t.Errorf("unexpected allow headers %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("wildcard origin must not allow credentials, got %q", got)
	}
}

func TestCORSWildcardWithoutOrigin(t *testing.T) {
	h := CORS([]string{"*"})(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/functions/v1/focus-chat", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected request to reach handler, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected *, got %q", got)
	}
}

func TestCORSExplicitOrigin(t *testing.T) {
	h := CORS([]string{"https://focus.example.com"})(okHandler())

	tests := []struct {
		origin     string
		wantOrigin string
		wantCreds  string
	}{
		{"https://focus.example.com", "https://focus.example.com", "true"},
		{"https://evil.example.com", "", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
		req.Header.Set("Origin", tt.origin)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
			t.Errorf("origin %s: expected allow-origin %q, got %q", tt.origin, tt.wantOrigin, got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
			t.Errorf("origin %s: expected credentials %q, got %q", tt.origin, tt.wantCreds, got)
		}
	}
}
