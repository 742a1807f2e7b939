package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "honorarios/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})})
	return NewMiddleware(func(*http.Request) string { return "10.0.0.1" }, logger)
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/clients", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("unexpected request id %q", seen)
	}
	if got := rr.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header %q, context %q", got, seen)
	}
	if !strings.Contains(buf.String(), "HTTP request completed") {
		t.Error("completion not logged")
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid", "abc-123_DEF", true},
		{"spaces", "abc 123", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			m := newTestMiddleware(&buf)
			var seen string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.incoming) != tt.keep {
				t.Errorf("incoming %q kept=%v, want %v", tt.incoming, seen == tt.incoming, tt.keep)
			}
		})
	}
}

func TestMiddlewareLogLevelAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/clients", nil))

	if !strings.Contains(buf.String(), "level=ERROR") {
		t.Errorf("5xx should log at ERROR:\n%s", buf.String())
	}
	got := m.GetMetrics()
	if got.TotalRequests != 1 || got.FailedRequests != 1 {
		t.Errorf("unexpected metrics %+v", got)
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("expected empty id, got %q", id)
	}
}
