package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"expensepool/internal/log"
)

func TestHandler_PropagatesRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	var logger *log.Logger
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		logger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/field/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "abc-123" {
		t.Errorf("request id in context = %q, want abc-123", seen)
	}
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("echoed header = %q", got)
	}
	if logger == nil || logger.Component() == "unknown" {
		t.Error("request logger not stored in context")
	}

	metrics := m.GetMetrics()
	if metrics.TotalRequests != 1 || metrics.ClientErrors != 1 || metrics.ServerErrors != 0 {
		t.Errorf("metrics = %+v", metrics)
	}
}

func TestHandler_MintsRequestID(t *testing.T) {
	m := NewMiddleware(nil)
	var seen string
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("minted id %q, header %q", seen, rec.Header().Get(HeaderRequestID))
	}
}

func TestHandler_RequestLoggerCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(log.NewText(&buf, slog.LevelInfo, log.ComponentFakeAPI))
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).Info("handling")
	}))

	req := httptest.NewRequest(http.MethodGet, "/field/", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if got := strings.Count(out, "request_id=req-42"); got != 2 {
		t.Fatalf("expected request id on both lines, got %d in %q", got, out)
	}
	if !strings.Contains(out, "component=fakeapi") {
		t.Fatalf("missing component: %q", out)
	}
}
