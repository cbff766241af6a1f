package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applogger "TradeDesk/pkg/logger"
)

func serve(s *Server, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestReadyzAllChecksPass(t *testing.T) {
	s := NewServer(applogger.NewNop(), nil,
		WithMetrics(false, ""),
		WithReadinessCheck("events", func(context.Context) error { return nil }),
	)
	rec := serve(s, "/readyz")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"ready"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestReadyzReportsFailingCheck(t *testing.T) {
	s := NewServer(applogger.NewNop(), nil,
		WithMetrics(false, ""),
		WithReadinessCheck("events", func(context.Context) error { return errors.New("no kafka broker reachable") }),
		WithReadinessCheck("redis", func(context.Context) error { return nil }),
	)
	rec := serve(s, "/readyz")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "no kafka broker reachable") || strings.Contains(body, `"redis"`) {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestHealthzIsStatic(t *testing.T) {
	s := NewServer(applogger.NewNop(), nil, WithMetrics(false, ""))
	if rec := serve(s, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
