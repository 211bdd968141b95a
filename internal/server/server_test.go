package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	logx "jobcaster/pkg/logx"
)

func testServer(t *testing.T, webhook http.Handler) *Server {
	t.Helper()
	if webhook == nil {
		webhook = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	return New(Config{WebhookPath: "/webhook/ats"}, webhook, nil, logx.Nop())
}

func TestRootBanner(t *testing.T) {
	t.Parallel()

	s := testServer(t, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode banner: %v", err)
	}
	if body["service"] != "jobcaster" {
		t.Fatalf("banner = %v", body)
	}
}

func TestHealthWithoutProber(t *testing.T) {
	t.Parallel()

	s := testServer(t, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebhookRouting(t *testing.T) {
	t.Parallel()

	var gotBody string
	s := testServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook/ats", strings.NewReader(`{"x":1}`))
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotBody != `{"x":1}` {
		t.Fatalf("handler saw body %q", gotBody)
	}

	// GET on the webhook path is not routed.
	rec = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/ats", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET webhook status = %d", rec.Code)
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	s := New(Config{}, http.NotFoundHandler(), nil, logx.Nop())
	if s.cfg.Address != ":8080" {
		t.Fatalf("Address = %q", s.cfg.Address)
	}
	if s.cfg.WebhookPath != "/webhook/ats" {
		t.Fatalf("WebhookPath = %q", s.cfg.WebhookPath)
	}
	if s.cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("ShutdownTimeout = %v", s.cfg.ShutdownTimeout)
	}
}
