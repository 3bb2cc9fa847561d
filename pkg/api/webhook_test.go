package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v5"
)

func newTestServer() *Server {
	e := echo.New()
	s := &Server{echo: e}
	s.setupRoutes()
	return s
}

func doRequest(t *testing.T, s *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_RejectsUnknownSource(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodPost, "/webhooks/not-a-real-source/user-1", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown source, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestWebhookHandler_RejectsMissingUserID(t *testing.T) {
	s := newTestServer()
	// Trailing slash with empty segment never matches echo's :user_id
	// param route, so this exercises the router's own 404, confirming
	// the route requires a non-empty user_id segment.
	rec := doRequest(t, s, http.MethodPost, "/webhooks/pagerduty/", `{}`)
	if rec.Code == http.StatusAccepted {
		t.Fatalf("expected webhook without a user_id segment to be rejected, got %d", rec.Code)
	}
}

func TestWebhookHandler_RejectsOversizedPayload(t *testing.T) {
	s := newTestServer()
	big := strings.Repeat("a", maxWebhookPayloadBytes+10)
	rec := doRequest(t, s, http.MethodPost, "/webhooks/pagerduty/user-1", `{"x":"`+big+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized payload, got %d", rec.Code)
	}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer()
	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
