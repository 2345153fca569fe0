package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	t.Run("attaches a request scoped logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := slog.New(slog.NewJSONHandler(&buf, nil))

		var seen *slog.Logger
		handler := RequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = LoggerFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/courts", nil))

		if seen == nil {
			t.Fatal("expected logger in request context")
		}
		if id := rec.Header().Get(requestIDHeader); id != "1" {
			t.Fatalf("expected generated request id 1, got %q", id)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected started and completed entries, got %d: %s", len(lines), buf.String())
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
			t.Fatalf("failed to decode log entry: %v", err)
		}
		if entry["msg"] != "request completed" || entry["path"] != "/courts" || entry["request_id"] != "1" {
			t.Fatalf("unexpected log entry %v", entry)
		}
	})

	t.Run("reuses the client request id", func(t *testing.T) {
		handler := RequestLogger(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/players", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if id := rec.Header().Get(requestIDHeader); id != "abc-123" {
			t.Fatalf("expected request id abc-123, got %q", id)
		}
	})
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/courts/court-1/start", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.ErrorCode != "INTERNAL" {
		t.Fatalf("expected INTERNAL error code, got %+v", body)
	}
}
