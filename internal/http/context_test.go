package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandlerLoggerPrefersRequestLogger(t *testing.T) {
	var requestBuf, fallbackBuf bytes.Buffer
	requestLogger := slog.New(slog.NewJSONHandler(&requestBuf, nil))
	fallback := slog.New(slog.NewJSONHandler(&fallbackBuf, nil))

	ctx := ContextWithLogger(context.Background(), requestLogger)
	handlerLogger(ctx, fallback, "CourtHandler", "Start", "court_id", "court-1").Info("game started")

	if fallbackBuf.Len() != 0 {
		t.Fatalf("expected fallback logger to stay unused, got %s", fallbackBuf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(requestBuf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry: %v", err)
	}
	for key, want := range map[string]string{"handler": "CourtHandler", "operation": "Start", "court_id": "court-1"} {
		if entry[key] != want {
			t.Fatalf("expected %s=%q, got %v", key, want, entry[key])
		}
	}

	handlerLogger(context.Background(), fallback, "PlayerHandler", "").Info("listed")
	entry = map[string]any{}
	if err := json.Unmarshal(fallbackBuf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode fallback entry: %v", err)
	}
	if _, ok := entry["operation"]; ok || entry["handler"] != "PlayerHandler" {
		t.Fatalf("unexpected fallback entry %v", entry)
	}
}
