package application

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/example/court-rotation/internal/domain"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: &domain.NotFoundError{Kind: "player", ID: "p1"}, want: "not_found"},
		{err: fmt.Errorf("assign: %w", &domain.CapacityError{CourtID: "court-1", Capacity: 4}), want: "capacity"},
		{err: &domain.InsufficientPlayersError{Required: 4, Available: 2}, want: "insufficient_players"},
		{err: &domain.InvalidStateError{Entity: "court", ID: "court-1", Operation: "start", State: "empty"}, want: "invalid_state"},
		{err: &domain.PersistenceError{Op: "save", Err: io.ErrUnexpectedEOF}, want: "persistence"},
		{err: ErrMagicQueueBusy, want: "busy"},
		{err: ErrNoAvailableCourt, want: "invalid_state"},
		{err: newValidationError("name", "required"), want: "validation"},
		{err: io.EOF, want: "unexpected"},
	}

	for _, tc := range tests {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
