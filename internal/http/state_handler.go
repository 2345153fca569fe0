package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/example/court-rotation/internal/application"
	"github.com/example/court-rotation/internal/domain"
)

type stateService interface {
	History(ctx context.Context) []domain.GameRecord
	Snapshot(ctx context.Context) application.State
	Reset(ctx context.Context) error
}

type StateHandler struct {
	service   stateService
	responder responder
	logger    *slog.Logger
}

func NewStateHandler(service stateService, logger *slog.Logger) *StateHandler {
	base := defaultLogger(logger)
	return &StateHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *StateHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StateHandler", operation, attrs...)
}

func (h *StateHandler) History(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	games := h.service.History(r.Context())
	h.log(r.Context(), "History").InfoContext(r.Context(), "history listed", "count", len(games))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, historyResponse{
		Games: lo.Map(games, func(g domain.GameRecord, _ int) gameDTO { return toGameDTO(g) }),
	})
}

// Export writes the state in its stored JSON shape.
func (h *StateHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	snapshot := application.SnapshotFromState(h.service.Snapshot(r.Context()))
	h.log(r.Context(), "Export").InfoContext(r.Context(), "state exported",
		"players", len(snapshot.Players),
		"games", len(snapshot.GameHistory),
	)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, snapshot)
}

func (h *StateHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "Reset")

	if err := h.service.Reset(r.Context()); err != nil {
		logger.ErrorContext(r.Context(), "reset failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "state reset")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type historyResponse struct {
	Games []gameDTO `json:"games"`
}
