package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/example/court-rotation/internal/application"
	"github.com/example/court-rotation/internal/domain"
)

type courtService interface {
	Courts(ctx context.Context) []domain.Court
	Court(ctx context.Context, id string) (domain.Court, error)
	AssignPlayerToCourt(ctx context.Context, playerID, courtID string) (domain.Court, error)
	StartGame(ctx context.Context, courtID string) (domain.Court, error)
	CompleteGame(ctx context.Context, courtID string) (domain.GameRecord, error)
	ResetCourt(ctx context.Context, courtID string) (domain.Court, error)
	AddToQueue(ctx context.Context, courtID string, playerIDs []string) (application.QueueResult, error)
	RemoveQueueGroup(ctx context.Context, courtID string, index int) (domain.Court, error)
	HandleMagicQueue(ctx context.Context, courtID string) (application.MagicQueueResult, error)
	AutoFill(ctx context.Context) (application.MagicQueueResult, error)
}

type CourtHandler struct {
	service   courtService
	responder responder
	logger    *slog.Logger
	now       func() time.Time
}

func NewCourtHandler(service courtService, now func() time.Time, logger *slog.Logger) *CourtHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &CourtHandler{service: service, responder: newResponder(base), logger: base, now: now}
}

func (h *CourtHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CourtHandler", operation, attrs...)
}

// ready reports whether the handler can serve and resolves the court id when
// the route carries one.
func (h *CourtHandler) ready(w http.ResponseWriter, r *http.Request, operation string, needID bool) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	if !needID {
		return "", true
	}
	courtID, ok := pathID(r, "id")
	if !ok {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "missing court id")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidCourtID)
		return "", false
	}
	return courtID, true
}

func (h *CourtHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ready(w, r, "List", false); !ok {
		return
	}

	courts := h.service.Courts(r.Context())
	now := h.now()
	h.log(r.Context(), "List").InfoContext(r.Context(), "courts listed", "count", len(courts))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtsResponse{
		Courts: lo.Map(courts, func(c domain.Court, _ int) courtDTO { return toCourtDTO(c, now) }),
	})
}

func (h *CourtHandler) Get(w http.ResponseWriter, r *http.Request) {
	courtID, ok := h.ready(w, r, "Get", true)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Get", "court_id", courtID)

	court, err := h.service.Court(r.Context(), courtID)
	if err != nil {
		logger.ErrorContext(r.Context(), "court lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtResponse{Court: toCourtDTO(court, h.now())})
}

func (h *CourtHandler) AssignPlayer(w http.ResponseWriter, r *http.Request) {
	courtID, ok := h.ready(w, r, "AssignPlayer", true)
	if !ok {
		return
	}

	var req assignPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AssignPlayer", "court_id", courtID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode assignment", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AssignPlayer", "court_id", courtID, "player_id", req.PlayerID)

	court, err := h.service.AssignPlayerToCourt(r.Context(), req.PlayerID, courtID)
	if err != nil {
		logger.ErrorContext(r.Context(), "player assignment failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "player assigned")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtResponse{Court: toCourtDTO(court, h.now())})
}

func (h *CourtHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.courtAction(w, r, "Start", "game started", courtService.StartGame)
}

func (h *CourtHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.courtAction(w, r, "Reset", "court reset", courtService.ResetCourt)
}

func (h *CourtHandler) courtAction(w http.ResponseWriter, r *http.Request, operation, done string, action func(courtService, context.Context, string) (domain.Court, error)) {
	courtID, ok := h.ready(w, r, operation, true)
	if !ok {
		return
	}

	logger := h.log(r.Context(), operation, "court_id", courtID)

	court, err := action(h.service, r.Context(), courtID)
	if err != nil {
		logger.ErrorContext(r.Context(), "court action failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), done)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtResponse{Court: toCourtDTO(court, h.now())})
}

func (h *CourtHandler) Complete(w http.ResponseWriter, r *http.Request) {
	courtID, ok := h.ready(w, r, "Complete", true)
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Complete", "court_id", courtID)

	record, err := h.service.CompleteGame(r.Context(), courtID)
	if err != nil {
		logger.ErrorContext(r.Context(), "game completion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := completeResponse{Game: toGameDTO(record)}
	if court, lookupErr := h.service.Court(r.Context(), courtID); lookupErr == nil {
		dto := toCourtDTO(court, h.now())
		resp.Court = &dto
	}

	logger.With("game_id", record.ID).InfoContext(r.Context(), "game completed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

func (h *CourtHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	courtID, ok := h.ready(w, r, "Enqueue", true)
	if !ok {
		return
	}

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Enqueue", "court_id", courtID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode queue request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Enqueue", "court_id", courtID, "requested", len(req.PlayerIDs))

	result, err := h.service.AddToQueue(r.Context(), courtID, req.PlayerIDs)
	if err != nil {
		logger.ErrorContext(r.Context(), "queueing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "players queued", "added", len(result.Added), "skipped", len(result.Skipped))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, queueResponse{
		Court: toCourtDTO(result.Court, h.now()),
		Added: result.Added,
		Skipped: lo.Map(result.Skipped, func(s application.SkippedPlayer, _ int) skippedDTO {
			return skippedDTO{PlayerID: s.PlayerID, ErrorKind: application.ErrorKind(s.Reason), Message: s.Reason.Error()}
		}),
	})
}

func (h *CourtHandler) RemoveQueueGroup(w http.ResponseWriter, r *http.Request) {
	courtID, ok := h.ready(w, r, "RemoveQueueGroup", true)
	if !ok {
		return
	}

	index, ok := pathIndex(r, "index")
	if !ok {
		h.log(r.Context(), "RemoveQueueGroup", "court_id", courtID, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid queue index")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidIndex)
		return
	}

	logger := h.log(r.Context(), "RemoveQueueGroup", "court_id", courtID, "index", index)

	court, err := h.service.RemoveQueueGroup(r.Context(), courtID, index)
	if err != nil {
		logger.ErrorContext(r.Context(), "queue group removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "queue group removed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, courtResponse{Court: toCourtDTO(court, h.now())})
}

func (h *CourtHandler) MagicQueue(w http.ResponseWriter, r *http.Request) {
	courtID, ok := h.ready(w, r, "MagicQueue", true)
	if !ok {
		return
	}
	h.magic(w, r, h.log(r.Context(), "MagicQueue", "court_id", courtID), func(ctx context.Context) (application.MagicQueueResult, error) {
		return h.service.HandleMagicQueue(ctx, courtID)
	})
}

func (h *CourtHandler) AutoFill(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.ready(w, r, "AutoFill", false); !ok {
		return
	}
	h.magic(w, r, h.log(r.Context(), "AutoFill"), h.service.AutoFill)
}

func (h *CourtHandler) magic(w http.ResponseWriter, r *http.Request, logger *slog.Logger, run func(context.Context) (application.MagicQueueResult, error)) {
	result, err := run(r.Context())
	if err != nil {
		logger.ErrorContext(r.Context(), "magic queue failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "magic queue applied", "action", string(result.Action), "court_id", result.Court.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, magicQueueResponse{
		Court:  toCourtDTO(result.Court, h.now()),
		Action: string(result.Action),
		Match:  result.Match,
	})
}

type assignPlayerRequest struct {
	PlayerID string `json:"playerId"`
}

type enqueueRequest struct {
	PlayerIDs []string `json:"playerIds"`
}

type courtDTO struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Players          []string   `json:"players"`
	Queue            []string   `json:"queue"`
	QueueGroups      [][]string `json:"queueGroups"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	StartedFromQueue bool       `json:"startedFromQueue"`
	ElapsedSeconds   *int64     `json:"elapsedSeconds,omitempty"`
}

type gameDTO struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	CourtID   string    `json:"courtId"`
	TeamA     []string  `json:"teamA"`
	TeamB     []string  `json:"teamB"`
}

type skippedDTO struct {
	PlayerID  string `json:"playerId"`
	ErrorKind string `json:"errorKind"`
	Message   string `json:"message"`
}

type courtResponse struct {
	Court courtDTO `json:"court"`
}

type courtsResponse struct {
	Courts []courtDTO `json:"courts"`
}

type completeResponse struct {
	Game  gameDTO   `json:"game"`
	Court *courtDTO `json:"court,omitempty"`
}

type queueResponse struct {
	Court   courtDTO     `json:"court"`
	Added   []string     `json:"added"`
	Skipped []skippedDTO `json:"skipped"`
}

type magicQueueResponse struct {
	Court  courtDTO `json:"court"`
	Action string   `json:"action"`
	Match  []string `json:"match,omitempty"`
}

func toCourtDTO(c domain.Court, now time.Time) courtDTO {
	dto := courtDTO{
		ID:               c.ID,
		Status:           c.Status.String(),
		Players:          lo.Ternary(c.Players == nil, []string{}, c.Players),
		Queue:            lo.Ternary(c.Queue == nil, []string{}, c.Queue),
		QueueGroups:      lo.Ternary(len(c.Queue) == 0, [][]string{}, c.QueueGroups()),
		StartTime:        c.StartTime,
		StartedFromQueue: c.StartedFromQueue,
	}
	if elapsed, ok := c.ElapsedTime(now); ok {
		seconds := int64(elapsed / time.Second)
		dto.ElapsedSeconds = &seconds
	}
	return dto
}

func toGameDTO(g domain.GameRecord) gameDTO {
	return gameDTO{ID: g.ID, Timestamp: g.Timestamp, CourtID: g.CourtID, TeamA: g.TeamA, TeamB: g.TeamB}
}
