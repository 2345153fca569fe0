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

type playerService interface {
	Roster(ctx context.Context) []application.RosterEntry
	Scores(ctx context.Context) []application.ScoredPlayer
	AddPlayer(ctx context.Context, name string) (domain.Player, error)
	ImportPlayers(ctx context.Context, raw string) (int, error)
	AdjustPlayerLevel(ctx context.Context, playerID string, level int) (domain.Player, error)
}

type PlayerHandler struct {
	service   playerService
	responder responder
	logger    *slog.Logger
}

func NewPlayerHandler(service playerService, logger *slog.Logger) *PlayerHandler {
	base := defaultLogger(logger)
	return &PlayerHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *PlayerHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PlayerHandler", operation, attrs...)
}

func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roster := h.service.Roster(r.Context())
	h.log(r.Context(), "List").InfoContext(r.Context(), "players listed", "count", len(roster))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, rosterResponse{
		Players: lo.Map(roster, func(entry application.RosterEntry, _ int) rosterEntryDTO { return toRosterEntryDTO(entry) }),
	})
}

func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode player request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create")

	player, err := h.service.AddPlayer(r.Context(), req.Name)
	if err != nil {
		logger.ErrorContext(r.Context(), "player creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("player_id", player.ID).InfoContext(r.Context(), "player created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, playerResponse{Player: toPlayerDTO(player)})
}

func (h *PlayerHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req importPlayersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Import", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode import request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Import")

	imported, err := h.service.ImportPlayers(r.Context(), req.Text)
	if err != nil {
		logger.ErrorContext(r.Context(), "player import failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "players imported", "count", imported)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, importPlayersResponse{Imported: imported})
}

func (h *PlayerHandler) AdjustLevel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	playerID, ok := pathID(r, "id")
	if !ok {
		h.log(r.Context(), "AdjustLevel", "error_kind", "bad_request").ErrorContext(r.Context(), "missing player id for level change")
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPlayerID)
		return
	}

	var req adjustLevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Level == nil {
		h.log(r.Context(), "AdjustLevel", "player_id", playerID, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode level request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AdjustLevel", "player_id", playerID)

	player, err := h.service.AdjustPlayerLevel(r.Context(), playerID, *req.Level)
	if err != nil {
		logger.ErrorContext(r.Context(), "level change failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "player level changed", "level", player.SkillLevel)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, playerResponse{Player: toPlayerDTO(player)})
}

func (h *PlayerHandler) Scores(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	scores := h.service.Scores(r.Context())
	h.log(r.Context(), "Scores").InfoContext(r.Context(), "scores listed", "count", len(scores))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, scoresResponse{
		Scores: lo.Map(scores, func(s application.ScoredPlayer, _ int) scoredPlayerDTO {
			return scoredPlayerDTO{Player: toPlayerDTO(s.Player), Score: s.Score}
		}),
	})
}

type createPlayerRequest struct {
	Name string `json:"name"`
}

type importPlayersRequest struct {
	Text string `json:"text"`
}

type adjustLevelRequest struct {
	Level *int `json:"level"`
}

type playerDTO struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	CourtID      string     `json:"courtId,omitempty"`
	GamesPlayed  int        `json:"gamesPlayed"`
	LastGameTime *time.Time `json:"lastGameTime,omitempty"`
	SkillLevel   int        `json:"skillLevel"`
	SkillName    string     `json:"skillName"`
}

type badgeDTO struct {
	Label   string `json:"label"`
	Class   string `json:"class"`
	Urgency string `json:"urgency,omitempty"`
}

type rosterEntryDTO struct {
	playerDTO
	Badges []badgeDTO `json:"badges"`
}

type scoredPlayerDTO struct {
	Player playerDTO `json:"player"`
	Score  int       `json:"score"`
}

type playerResponse struct {
	Player playerDTO `json:"player"`
}

type rosterResponse struct {
	Players []rosterEntryDTO `json:"players"`
}

type importPlayersResponse struct {
	Imported int `json:"imported"`
}

type scoresResponse struct {
	Scores []scoredPlayerDTO `json:"scores"`
}

func toPlayerDTO(p domain.Player) playerDTO {
	return playerDTO{
		ID:           p.ID,
		Name:         p.Name,
		Status:       p.Status.String(),
		CourtID:      p.CourtID,
		GamesPlayed:  p.GamesPlayed,
		LastGameTime: p.LastGameTime,
		SkillLevel:   p.SkillLevel,
		SkillName:    domain.SkillLevelName(p.SkillLevel),
	}
}

func toPlayerDTOs(players []domain.Player) []playerDTO {
	return lo.Map(players, func(p domain.Player, _ int) playerDTO { return toPlayerDTO(p) })
}

func toRosterEntryDTO(entry application.RosterEntry) rosterEntryDTO {
	return rosterEntryDTO{
		playerDTO: toPlayerDTO(entry.Player),
		Badges: lo.Map(entry.Badges, func(b application.Badge, _ int) badgeDTO {
			return badgeDTO{Label: b.Label, Class: b.Class, Urgency: b.Urgency}
		}),
	}
}
