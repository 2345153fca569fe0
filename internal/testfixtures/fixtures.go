package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/persistence"
)

var (
	playerCounter uint64
	gameCounter   uint64
)

var referenceTime = time.Date(2024, time.January, 2, 18, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Player fixtures -----------------------------

// PlayerOption configures a generated player.
type PlayerOption func(*domain.Player)

// NewPlayer returns a deterministic unattached player that has not played.
func NewPlayer(opts ...PlayerOption) domain.Player {
	idx := atomic.AddUint64(&playerCounter, 1)
	player := domain.NewPlayer(fmt.Sprintf("player-%03d", idx), fmt.Sprintf("Player %03d", idx))
	for _, opt := range opts {
		opt(&player)
	}
	return player
}

// NewRoster returns n players sharing the same options.
func NewRoster(n int, opts ...PlayerOption) []domain.Player {
	players := make([]domain.Player, 0, n)
	for i := 0; i < n; i++ {
		players = append(players, NewPlayer(opts...))
	}
	return players
}

// WithPlayerID overrides the generated identifier.
func WithPlayerID(id string) PlayerOption {
	return func(p *domain.Player) {
		p.ID = id
	}
}

// WithName overrides the generated name.
func WithName(name string) PlayerOption {
	return func(p *domain.Player) {
		p.Name = name
	}
}

// WithSkill sets the skill level, clamped to the valid range.
func WithSkill(level int) PlayerOption {
	return func(p *domain.Player) {
		p.SkillLevel = domain.ClampSkillLevel(level)
	}
}

// WithGames marks the player as resting after games, the last of which ended
// at last.
func WithGames(games int, last time.Time) PlayerOption {
	return func(p *domain.Player) {
		p.GamesPlayed = games
		ended := last
		p.LastGameTime = &ended
		if p.CourtID == "" {
			p.Status = domain.StatusResting
		}
	}
}

// OnCourt attaches the player to courtID with the given status.
func OnCourt(courtID string, status domain.PlayerStatus) PlayerOption {
	return func(p *domain.Player) {
		p.CourtID = courtID
		p.Status = status
	}
}

// PlayerIDs returns the identifiers of players in order.
func PlayerIDs(players []domain.Player) []string {
	ids := make([]string, len(players))
	for i, p := range players {
		ids[i] = p.ID
	}
	return ids
}

// ----------------------------- Court fixtures ------------------------------

// NewReadyCourt returns a court holding players that has not started.
func NewReadyCourt(id string, players []domain.Player) domain.Court {
	court := domain.NewCourt(id)
	for _, p := range players {
		_ = court.AddPlayer(p.ID)
	}
	return court
}

// NewCourtInProgress returns a full court that started at start.
func NewCourtInProgress(id string, players []domain.Player, start time.Time) domain.Court {
	court := NewReadyCourt(id, players)
	_ = court.Start(start)
	return court
}

// ------------------------------ Game fixtures ------------------------------

// NewGame returns a deterministic record of teamA against teamB.
func NewGame(courtID string, at time.Time, teamA, teamB []string) domain.GameRecord {
	idx := atomic.AddUint64(&gameCounter, 1)
	return domain.GameRecord{
		ID:        fmt.Sprintf("game-%03d", idx),
		Timestamp: at,
		CourtID:   courtID,
		TeamA:     append([]string(nil), teamA...),
		TeamB:     append([]string(nil), teamB...),
	}
}

// ---------------------------- Snapshot fixtures ----------------------------

// NewSnapshot returns a stored snapshot with one running court, one waiting
// player and one completed game.
func NewSnapshot() persistence.Snapshot {
	start := referenceTime.Add(-10 * time.Minute)
	last := referenceTime.Add(-30 * time.Minute)
	return persistence.Snapshot{
		Players: []persistence.PlayerRecord{
			{ID: "p1", Name: "Ana", Status: "playing", CourtID: "court-1", GamesPlayed: 2, LastGameTime: &start, SkillLevel: 6},
			{ID: "p2", Name: "Ben", Status: "playing", CourtID: "court-1", GamesPlayed: 1, LastGameTime: &start, SkillLevel: 4},
			{ID: "p3", Name: "Cara", Status: "playing", CourtID: "court-1", GamesPlayed: 1, LastGameTime: &start, SkillLevel: 5},
			{ID: "p4", Name: "Dan", Status: "playing", CourtID: "court-1", GamesPlayed: 2, LastGameTime: &start, SkillLevel: 3},
			{ID: "p5", Name: "Eve", Status: "resting", GamesPlayed: 1, LastGameTime: &last, SkillLevel: 1},
		},
		Courts: map[string]persistence.CourtRecord{
			"court-1": {ID: "court-1", Status: "in_progress", Players: []string{"p1", "p2", "p3", "p4"}, Queue: []string{}, StartTime: &start},
			"court-2": {ID: "court-2", Status: "empty", Players: []string{}, Queue: []string{}},
		},
		GameHistory: []persistence.GameRecord{
			{ID: "g1", Timestamp: last, CourtID: "court-2", TeamA: []string{"p1", "p5"}, TeamB: []string{"p4", "p6"}},
		},
	}
}
