package persistence

import (
	"slices"
	"time"
)

// PlayerRecord is the stored form of a roster entry.
type PlayerRecord struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Status       string     `json:"status"`
	CourtID      string     `json:"courtId,omitempty"`
	GamesPlayed  int        `json:"gamesPlayed"`
	LastGameTime *time.Time `json:"lastGameTime,omitempty"`
	SkillLevel   int        `json:"skillLevel"`
}

// CourtRecord is the stored form of a court.
type CourtRecord struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	Players          []string   `json:"players"`
	Queue            []string   `json:"queue"`
	StartTime        *time.Time `json:"startTime,omitempty"`
	StartedFromQueue bool       `json:"startedFromQueue,omitempty"`
}

// GameRecord is the stored form of a completed game.
type GameRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	CourtID   string    `json:"courtId"`
	TeamA     []string  `json:"teamA"`
	TeamB     []string  `json:"teamB"`
}

// Snapshot is the complete persisted state. Courts are keyed by id.
type Snapshot struct {
	Players     []PlayerRecord         `json:"players"`
	Courts      map[string]CourtRecord `json:"courts"`
	GameHistory []GameRecord           `json:"gameHistory"`
}

// Empty reports whether the snapshot holds nothing worth restoring.
func (s Snapshot) Empty() bool {
	return len(s.Players) == 0 && len(s.Courts) == 0 && len(s.GameHistory) == 0
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	clone := Snapshot{
		Players:     make([]PlayerRecord, len(s.Players)),
		Courts:      make(map[string]CourtRecord, len(s.Courts)),
		GameHistory: make([]GameRecord, len(s.GameHistory)),
	}
	for i, p := range s.Players {
		clone.Players[i] = clonePlayer(p)
	}
	for id, c := range s.Courts {
		clone.Courts[id] = cloneCourt(c)
	}
	for i, g := range s.GameHistory {
		clone.GameHistory[i] = cloneGame(g)
	}
	return clone
}

func clonePlayer(p PlayerRecord) PlayerRecord {
	p.LastGameTime = cloneTime(p.LastGameTime)
	return p
}

func cloneCourt(c CourtRecord) CourtRecord {
	c.Players = slices.Clone(c.Players)
	c.Queue = slices.Clone(c.Queue)
	c.StartTime = cloneTime(c.StartTime)
	return c
}

func cloneGame(g GameRecord) GameRecord {
	g.TeamA = slices.Clone(g.TeamA)
	g.TeamB = slices.Clone(g.TeamB)
	return g
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
