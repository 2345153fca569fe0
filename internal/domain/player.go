package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MinSkillLevel is the lowest assignable skill level.
	MinSkillLevel = 1
	// MaxSkillLevel is the highest assignable skill level.
	MaxSkillLevel = 10
	// DefaultSkillLevel is assigned to newly created players.
	DefaultSkillLevel = 1
)

// PlayerStatus is the single lifecycle state a player is in.
type PlayerStatus int

const (
	// StatusNoGames marks a player who has not played yet.
	StatusNoGames PlayerStatus = iota
	// StatusWaiting marks a player assigned to a court that has not started.
	StatusWaiting
	// StatusPlaying marks a player in an in-progress game.
	StatusPlaying
	// StatusQueued marks a player waiting in a court queue.
	StatusQueued
	// StatusResting marks a player who finished a game and is back in the pool.
	StatusResting
)

var playerStatusNames = map[PlayerStatus]string{
	StatusNoGames: "nogames",
	StatusWaiting: "waiting",
	StatusPlaying: "playing",
	StatusQueued:  "queued",
	StatusResting: "resting",
}

// PlayerStatuses lists every status in declaration order.
func PlayerStatuses() []PlayerStatus {
	return []PlayerStatus{StatusNoGames, StatusWaiting, StatusPlaying, StatusQueued, StatusResting}
}

// String returns the wire name of the status.
func (s PlayerStatus) String() string {
	if name, ok := playerStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("PlayerStatus(%d)", int(s))
}

// ParsePlayerStatus converts a wire name into a PlayerStatus.
func ParsePlayerStatus(value string) (PlayerStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for status, name := range playerStatusNames {
		if name == normalized {
			return status, nil
		}
	}
	return StatusNoGames, fmt.Errorf("unknown player status %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s PlayerStatus) MarshalText() ([]byte, error) {
	if _, ok := playerStatusNames[s]; !ok {
		return nil, fmt.Errorf("invalid player status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *PlayerStatus) UnmarshalText(text []byte) error {
	parsed, err := ParsePlayerStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Player is a member of the rotation roster.
type Player struct {
	ID           string
	Name         string
	Status       PlayerStatus
	CourtID      string
	GamesPlayed  int
	LastGameTime *time.Time
	SkillLevel   int
}

// NewPlayer returns a player with default status and skill.
func NewPlayer(id, name string) Player {
	return Player{
		ID:         id,
		Name:       name,
		Status:     StatusNoGames,
		SkillLevel: DefaultSkillLevel,
	}
}

// Attached reports whether the player is referenced by a court.
func (p Player) Attached() bool {
	return p.CourtID != ""
}

// IdleStatus is the status a player returns to when released from a court
// without finishing a game.
func (p Player) IdleStatus() PlayerStatus {
	if p.GamesPlayed == 0 && p.LastGameTime == nil {
		return StatusNoGames
	}
	return StatusResting
}

// Detach clears the court reference and restores the idle status.
func (p *Player) Detach() {
	p.CourtID = ""
	p.Status = p.IdleStatus()
}

// MinutesSinceLastGame returns the fractional minutes since the last game, and
// false when the player has never played.
func (p Player) MinutesSinceLastGame(now time.Time) (float64, bool) {
	if p.LastGameTime == nil {
		return 0, false
	}
	return now.Sub(*p.LastGameTime).Minutes(), true
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	clone := p
	if p.LastGameTime != nil {
		t := *p.LastGameTime
		clone.LastGameTime = &t
	}
	return clone
}

// ClampSkillLevel bounds a level to [MinSkillLevel, MaxSkillLevel].
func ClampSkillLevel(level int) int {
	if level < MinSkillLevel {
		return MinSkillLevel
	}
	if level > MaxSkillLevel {
		return MaxSkillLevel
	}
	return level
}

var skillLevelNames = [...]string{
	"Novice",
	"Rookie",
	"Beginner",
	"Amateur",
	"Intermediate",
	"Advanced",
	"Expert",
	"Elite",
	"Master",
	"Champion",
}

// SkillLevelName returns the display label for a level.
func SkillLevelName(level int) string {
	if level < MinSkillLevel || level > MaxSkillLevel {
		return "Unknown"
	}
	return skillLevelNames[level-1]
}
