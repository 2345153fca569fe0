package application

import (
	"context"
	"fmt"
	"time"

	"github.com/example/court-rotation/internal/domain"
)

const (
	restingWindow  = 10 * time.Minute
	highWait       = 15 * time.Minute
	urgentWait     = 30 * time.Minute
	urgencyHigh    = "high"
	urgencyUrgent  = "urgent"
	badgePlaying   = "playing"
	badgeQueued    = "queued"
	badgeResting   = "resting"
	badgeWaiting   = "waiting"
	badgeAvailable = "available"
	badgeNoGames   = "nogames"
)

// Badge is a short roster label describing where a player stands.
type Badge struct {
	Label   string
	Class   string
	Urgency string
}

// RosterEntry is a player together with its badges.
type RosterEntry struct {
	Player domain.Player
	Badges []Badge
}

// Roster returns every player with status badges computed at the current
// time.
func (e *Engine) Roster(ctx context.Context) []RosterEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	out := make([]RosterEntry, 0, len(e.order))
	for _, id := range e.order {
		p := e.players[id]
		queuePos := 0
		if p.Status == domain.StatusQueued {
			if c, ok := e.courts[p.CourtID]; ok {
				queuePos = c.QueuePosition(p.ID)
			}
		}
		out = append(out, RosterEntry{Player: p.Clone(), Badges: PlayerBadges(*p, queuePos, now)})
	}
	return out
}

// PlayerBadges derives the roster badges for a player. queuePosition is the
// 1-based queue group the player sits in, or 0.
func PlayerBadges(p domain.Player, queuePosition int, now time.Time) []Badge {
	var badges []Badge
	if p.Status == domain.StatusPlaying {
		badges = append(badges, Badge{Label: "Playing", Class: badgePlaying})
	}
	if queuePosition > 0 {
		badges = append(badges, Badge{Label: fmt.Sprintf("Queued (#%d)", queuePosition), Class: badgeQueued})
	}
	if len(badges) > 0 || p.Attached() {
		if len(badges) == 0 {
			badges = append(badges, Badge{Label: "Assigned", Class: badgeWaiting})
		}
		return badges
	}

	if p.LastGameTime != nil {
		idle := now.Sub(*p.LastGameTime)
		switch {
		case idle < restingWindow:
			return []Badge{{Label: "Resting", Class: badgeResting}}
		case idle >= urgentWait:
			return []Badge{{Label: waitLabel(idle), Class: badgeWaiting, Urgency: urgencyUrgent}}
		case idle >= highWait:
			return []Badge{{Label: waitLabel(idle), Class: badgeWaiting, Urgency: urgencyHigh}}
		}
	}
	if p.GamesPlayed > 0 {
		return []Badge{{Label: "Available", Class: badgeAvailable}}
	}
	return []Badge{{Label: "No Games Yet", Class: badgeNoGames}}
}

func waitLabel(idle time.Duration) string {
	return fmt.Sprintf("Waiting %dm", int(idle.Minutes()))
}
