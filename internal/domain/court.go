package domain

import (
	"fmt"
	"strings"
	"time"
)

// CourtCapacity is the number of active slots on a doubles court.
const CourtCapacity = 4

// CourtStatus is the lifecycle state of a court.
type CourtStatus int

const (
	// CourtEmpty has no assigned players.
	CourtEmpty CourtStatus = iota
	// CourtFilling holds between one and three assigned players.
	CourtFilling
	// CourtReady holds four players waiting to start.
	CourtReady
	// CourtInProgress is running a game.
	CourtInProgress
)

var courtStatusNames = map[CourtStatus]string{
	CourtEmpty:      "empty",
	CourtFilling:    "active",
	CourtReady:      "ready",
	CourtInProgress: "in_progress",
}

func (s CourtStatus) String() string {
	if name, ok := courtStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("CourtStatus(%d)", int(s))
}

// ParseCourtStatus converts a wire name into a CourtStatus.
func ParseCourtStatus(value string) (CourtStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for status, name := range courtStatusNames {
		if name == normalized {
			return status, nil
		}
	}
	return CourtEmpty, fmt.Errorf("unknown court status %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s CourtStatus) MarshalText() ([]byte, error) {
	if _, ok := courtStatusNames[s]; !ok {
		return nil, fmt.Errorf("invalid court status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *CourtStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseCourtStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Court is a physical play area. Players and Queue hold player identifiers;
// slots 0-1 form team A and slots 2-3 team B.
type Court struct {
	ID               string
	Status           CourtStatus
	Players          []string
	Queue            []string
	StartTime        *time.Time
	StartedFromQueue bool
}

// NewCourt returns an empty court.
func NewCourt(id string) Court {
	return Court{ID: id, Status: CourtEmpty}
}

// CanAddPlayer reports whether an active slot is free.
func (c Court) CanAddPlayer() bool {
	return len(c.Players) < CourtCapacity
}

// AddPlayer places a player into the next free slot.
func (c *Court) AddPlayer(playerID string) error {
	if !c.CanAddPlayer() {
		return &CapacityError{CourtID: c.ID, Capacity: CourtCapacity}
	}
	if c.Status == CourtInProgress {
		return &InvalidStateError{Entity: "court", ID: c.ID, Operation: "add player to", State: c.Status.String()}
	}
	c.Players = append(c.Players, playerID)
	c.refreshStatus()
	return nil
}

// Start moves a full court into play.
func (c *Court) Start(now time.Time) error {
	if c.Status == CourtInProgress {
		return &InvalidStateError{Entity: "court", ID: c.ID, Operation: "start", State: c.Status.String()}
	}
	if len(c.Players) != CourtCapacity {
		return &InvalidStateError{Entity: "court", ID: c.ID, Operation: "start", State: fmt.Sprintf("%s with %d players", c.Status, len(c.Players))}
	}
	started := now
	c.Status = CourtInProgress
	c.StartTime = &started
	return nil
}

// Complete ends the running game and seeds the next group of four from the
// queue. It returns the players who left the court and those drained from the
// queue into the active slots.
func (c *Court) Complete() (finished, drained []string, err error) {
	if c.Status != CourtInProgress {
		return nil, nil, &InvalidStateError{Entity: "court", ID: c.ID, Operation: "complete", State: c.Status.String()}
	}
	finished = c.Players
	c.Players = nil
	c.StartTime = nil
	c.StartedFromQueue = false

	if len(c.Queue) >= CourtCapacity {
		drained = append([]string(nil), c.Queue[:CourtCapacity]...)
		c.Queue = append([]string(nil), c.Queue[CourtCapacity:]...)
		c.Players = drained
		c.StartedFromQueue = true
	}
	c.refreshStatus()
	return finished, drained, nil
}

// Reset clears slots and queue and returns every player it released.
func (c *Court) Reset() []string {
	released := make([]string, 0, len(c.Players)+len(c.Queue))
	released = append(released, c.Players...)
	released = append(released, c.Queue...)
	c.Players = nil
	c.Queue = nil
	c.StartTime = nil
	c.StartedFromQueue = false
	c.Status = CourtEmpty
	return released
}

// Enqueue appends players to the queue.
func (c *Court) Enqueue(playerIDs ...string) {
	c.Queue = append(c.Queue, playerIDs...)
}

// QueueGroups returns the complete groups of four in queue order. A trailing
// partial group is omitted.
func (c Court) QueueGroups() [][]string {
	groups := make([][]string, 0, len(c.Queue)/CourtCapacity)
	for i := 0; i+CourtCapacity <= len(c.Queue); i += CourtCapacity {
		groups = append(groups, append([]string(nil), c.Queue[i:i+CourtCapacity]...))
	}
	return groups
}

// RemoveQueueGroup drops the chunk of up to four queued entries at index and
// returns the removed identifiers.
func (c *Court) RemoveQueueGroup(index int) ([]string, error) {
	start := index * CourtCapacity
	if index < 0 || start >= len(c.Queue) {
		return nil, &NotFoundError{Kind: "queue group", ID: fmt.Sprintf("%s#%d", c.ID, index)}
	}
	end := start + CourtCapacity
	if end > len(c.Queue) {
		end = len(c.Queue)
	}
	removed := append([]string(nil), c.Queue[start:end]...)
	c.Queue = append(append([]string(nil), c.Queue[:start]...), c.Queue[end:]...)
	return removed, nil
}

// QueuePosition returns the 1-based group position of a queued player, or 0.
func (c Court) QueuePosition(playerID string) int {
	for i, id := range c.Queue {
		if id == playerID {
			return i/CourtCapacity + 1
		}
	}
	return 0
}

// Holds reports whether the player is in an active slot or the queue.
func (c Court) Holds(playerID string) bool {
	for _, id := range c.Players {
		if id == playerID {
			return true
		}
	}
	return c.QueuePosition(playerID) > 0
}

// Teams splits the active slots into team A and team B.
func (c Court) Teams() (teamA, teamB []string) {
	if len(c.Players) >= 2 {
		teamA = append(teamA, c.Players[:2]...)
	} else {
		teamA = append(teamA, c.Players...)
	}
	if len(c.Players) > 2 {
		teamB = append(teamB, c.Players[2:]...)
	}
	return teamA, teamB
}

// ElapsedTime returns how long the current game has been running.
func (c Court) ElapsedTime(now time.Time) (time.Duration, bool) {
	if c.StartTime == nil {
		return 0, false
	}
	return now.Sub(*c.StartTime), true
}

// Clone returns a deep copy of the court.
func (c Court) Clone() Court {
	clone := c
	clone.Players = append([]string(nil), c.Players...)
	clone.Queue = append([]string(nil), c.Queue...)
	if c.StartTime != nil {
		t := *c.StartTime
		clone.StartTime = &t
	}
	return clone
}

// Normalize repairs the status so it agrees with the number of active
// players. It is used when accepting externally supplied state.
func (c *Court) Normalize() {
	if len(c.Players) > CourtCapacity {
		c.Players = c.Players[:CourtCapacity]
	}
	if c.Status == CourtInProgress && len(c.Players) == CourtCapacity {
		return
	}
	c.refreshStatus()
	if c.Status != CourtInProgress {
		c.StartTime = nil
	}
}

func (c *Court) refreshStatus() {
	switch n := len(c.Players); {
	case n == 0:
		c.Status = CourtEmpty
	case n < CourtCapacity:
		c.Status = CourtFilling
	default:
		c.Status = CourtReady
	}
}
