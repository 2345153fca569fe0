package domain

import "time"

// DefaultHistoryLimit is the number of game records retained by a GameLog.
const DefaultHistoryLimit = 100

// GameRecord is an immutable entry describing a completed game.
type GameRecord struct {
	ID        string
	Timestamp time.Time
	CourtID   string
	TeamA     []string
	TeamB     []string
}

// Includes reports whether the player took part in the game.
func (g GameRecord) Includes(playerID string) bool {
	for _, id := range g.TeamA {
		if id == playerID {
			return true
		}
	}
	for _, id := range g.TeamB {
		if id == playerID {
			return true
		}
	}
	return false
}

// Partnered reports whether both players were on the same team.
func (g GameRecord) Partnered(a, b string) bool {
	return (contains(g.TeamA, a) && contains(g.TeamA, b)) ||
		(contains(g.TeamB, a) && contains(g.TeamB, b))
}

// Clone returns a deep copy of the record.
func (g GameRecord) Clone() GameRecord {
	clone := g
	clone.TeamA = append([]string(nil), g.TeamA...)
	clone.TeamB = append([]string(nil), g.TeamB...)
	return clone
}

// GameLog is a bounded, append-only history of games in completion order.
type GameLog struct {
	limit   int
	records []GameRecord
}

// NewGameLog returns a log that keeps at most limit records. A non-positive
// limit selects DefaultHistoryLimit.
func NewGameLog(limit int, records ...GameRecord) *GameLog {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	log := &GameLog{limit: limit}
	for _, record := range records {
		log.Append(record)
	}
	return log
}

// Append adds a record and evicts the oldest entries beyond the limit.
func (l *GameLog) Append(record GameRecord) {
	l.records = append(l.records, record.Clone())
	if overflow := len(l.records) - l.limit; overflow > 0 {
		l.records = append([]GameRecord(nil), l.records[overflow:]...)
	}
}

// Records returns a copy of the retained history, oldest first.
func (l *GameLog) Records() []GameRecord {
	if l == nil {
		return nil
	}
	out := make([]GameRecord, len(l.records))
	for i, record := range l.records {
		out[i] = record.Clone()
	}
	return out
}

// Len returns the number of retained records.
func (l *GameLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.records)
}

// Limit returns the configured capacity.
func (l *GameLog) Limit() int {
	return l.limit
}

// Clear drops every record.
func (l *GameLog) Clear() {
	l.records = nil
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
