package matchmaking

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/example/court-rotation/internal/domain"
)

// PairKey returns the order independent key for two player identifiers.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// PairCounts maps a PairKey to the number of games the pair spent as
// teammates.
type PairCounts map[string]int

// CountPartnerships increments the count for a recorded team. Teams that do
// not have exactly two members are ignored.
func CountPartnerships(team []string, counts PairCounts) {
	if len(team) != 2 {
		return
	}
	counts[PairKey(team[0], team[1])]++
}

// History is a read-only view over a game log.
type History struct {
	teammates PairCounts
	partners  map[string]map[string]struct{}
	lastGame  map[string]domain.GameRecord
}

// NewHistory derives teammate counts and recency from records ordered oldest
// first.
func NewHistory(records []domain.GameRecord) *History {
	h := &History{
		teammates: make(PairCounts),
		partners:  make(map[string]map[string]struct{}),
		lastGame:  make(map[string]domain.GameRecord),
	}
	for _, record := range records {
		for _, team := range [][]string{record.TeamA, record.TeamB} {
			CountPartnerships(team, h.teammates)
			if len(team) == 2 {
				h.addPartner(team[0], team[1])
				h.addPartner(team[1], team[0])
			}
		}
		for _, id := range append(append([]string(nil), record.TeamA...), record.TeamB...) {
			if previous, ok := h.lastGame[id]; !ok || !record.Timestamp.Before(previous.Timestamp) {
				h.lastGame[id] = record
			}
		}
	}
	return h
}

func (h *History) addPartner(player, partner string) {
	set, ok := h.partners[player]
	if !ok {
		set = make(map[string]struct{})
		h.partners[player] = set
	}
	set[partner] = struct{}{}
}

// Counts returns a copy of the teammate pair counts.
func (h *History) Counts() PairCounts {
	out := make(PairCounts, len(h.teammates))
	for key, count := range h.teammates {
		out[key] = count
	}
	return out
}

// TeammateCount returns how many recorded games a and b spent on one team.
func (h *History) TeammateCount(a, b string) int {
	if h == nil {
		return 0
	}
	return h.teammates[PairKey(a, b)]
}

// TeamFamiliarity returns count^exponent for a two player team. An exponent
// of 1 reproduces the linear variant.
func (h *History) TeamFamiliarity(team []string, exponent float64) float64 {
	if len(team) != 2 {
		return 0
	}
	count := h.TeammateCount(team[0], team[1])
	if count == 0 {
		return 0
	}
	return math.Pow(float64(count), exponent)
}

// CrossTeamFamiliarity sums the raw pair counts across the four cross pairs.
func (h *History) CrossTeamFamiliarity(teamA, teamB []string) float64 {
	total := 0
	for _, a := range teamA {
		for _, b := range teamB {
			total += h.TeammateCount(a, b)
		}
	}
	return float64(total)
}

// DistinctPartners returns how many different teammates a player has had.
func (h *History) DistinctPartners(playerID string) int {
	if h == nil {
		return 0
	}
	return len(h.partners[playerID])
}

// MostRecentGame returns the latest recorded game for the player.
func (h *History) MostRecentGame(playerID string) (domain.GameRecord, bool) {
	if h == nil {
		return domain.GameRecord{}, false
	}
	record, ok := h.lastGame[playerID]
	return record, ok
}

// PartneredLastGame reports whether a and b were teammates in the most recent
// game of either of them.
func (h *History) PartneredLastGame(a, b string) bool {
	for _, id := range []string{a, b} {
		if game, ok := h.MostRecentGame(id); ok && game.Partnered(a, b) {
			return true
		}
	}
	return false
}

// String renders the counts in key order. It is meant for logs.
func (c PairCounts) String() string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(c[key]))
	}
	return b.String()
}
