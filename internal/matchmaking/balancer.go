package matchmaking

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/example/court-rotation/internal/domain"
)

// partitions lists the three ways to split four slots into two pairs.
var partitions = [3][2][2]int{
	{{0, 1}, {2, 3}},
	{{0, 2}, {1, 3}},
	{{0, 3}, {1, 2}},
}

// varietyWeights are the percentages used to pick among the ranked
// partitions in variety mode.
var varietyWeights = [3]int{70, 20, 10}

// Penalty breaks down the cost of a partition.
type Penalty struct {
	Familiarity  float64
	RecentRepeat float64
	SkillBalance float64
}

// Total returns the sum of all components.
func (p Penalty) Total() float64 {
	return p.Familiarity + p.RecentRepeat + p.SkillBalance
}

// Match is a group of four split into two teams.
type Match struct {
	TeamA   []domain.Player
	TeamB   []domain.Player
	Penalty Penalty
}

// PlayerIDs returns the court slot order: team A then team B.
func (m Match) PlayerIDs() []string {
	ids := make([]string, 0, len(m.TeamA)+len(m.TeamB))
	for _, p := range m.TeamA {
		ids = append(ids, p.ID)
	}
	for _, p := range m.TeamB {
		ids = append(ids, p.ID)
	}
	return ids
}

// Balancer splits four players into the least familiar, most even teams.
type Balancer struct {
	Weights Weights
	History *History

	// Variety, when set, picks among the three ranked partitions instead of
	// always taking the minimum.
	Variety *rand.Rand
}

// NewBalancer returns a deterministic balancer.
func NewBalancer(weights Weights, history *History) *Balancer {
	return &Balancer{Weights: weights, History: history}
}

// Partitions scores all three splits in enumeration order. Input of any size
// other than four yields the single forced split of the first four slots.
func (b *Balancer) Partitions(players []domain.Player) []Match {
	if len(players) != GroupSize {
		return []Match{forcedSplit(players)}
	}
	out := make([]Match, 0, len(partitions))
	for _, split := range partitions {
		teamA := []domain.Player{players[split[0][0]], players[split[0][1]]}
		teamB := []domain.Player{players[split[1][0]], players[split[1][1]]}
		out = append(out, Match{TeamA: teamA, TeamB: teamB, Penalty: b.penalty(teamA, teamB)})
	}
	return out
}

// Balance returns the partition with the lowest total penalty; the first
// enumerated wins ties. In variety mode the pick is random among the ranked
// partitions.
func (b *Balancer) Balance(players []domain.Player) Match {
	candidates := b.Partitions(players)
	if len(candidates) == 1 {
		return candidates[0]
	}
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(x, y Match) int {
		switch tx, ty := x.Penalty.Total(), y.Penalty.Total(); {
		case tx < ty:
			return -1
		case tx > ty:
			return 1
		default:
			return 0
		}
	})
	if b.Variety == nil {
		return ranked[0]
	}
	roll := b.Variety.IntN(100)
	for i, weight := range varietyWeights {
		if roll < weight {
			return ranked[i]
		}
		roll -= weight
	}
	return ranked[0]
}

func (b *Balancer) penalty(teamA, teamB []domain.Player) Penalty {
	w := b.Weights
	idsA, idsB := ids(teamA), ids(teamB)

	var p Penalty
	p.Familiarity = w.TeammateWeight*(b.History.TeamFamiliarity(idsA, w.FamiliarityExponent)+
		b.History.TeamFamiliarity(idsB, w.FamiliarityExponent)) +
		w.OpponentWeight*b.History.CrossTeamFamiliarity(idsA, idsB)
	for _, team := range [][]string{idsA, idsB} {
		if b.History.PartneredLastGame(team[0], team[1]) {
			p.RecentRepeat += w.RecentPartnerPenalty
		}
	}
	p.SkillBalance = math.Abs(averageSkill(teamA)-averageSkill(teamB)) * w.SkillBalancePenalty
	return p
}

func forcedSplit(players []domain.Player) Match {
	var m Match
	for i, p := range players {
		switch {
		case i < 2:
			m.TeamA = append(m.TeamA, p)
		case i < GroupSize:
			m.TeamB = append(m.TeamB, p)
		}
	}
	return m
}

func ids(players []domain.Player) []string {
	out := make([]string, len(players))
	for i, p := range players {
		out[i] = p.ID
	}
	return out
}

func averageSkill(players []domain.Player) float64 {
	if len(players) == 0 {
		return 0
	}
	total := 0
	for _, p := range players {
		total += p.SkillLevel
	}
	return float64(total) / float64(len(players))
}
