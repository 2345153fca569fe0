package matchmaking

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/example/court-rotation/internal/domain"
)

const (
	tightGroupBonus   = 1000
	perfectPowerBonus = 500
	powerDiffWeight   = 100
	minAcceptableGap  = 2
)

// Tiers holds the lower bounds of the advanced and intermediate bands of a
// pool. Anything below Intermediate is beginner.
type Tiers struct {
	Advanced     float64
	Intermediate float64
}

// SkillTiers splits the observed skill range of players into thirds.
func SkillTiers(players []domain.Player) Tiers {
	if len(players) == 0 {
		return Tiers{}
	}
	lowest, highest := skillBounds(players)
	third := float64(highest-lowest) / 3
	return Tiers{
		Advanced:     float64(lowest) + 2*third,
		Intermediate: float64(lowest) + third,
	}
}

// FindBalancedGroup picks four players of similar skill from candidates and
// returns them already split. It reports false when no group qualifies.
func FindBalancedGroup(candidates []domain.Player) (Match, bool) {
	if len(candidates) < GroupSize {
		return Match{}, false
	}
	sorted := bySkillDesc(candidates)
	tiers := SkillTiers(sorted)

	advanced := lo.Filter(sorted, func(p domain.Player, _ int) bool {
		return float64(p.SkillLevel) >= tiers.Advanced
	})
	intermediate := lo.Filter(sorted, func(p domain.Player, _ int) bool {
		level := float64(p.SkillLevel)
		return level >= tiers.Intermediate && level < tiers.Advanced
	})
	beginner := lo.Filter(sorted, func(p domain.Player, _ int) bool {
		return float64(p.SkillLevel) < tiers.Intermediate
	})

	var groups [][]domain.Player
	switch {
	case len(advanced) >= GroupSize:
		groups = Combinations(advanced, GroupSize)
	case len(intermediate) >= GroupSize:
		groups = Combinations(intermediate, GroupSize)
	case len(beginner) >= GroupSize:
		groups = Combinations(beginner, GroupSize)
	default:
		lowest, highest := skillBounds(sorted)
		limit := float64(highest-lowest) / 2
		for i := 0; i+GroupSize <= len(sorted); i++ {
			window := sorted[i : i+GroupSize]
			low, high := skillBounds(window)
			if float64(high-low) <= limit {
				groups = append(groups, slices.Clone(window))
			}
		}
	}

	best := Match{}
	bestScore := math.Inf(1)
	for _, group := range groups {
		match, score := evaluateGroup(group, tiers)
		if score < bestScore {
			best, bestScore = match, score
		}
	}
	if math.IsInf(bestScore, 1) {
		return Match{}, false
	}
	return best, true
}

// Combinations returns every size-element subset of items in lexicographic
// index order.
func Combinations[T any](items []T, size int) [][]T {
	if size <= 0 || size > len(items) {
		return nil
	}
	var out [][]T
	combo := make([]T, 0, size)
	var walk func(start int)
	walk = func(start int) {
		if len(combo) == size {
			out = append(out, slices.Clone(combo))
			return
		}
		for i := start; i < len(items); i++ {
			combo = append(combo, items[i])
			walk(i + 1)
			combo = combo[:len(combo)-1]
		}
	}
	walk(0)
	return out
}

// evaluateGroup tries the snake and adjacent splits of a group and scores
// the better one. Lower is better; +Inf disqualifies the group.
func evaluateGroup(group []domain.Player, tiers Tiers) (Match, float64) {
	sorted := bySkillDesc(group)
	splits := []Match{
		{TeamA: []domain.Player{sorted[0], sorted[3]}, TeamB: []domain.Player{sorted[1], sorted[2]}},
		{TeamA: []domain.Player{sorted[0], sorted[1]}, TeamB: []domain.Player{sorted[2], sorted[3]}},
	}

	var best Match
	bestScore := math.Inf(1)
	for _, split := range splits {
		if score := evaluateSplit(split); score < bestScore {
			best, bestScore = split, score
		}
	}
	if math.IsInf(bestScore, 1) {
		return Match{}, bestScore
	}

	diff := absInt(teamPower(best.TeamA) - teamPower(best.TeamB))
	score := float64(diff * powerDiffWeight)

	lowest, highest := skillBounds(group)
	topTier := float64(best.TeamA[0].SkillLevel) >= tiers.Advanced || float64(best.TeamB[0].SkillLevel) >= tiers.Advanced
	if topTier && highest-lowest <= 1 {
		score -= tightGroupBonus
	}
	if diff == 0 {
		score -= perfectPowerBonus
	}
	return best, score
}

func evaluateSplit(m Match) float64 {
	lowest, highest := skillBounds(append(slices.Clone(m.TeamA), m.TeamB...))
	maxGap := math.Max(minAcceptableGap, float64(highest-lowest)/3)
	gapA := absInt(m.TeamA[0].SkillLevel - m.TeamA[1].SkillLevel)
	gapB := absInt(m.TeamB[0].SkillLevel - m.TeamB[1].SkillLevel)
	if float64(gapA) > maxGap || float64(gapB) > maxGap {
		return math.Inf(1)
	}
	return float64(absInt(teamPower(m.TeamA) - teamPower(m.TeamB)))
}

func teamPower(team []domain.Player) int {
	return lo.SumBy(team, func(p domain.Player) int { return p.SkillLevel })
}

func bySkillDesc(players []domain.Player) []domain.Player {
	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b domain.Player) int {
		return b.SkillLevel - a.SkillLevel
	})
	return sorted
}

func skillBounds(players []domain.Player) (lowest, highest int) {
	lowest, highest = players[0].SkillLevel, players[0].SkillLevel
	for _, p := range players[1:] {
		lowest = min(lowest, p.SkillLevel)
		highest = max(highest, p.SkillLevel)
	}
	return lowest, highest
}
