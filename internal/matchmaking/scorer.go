package matchmaking

import (
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/example/court-rotation/internal/domain"
)

// Candidate is a player paired with its priority score.
type Candidate struct {
	Player domain.Player
	Score  int
}

// Pool is the snapshot a score is computed relative to.
type Pool struct {
	players  []domain.Player
	maxGames int
	avgSkill float64
}

// NewPool captures the aggregates the scorer normalizes against.
func NewPool(players []domain.Player) Pool {
	pool := Pool{players: players}
	if len(players) == 0 {
		return pool
	}
	pool.maxGames = lo.MaxBy(players, func(a, b domain.Player) bool {
		return a.GamesPlayed > b.GamesPlayed
	}).GamesPlayed
	pool.avgSkill = float64(lo.SumBy(players, func(p domain.Player) int {
		return p.SkillLevel
	})) / float64(len(players))
	return pool
}

// Size returns the number of players in the pool.
func (p Pool) Size() int { return len(p.players) }

// AverageSkill returns the mean skill level of the pool.
func (p Pool) AverageSkill() float64 { return p.avgSkill }

// Scorer computes priority scores. History may be nil.
type Scorer struct {
	Weights Weights
	History *History
}

// NewScorer returns a scorer using the given weights and history.
func NewScorer(weights Weights, history *History) *Scorer {
	return &Scorer{Weights: weights, History: history}
}

// Score returns the priority of a player relative to pool at now. Higher
// scores are picked first; the result is never below Weights.MinScore.
func (s *Scorer) Score(player domain.Player, pool Pool, now time.Time) int {
	w := s.Weights
	score := w.Base

	if player.GamesPlayed == 0 {
		score += w.ZeroGamesBonus
	} else if pool.maxGames > 0 {
		score -= float64(player.GamesPlayed) / float64(pool.maxGames) * w.GamesPlayedPenalty
	}

	if minutes, ok := player.MinutesSinceLastGame(now); !ok {
		score += w.NeverPlayedBonus
	} else if w.WaitCapMinutes > 0 {
		score += math.Min(math.Max(minutes, 0)/w.WaitCapMinutes, 1) * w.WaitBonus
	}

	score += s.statusAdjustment(player.Status)
	score -= float64(s.History.DistinctPartners(player.ID)) * w.PartnerPenalty

	if pool.Size() > 0 {
		score -= math.Abs(float64(player.SkillLevel)-pool.avgSkill) * w.SkillDeviation
		peers := lo.CountBy(pool.players, func(other domain.Player) bool {
			return other.ID != player.ID && absInt(other.SkillLevel-player.SkillLevel) <= w.SimilarSkillRange
		})
		score += float64(peers) * w.SimilarSkillBonus
	}

	rounded := int(math.Round(score))
	if rounded < w.MinScore {
		return w.MinScore
	}
	return rounded
}

// ScoreAll scores every player against the pool formed by players. The
// result keeps the input order.
func (s *Scorer) ScoreAll(players []domain.Player, now time.Time) []Candidate {
	pool := NewPool(players)
	return lo.Map(players, func(p domain.Player, _ int) Candidate {
		return Candidate{Player: p, Score: s.Score(p, pool, now)}
	})
}

func (s *Scorer) statusAdjustment(status domain.PlayerStatus) float64 {
	switch status {
	case domain.StatusNoGames:
		return s.Weights.StatusNoGames
	case domain.StatusWaiting:
		return s.Weights.StatusWaiting
	case domain.StatusResting:
		return s.Weights.StatusResting
	case domain.StatusPlaying:
		return s.Weights.StatusPlaying
	case domain.StatusQueued:
		return s.Weights.StatusQueued
	default:
		return 0
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
