package matchmaking

import (
	"math/rand/v2"
	"slices"

	"github.com/example/court-rotation/internal/domain"
)

// GroupSize is the number of players a selection produces.
const GroupSize = domain.CourtCapacity

// Selector turns scored candidates into the group that plays next.
type Selector interface {
	Select(candidates []Candidate) ([]Candidate, error)
}

// TopN picks the highest scores. Ties keep their input order.
type TopN struct{}

// Select implements Selector.
func (TopN) Select(candidates []Candidate) ([]Candidate, error) {
	if len(candidates) < GroupSize {
		return nil, insufficient(len(candidates))
	}
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b Candidate) int {
		return b.Score - a.Score
	})
	return sorted[:GroupSize], nil
}

// Weighted samples without replacement with probability proportional to
// score.
type Weighted struct {
	rng *rand.Rand
}

// NewWeighted returns a weighted selector drawing from rng.
func NewWeighted(rng *rand.Rand) *Weighted {
	return &Weighted{rng: rng}
}

// NewRand returns a PCG source seeded from seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Select implements Selector.
func (w *Weighted) Select(candidates []Candidate) ([]Candidate, error) {
	if len(candidates) < GroupSize {
		return nil, insufficient(len(candidates))
	}
	if len(candidates) == GroupSize {
		return slices.Clone(candidates), nil
	}

	remaining := slices.Clone(candidates)
	chosen := make([]Candidate, 0, GroupSize)
	for len(chosen) < GroupSize && len(remaining) > 0 {
		total := 0.0
		for _, c := range remaining {
			total += float64(c.Score)
		}
		draw := w.rng.Float64() * total

		pick := len(remaining) - 1
		cumulative := 0.0
		for i, c := range remaining {
			cumulative += float64(c.Score)
			if cumulative >= draw {
				pick = i
				break
			}
		}
		chosen = append(chosen, remaining[pick])
		remaining = slices.Delete(remaining, pick, pick+1)
	}
	return chosen, nil
}

func insufficient(available int) error {
	return &domain.InsufficientPlayersError{Required: GroupSize, Available: available}
}
