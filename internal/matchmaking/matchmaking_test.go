package matchmaking

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/court-rotation/internal/domain"
)

var testNow = time.Date(2024, time.March, 9, 10, 0, 0, 0, time.UTC)

func player(id string, skill int) domain.Player {
	p := domain.NewPlayer(id, id)
	p.SkillLevel = skill
	return p
}

func game(id string, at time.Time, teamA, teamB []string) domain.GameRecord {
	return domain.GameRecord{ID: id, Timestamp: at, CourtID: "court-1", TeamA: teamA, TeamB: teamB}
}

func TestHistory_PairCounts(t *testing.T) {
	records := []domain.GameRecord{
		game("g1", testNow, []string{"a", "b"}, []string{"c", "d"}),
		game("g2", testNow.Add(time.Minute), []string{"b", "a"}, []string{"c", "e"}),
		game("g3", testNow.Add(2*time.Minute), []string{"a", "b", "x"}, []string{"c", "d"}),
	}
	h := NewHistory(records)

	assert.Equal(t, 2, h.TeammateCount("a", "b"))
	assert.Equal(t, 2, h.TeammateCount("d", "c"))
	assert.Equal(t, 0, h.TeammateCount("a", "x"), "teams of three are not counted")
	assert.Equal(t, "a:b", PairKey("b", "a"))
	assert.InDelta(t, 2.828, h.TeamFamiliarity([]string{"a", "b"}, 1.5), 0.001)
	assert.InDelta(t, 2, h.TeamFamiliarity([]string{"a", "b"}, 1), 0.0001)
	assert.Equal(t, float64(3), h.CrossTeamFamiliarity([]string{"a", "c"}, []string{"b", "e"}))
	assert.Equal(t, 2, h.DistinctPartners("c"))

	last, ok := h.MostRecentGame("e")
	require.True(t, ok)
	assert.Equal(t, "g2", last.ID)
}

func TestHistory_Monotonicity(t *testing.T) {
	pairs := [][2]string{{"a", "b"}, {"c", "d"}, {"a", "c"}, {"b", "d"}, {"a", "d"}, {"b", "c"}}
	log := domain.NewGameLog(5)
	var previous PairCounts
	for i := 0; i < 12; i++ {
		teamA := pairs[i%len(pairs)]
		teamB := pairs[(i+1)%len(pairs)]
		log.Append(game(fmt.Sprintf("g%d", i), testNow.Add(time.Duration(i)*time.Minute), teamA[:], teamB[:]))

		current := NewHistory(log.Records()).Counts()
		if log.Len() < log.Limit() && previous != nil {
			for key, count := range previous {
				assert.GreaterOrEqual(t, current[key], count, "append decreased %s", key)
			}
		}
		previous = current
	}

	full := NewHistory(log.Records()).Counts()
	trimmed := NewHistory(log.Records()[1:]).Counts()
	for key, count := range trimmed {
		assert.LessOrEqual(t, count, full[key], "eviction increased %s", key)
	}
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(DefaultWeights(), nil)

	t.Run("fresh pool", func(t *testing.T) {
		players := []domain.Player{player("a", 1), player("b", 1), player("c", 1), player("d", 1)}
		for _, c := range scorer.ScoreAll(players, testNow) {
			assert.Equal(t, 515, c.Score, c.Player.ID)
		}
	})

	t.Run("veteran who just played", func(t *testing.T) {
		played := testNow.Add(-30 * time.Minute)
		veteran := player("v", 5)
		veteran.GamesPlayed = 2
		veteran.LastGameTime = &played
		veteran.Status = domain.StatusResting
		pool := NewPool([]domain.Player{veteran, player("b", 5)})

		// 100 - 100 + 50 - 20 - 0 + 5
		assert.Equal(t, 35, scorer.Score(veteran, pool, testNow))
	})

	t.Run("never below the floor", func(t *testing.T) {
		played := testNow
		worn := player("w", 10)
		worn.GamesPlayed = 9
		worn.LastGameTime = &played
		worn.Status = domain.StatusPlaying
		pool := NewPool([]domain.Player{worn, player("x", 1), player("y", 1), player("z", 1)})
		assert.Equal(t, 1, scorer.Score(worn, pool, testNow))
	})

	t.Run("partner diversity lowers the score", func(t *testing.T) {
		history := NewHistory([]domain.GameRecord{
			game("g1", testNow, []string{"a", "b"}, []string{"c", "d"}),
			game("g2", testNow, []string{"a", "c"}, []string{"b", "d"}),
		})
		withHistory := NewScorer(DefaultWeights(), history)
		pool := NewPool([]domain.Player{player("a", 1), player("e", 1)})
		assert.Equal(t, scorer.Score(player("a", 1), pool, testNow)-20, withHistory.Score(player("a", 1), pool, testNow))
	})
}

func candidates(scores ...int) []Candidate {
	out := make([]Candidate, len(scores))
	for i, score := range scores {
		out[i] = Candidate{Player: player(fmt.Sprintf("p%d", i), 1), Score: score}
	}
	return out
}

func candidateIDs(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Player.ID
	}
	return out
}

func TestTopN_Select(t *testing.T) {
	input := candidates(10, 50, 50, 5, 90, 50)
	first, err := TopN{}.Select(input)
	require.NoError(t, err)
	second, err := TopN{}.Select(input)
	require.NoError(t, err)

	assert.Equal(t, []string{"p4", "p1", "p2", "p5"}, candidateIDs(first))
	assert.Equal(t, first, second)
	assert.Equal(t, "p0", input[0].Player.ID, "input must not be reordered")
}

func TestWeighted_Select(t *testing.T) {
	t.Run("no duplicates and full size", func(t *testing.T) {
		selector := NewWeighted(NewRand(7))
		input := candidates(1, 1, 500, 3, 40, 8, 2, 1000)
		for i := 0; i < 200; i++ {
			chosen, err := selector.Select(input)
			require.NoError(t, err)
			require.Len(t, chosen, GroupSize)
			seen := map[string]bool{}
			for _, c := range chosen {
				require.False(t, seen[c.Player.ID], "duplicate %s", c.Player.ID)
				seen[c.Player.ID] = true
			}
		}
	})

	t.Run("exactly four returns the pool", func(t *testing.T) {
		input := candidates(1, 999, 3, 7)
		chosen, err := NewWeighted(NewRand(1)).Select(input)
		require.NoError(t, err)
		assert.Equal(t, candidateIDs(input), candidateIDs(chosen))
	})

	t.Run("higher scores are drawn more often", func(t *testing.T) {
		selector := NewWeighted(NewRand(99))
		input := candidates(1, 1, 1, 1, 1, 1, 100, 100)
		const draws = 2000
		picked := map[string]int{}
		for i := 0; i < draws; i++ {
			chosen, err := selector.Select(input)
			require.NoError(t, err)
			for _, c := range chosen {
				picked[c.Player.ID]++
			}
		}
		assert.Greater(t, float64(picked["p6"])/draws, 0.95)
		assert.Greater(t, float64(picked["p7"])/draws, 0.95)
		for _, low := range []string{"p0", "p1", "p2", "p3", "p4", "p5"} {
			assert.Less(t, float64(picked[low])/draws, 0.5, low)
		}
	})

	t.Run("same seed same draw", func(t *testing.T) {
		input := candidates(5, 10, 20, 40, 80, 160)
		a, _ := NewWeighted(NewRand(42)).Select(input)
		b, _ := NewWeighted(NewRand(42)).Select(input)
		assert.Equal(t, candidateIDs(a), candidateIDs(b))
	})
}

func TestSelectors_InsufficientPlayers(t *testing.T) {
	for name, selector := range map[string]Selector{"top": TopN{}, "weighted": NewWeighted(NewRand(3))} {
		t.Run(name, func(t *testing.T) {
			_, err := selector.Select(candidates(10, 20, 30))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInsufficientPlayers))

			var insufficientErr *domain.InsufficientPlayersError
			require.ErrorAs(t, err, &insufficientErr)
			assert.Equal(t, 3, insufficientErr.Available)
		})
	}
}

func TestBalancer_Balance(t *testing.T) {
	players := []domain.Player{player("a", 5), player("b", 5), player("c", 1), player("d", 1)}

	t.Run("returns the minimal partition", func(t *testing.T) {
		history := NewHistory([]domain.GameRecord{
			game("g1", testNow, []string{"a", "c"}, []string{"b", "d"}),
		})
		balancer := NewBalancer(DefaultWeights(), history)
		all := balancer.Partitions(players)
		require.Len(t, all, 3)

		best := balancer.Balance(players)
		for _, other := range all {
			assert.LessOrEqual(t, best.Penalty.Total(), other.Penalty.Total())
		}
		assert.ElementsMatch(t, []string{"a", "d", "b", "c"}, best.PlayerIDs())
		assert.Equal(t, []string{"a", "d"}, ids(best.TeamA))
	})

	t.Run("skill balance without history", func(t *testing.T) {
		best := NewBalancer(DefaultWeights(), nil).Balance(players)
		assert.Equal(t, []string{"a", "c", "b", "d"}, best.PlayerIDs())
		assert.Zero(t, best.Penalty.Total())
	})

	t.Run("recent partners cost at least the anti-repeat penalty", func(t *testing.T) {
		even := []domain.Player{player("a", 3), player("b", 3), player("c", 3), player("d", 3)}
		history := NewHistory([]domain.GameRecord{
			game("g1", testNow, []string{"a", "b"}, []string{"x", "y"}),
		})
		all := NewBalancer(DefaultWeights(), history).Partitions(even)
		repeat, fresh := all[0], all[1]
		assert.GreaterOrEqual(t, repeat.Penalty.Total()-fresh.Penalty.Total(), 100000.0)
	})

	t.Run("forced split for other sizes", func(t *testing.T) {
		three := players[:3]
		match := NewBalancer(DefaultWeights(), nil).Balance(three)
		assert.Equal(t, []string{"a", "b"}, ids(match.TeamA))
		assert.Equal(t, []string{"c"}, ids(match.TeamB))
	})

	t.Run("variety mode stays within the partitions", func(t *testing.T) {
		balancer := NewBalancer(DefaultWeights(), nil)
		balancer.Variety = NewRand(11)
		valid := map[string]bool{}
		for _, m := range balancer.Partitions(players) {
			valid[fmt.Sprint(m.PlayerIDs())] = true
		}
		for i := 0; i < 50; i++ {
			assert.True(t, valid[fmt.Sprint(balancer.Balance(players).PlayerIDs())])
		}
	})

	t.Run("variety mode favours the better partitions", func(t *testing.T) {
		spread := []domain.Player{player("a", 10), player("b", 6), player("c", 3), player("d", 1)}
		balancer := NewBalancer(DefaultWeights(), nil)
		ranked := balancer.Partitions(spread)
		slices.SortStableFunc(ranked, func(x, y Match) int { return cmp.Compare(x.Penalty.Total(), y.Penalty.Total()) })
		require.Less(t, ranked[0].Penalty.Total(), ranked[1].Penalty.Total())
		require.Less(t, ranked[1].Penalty.Total(), ranked[2].Penalty.Total())

		balancer.Variety = NewRand(2024)
		const draws = 3000
		counts := make([]int, len(ranked))
		for i := 0; i < draws; i++ {
			got := fmt.Sprint(balancer.Balance(spread).PlayerIDs())
			for rank, m := range ranked {
				if got == fmt.Sprint(m.PlayerIDs()) {
					counts[rank]++
				}
			}
		}
		assert.InDelta(t, 0.70, float64(counts[0])/draws, 0.04)
		assert.InDelta(t, 0.20, float64(counts[1])/draws, 0.04)
		assert.InDelta(t, 0.10, float64(counts[2])/draws, 0.04)
	})
}

func TestFindBalancedGroup(t *testing.T) {
	t.Run("prefers the advanced tier", func(t *testing.T) {
		pool := []domain.Player{
			player("a1", 9), player("a2", 9), player("a3", 10), player("a4", 9),
			player("b1", 1), player("b2", 2), player("b3", 1), player("b4", 2),
		}
		match, ok := FindBalancedGroup(pool)
		require.True(t, ok)
		assert.ElementsMatch(t, []string{"a1", "a2", "a3", "a4"}, match.PlayerIDs())
	})

	t.Run("falls back to narrow windows", func(t *testing.T) {
		pool := []domain.Player{player("a", 8), player("b", 7), player("c", 6), player("d", 5), player("e", 1)}
		match, ok := FindBalancedGroup(pool)
		require.True(t, ok)
		assert.Equal(t, []string{"a", "b", "c", "d"}, match.PlayerIDs(), "snake split would pair 8 with 5")
	})

	t.Run("no window narrow enough", func(t *testing.T) {
		pool := []domain.Player{player("a", 10), player("b", 7), player("c", 6), player("d", 5), player("e", 1)}
		_, ok := FindBalancedGroup(pool)
		assert.False(t, ok)
	})

	t.Run("too few candidates", func(t *testing.T) {
		_, ok := FindBalancedGroup([]domain.Player{player("a", 1), player("b", 1), player("c", 1)})
		assert.False(t, ok)
	})

	t.Run("combinations", func(t *testing.T) {
		assert.Len(t, Combinations([]int{1, 2, 3, 4, 5, 6}, 4), 15)
		assert.Nil(t, Combinations([]int{1, 2}, 4))
	})
}
