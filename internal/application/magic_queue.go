package application

import (
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/matchmaking"
)

// MagicQueueAction tells what a magic queue run did to the court.
type MagicQueueAction string

const (
	MagicStarted MagicQueueAction = "started"
	MagicMatched MagicQueueAction = "matched"
	MagicQueued  MagicQueueAction = "queued"
)

// MagicQueueResult reports the outcome of HandleMagicQueue.
type MagicQueueResult struct {
	Court  domain.Court
	Action MagicQueueAction
	// Match is the selected group in slot order. It is empty when an
	// already ready group was started.
	Match []string
}

// ScoredPlayer is a priority preview entry.
type ScoredPlayer struct {
	Player domain.Player
	Score  int
}

// HandleMagicQueue fills or extends a court automatically. A ready court is
// started, an empty court receives a freshly selected group which starts
// immediately, and a court in play gets the group appended to its queue.
func (e *Engine) HandleMagicQueue(ctx context.Context, courtID string) (result MagicQueueResult, err error) {
	logger := e.loggerWith(ctx, "HandleMagicQueue", "court_id", courtID)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "magic queue", "failed to run magic queue", err)
			return
		}
		logger.InfoContext(ctx, "magic queue completed", "action", string(result.Action), "match", result.Match)
	}()

	guard, ok := e.magic[courtID]
	if !ok {
		err = &domain.NotFoundError{Kind: "court", ID: courtID}
		return
	}
	if !guard.CompareAndSwap(false, true) {
		err = ErrMagicQueueBusy
		return
	}
	defer guard.Store(false)

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}

		switch c.Status {
		case domain.CourtReady:
			if startErr := e.startLocked(c, cs); startErr != nil {
				return startErr
			}
			result = MagicQueueResult{Court: c.Clone(), Action: MagicStarted}
			return nil

		case domain.CourtFilling:
			return &domain.InvalidStateError{Entity: "court", ID: c.ID, Operation: "run magic queue on", State: c.Status.String()}

		case domain.CourtEmpty:
			match, selectErr := e.selectMatchLocked(cs)
			if selectErr != nil {
				return selectErr
			}
			ids := match.PlayerIDs()
			for _, id := range ids {
				if addErr := c.AddPlayer(id); addErr != nil {
					return addErr
				}
				p := e.players[id]
				p.Status = domain.StatusWaiting
				p.CourtID = c.ID
			}
			if startErr := e.startLocked(c, cs); startErr != nil {
				return startErr
			}
			result = MagicQueueResult{Court: c.Clone(), Action: MagicMatched, Match: ids}
			return nil

		default:
			match, selectErr := e.selectMatchLocked(cs)
			if selectErr != nil {
				return selectErr
			}
			ids := match.PlayerIDs()
			for _, id := range ids {
				p := e.players[id]
				p.Status = domain.StatusQueued
				p.CourtID = c.ID
			}
			c.Enqueue(ids...)
			result = MagicQueueResult{Court: c.Clone(), Action: MagicQueued, Match: ids}
			e.playersChanged(cs)
			cs.courtChanged(c)
			return nil
		}
	})
	return result, err
}

// AutoFill runs the magic queue on the first empty court.
func (e *Engine) AutoFill(ctx context.Context) (MagicQueueResult, error) {
	e.mu.Lock()
	target := ""
	for _, id := range e.cfg.CourtIDs {
		if e.courts[id].Status == domain.CourtEmpty {
			target = id
			break
		}
	}
	e.mu.Unlock()

	if target == "" {
		err := ErrNoAvailableCourt
		e.fail(ctx, e.loggerWith(ctx, "AutoFill"), "auto fill", "failed to auto fill", err)
		return MagicQueueResult{}, err
	}
	return e.HandleMagicQueue(ctx, target)
}

// Scores previews the priority of every player eligible for matchmaking,
// highest first.
func (e *Engine) Scores(ctx context.Context) []ScoredPlayer {
	e.mu.Lock()
	defer e.mu.Unlock()

	history := matchmaking.NewHistory(e.history.Records())
	scored := matchmaking.NewScorer(e.cfg.Weights, history).ScoreAll(e.eligibleLocked(), e.now())
	slices.SortStableFunc(scored, func(a, b matchmaking.Candidate) int { return b.Score - a.Score })
	return lo.Map(scored, func(c matchmaking.Candidate, _ int) ScoredPlayer {
		return ScoredPlayer{Player: c.Player, Score: c.Score}
	})
}

// eligibleLocked returns the unattached players in roster order.
func (e *Engine) eligibleLocked() []domain.Player {
	var pool []domain.Player
	for _, id := range e.order {
		if p := e.players[id]; !p.Attached() {
			pool = append(pool, p.Clone())
		}
	}
	return pool
}

func (e *Engine) selectorLocked() matchmaking.Selector {
	if e.cfg.Selection == SelectTop {
		return matchmaking.TopN{}
	}
	return matchmaking.NewWeighted(e.rng)
}

// selectMatchLocked chooses and splits the next four players. It does not
// mutate engine state.
func (e *Engine) selectMatchLocked(cs *changeSet) (matchmaking.Match, error) {
	history := matchmaking.NewHistory(e.history.Records())
	candidates := matchmaking.NewScorer(e.cfg.Weights, history).ScoreAll(e.eligibleLocked(), cs.now)
	if len(candidates) < matchmaking.GroupSize {
		return matchmaking.Match{}, &domain.InsufficientPlayersError{Required: matchmaking.GroupSize, Available: len(candidates)}
	}

	if e.cfg.Strategy == StrategyTiered {
		ranked := slices.Clone(candidates)
		slices.SortStableFunc(ranked, func(a, b matchmaking.Candidate) int { return b.Score - a.Score })
		pool := candidatePlayers(ranked[:min(tieredCandidates, len(ranked))])
		if match, ok := matchmaking.FindBalancedGroup(pool); ok {
			return match, nil
		}
		return e.balancerLocked(history).Balance(pool[:matchmaking.GroupSize]), nil
	}

	chosen, err := e.selectorLocked().Select(candidates)
	if err != nil {
		return matchmaking.Match{}, err
	}
	return e.balancerLocked(history).Balance(candidatePlayers(chosen)), nil
}

func (e *Engine) balancerLocked(history *matchmaking.History) *matchmaking.Balancer {
	balancer := matchmaking.NewBalancer(e.cfg.Weights, history)
	if e.cfg.Variety {
		balancer.Variety = e.rng
	}
	return balancer
}

func candidatePlayers(candidates []matchmaking.Candidate) []domain.Player {
	return lo.Map(candidates, func(c matchmaking.Candidate, _ int) domain.Player { return c.Player })
}
