package application

import (
	"context"
	"fmt"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/events"
)

// SkippedPlayer explains why an id was not queued.
type SkippedPlayer struct {
	PlayerID string
	Reason   error
}

// QueueResult reports the outcome of AddToQueue.
type QueueResult struct {
	Court   domain.Court
	Added   []string
	Skipped []SkippedPlayer
}

// AssignPlayerToCourt places an unattached player in the next free slot.
func (e *Engine) AssignPlayerToCourt(ctx context.Context, playerID, courtID string) (court domain.Court, err error) {
	logger := e.loggerWith(ctx, "AssignPlayerToCourt", "player_id", playerID, "court_id", courtID)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "assign player", "failed to assign player", err)
			return
		}
		logger.InfoContext(ctx, "player assigned", "court_status", court.Status.String())
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}
		p, lookupErr := e.playerLocked(playerID)
		if lookupErr != nil {
			return lookupErr
		}
		if p.Attached() {
			return &domain.InvalidStateError{
				Entity:    "player",
				ID:        p.ID,
				Operation: "assign",
				State:     fmt.Sprintf("%s on %s", p.Status, p.CourtID),
			}
		}
		if addErr := c.AddPlayer(p.ID); addErr != nil {
			return addErr
		}
		p.Status = domain.StatusWaiting
		p.CourtID = c.ID
		court = c.Clone()
		cs.playerChanged(p)
		cs.courtChanged(c)
		return nil
	})
	return court, err
}

// StartGame begins play on a court holding four players.
func (e *Engine) StartGame(ctx context.Context, courtID string) (court domain.Court, err error) {
	logger := e.loggerWith(ctx, "StartGame", "court_id", courtID)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "start game", "failed to start game", err)
			return
		}
		logger.InfoContext(ctx, "game started", "players", court.Players)
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}
		if startErr := e.startLocked(c, cs); startErr != nil {
			return startErr
		}
		court = c.Clone()
		return nil
	})
	return court, err
}

// startLocked moves c into play and credits each player with one game.
func (e *Engine) startLocked(c *domain.Court, cs *changeSet) error {
	if err := c.Start(cs.now); err != nil {
		return err
	}
	for _, id := range c.Players {
		p := e.players[id]
		played := cs.now
		p.Status = domain.StatusPlaying
		p.GamesPlayed++
		p.LastGameTime = &played
	}
	started := c.Clone()
	cs.emit(events.Event{Kind: events.GameStarted, Court: &started})
	e.playersChanged(cs)
	cs.courtChanged(c)
	return nil
}

// CompleteGame ends the running game, records it and seeds the next group
// from the queue.
func (e *Engine) CompleteGame(ctx context.Context, courtID string) (record domain.GameRecord, err error) {
	logger := e.loggerWith(ctx, "CompleteGame", "court_id", courtID)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "complete game", "failed to complete game", err)
			return
		}
		logger.With("game_id", record.ID).InfoContext(ctx, "game completed")
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}
		teamA, teamB := c.Teams()
		finished, drained, completeErr := c.Complete()
		if completeErr != nil {
			return completeErr
		}

		record = domain.GameRecord{
			ID:        e.idGenerator(),
			Timestamp: cs.now,
			CourtID:   c.ID,
			TeamA:     teamA,
			TeamB:     teamB,
		}
		e.history.Append(record)

		for _, id := range finished {
			p := e.players[id]
			ended := cs.now
			p.Status = domain.StatusResting
			p.LastGameTime = &ended
			p.CourtID = ""
		}
		for _, id := range drained {
			e.players[id].Status = domain.StatusWaiting
		}

		completed := record.Clone()
		courtView := c.Clone()
		cs.emit(events.Event{Kind: events.GameCompleted, Court: &courtView, Game: &completed})
		e.playersChanged(cs)
		cs.courtChanged(c)
		return nil
	})
	return record, err
}

// AddToQueue appends every known, unattached player to the court queue. Ids
// that cannot be queued are reported in the result; an error is returned
// only when nothing was queued.
func (e *Engine) AddToQueue(ctx context.Context, courtID string, playerIDs []string) (result QueueResult, err error) {
	logger := e.loggerWith(ctx, "AddToQueue", "court_id", courtID, "requested", len(playerIDs))
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "add to queue", "failed to add players to queue", err)
			return
		}
		for _, skipped := range result.Skipped {
			e.fail(ctx, logger.With("player_id", skipped.PlayerID), "add to queue", "player not queued", skipped.Reason)
		}
		logger.InfoContext(ctx, "players queued", "added", len(result.Added), "skipped", len(result.Skipped))
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}

		var added []string
		var skipped []SkippedPlayer
		claimed := make(map[string]struct{}, len(playerIDs))
		for _, id := range playerIDs {
			p, ok := e.players[id]
			switch {
			case !ok:
				skipped = append(skipped, SkippedPlayer{PlayerID: id, Reason: &domain.NotFoundError{Kind: "player", ID: id}})
			case p.Attached():
				skipped = append(skipped, SkippedPlayer{PlayerID: id, Reason: &domain.InvalidStateError{
					Entity: "player", ID: id, Operation: "queue", State: fmt.Sprintf("%s on %s", p.Status, p.CourtID),
				}})
			default:
				if _, dup := claimed[id]; dup {
					skipped = append(skipped, SkippedPlayer{PlayerID: id, Reason: &domain.InvalidStateError{
						Entity: "player", ID: id, Operation: "queue", State: "listed twice",
					}})
					continue
				}
				claimed[id] = struct{}{}
				added = append(added, id)
			}
		}
		if len(added) == 0 {
			if len(skipped) > 0 {
				return skipped[0].Reason
			}
			return newValidationError("playerIds", "at least one player is required")
		}

		for _, id := range added {
			p := e.players[id]
			p.Status = domain.StatusQueued
			p.CourtID = c.ID
		}
		c.Enqueue(added...)
		result = QueueResult{Court: c.Clone(), Added: added, Skipped: skipped}
		e.playersChanged(cs)
		cs.courtChanged(c)
		return nil
	})
	return result, err
}

// RemoveQueueGroup drops the queued group at index and returns its players to
// the pool.
func (e *Engine) RemoveQueueGroup(ctx context.Context, courtID string, index int) (court domain.Court, err error) {
	logger := e.loggerWith(ctx, "RemoveQueueGroup", "court_id", courtID, "index", index)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "remove queue group", "failed to remove queue group", err)
			return
		}
		logger.InfoContext(ctx, "queue group removed")
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}
		removed, removeErr := c.RemoveQueueGroup(index)
		if removeErr != nil {
			return removeErr
		}
		e.releaseLocked(removed)
		court = c.Clone()
		e.playersChanged(cs)
		cs.courtChanged(c)
		return nil
	})
	return court, err
}

// ResetCourt clears the active slots and queue without recording a game.
func (e *Engine) ResetCourt(ctx context.Context, courtID string) (court domain.Court, err error) {
	logger := e.loggerWith(ctx, "ResetCourt", "court_id", courtID)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "reset court", "failed to reset court", err)
			return
		}
		logger.InfoContext(ctx, "court reset")
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		c, lookupErr := e.courtLocked(courtID)
		if lookupErr != nil {
			return lookupErr
		}
		e.releaseLocked(c.Reset())
		court = c.Clone()
		e.playersChanged(cs)
		cs.courtChanged(c)
		return nil
	})
	return court, err
}

func (e *Engine) releaseLocked(ids []string) {
	for _, id := range ids {
		if p, ok := e.players[id]; ok {
			p.Detach()
		}
	}
}
