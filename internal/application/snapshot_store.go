package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/persistence"
)

// SnapshotStore adapts a persistence.SnapshotRepository to StateStore.
type SnapshotStore struct {
	repo persistence.SnapshotRepository
}

// NewSnapshotStore wraps repo.
func NewSnapshotStore(repo persistence.SnapshotRepository) *SnapshotStore {
	return &SnapshotStore{repo: repo}
}

// Load returns the stored state, or an empty State when nothing was saved.
func (s *SnapshotStore) Load(ctx context.Context) (State, error) {
	if s == nil || s.repo == nil {
		return State{}, fmt.Errorf("SnapshotStore is nil")
	}
	snapshot, err := s.repo.LoadSnapshot(ctx)
	if errors.Is(err, persistence.ErrNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}
	return StateFromSnapshot(snapshot), nil
}

// Save replaces the stored snapshot with state.
func (s *SnapshotStore) Save(ctx context.Context, state State) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("SnapshotStore is nil")
	}
	return s.repo.SaveSnapshot(ctx, SnapshotFromState(state))
}

// Clear removes the stored snapshot.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("SnapshotStore is nil")
	}
	return s.repo.DeleteSnapshot(ctx)
}

// SnapshotFromState converts engine state to its stored form.
func SnapshotFromState(state State) persistence.Snapshot {
	snapshot := persistence.Snapshot{
		Players:     make([]persistence.PlayerRecord, 0, len(state.Players)),
		Courts:      make(map[string]persistence.CourtRecord, len(state.Courts)),
		GameHistory: make([]persistence.GameRecord, 0, len(state.History)),
	}
	for _, p := range state.Players {
		snapshot.Players = append(snapshot.Players, persistence.PlayerRecord{
			ID:           p.ID,
			Name:         p.Name,
			Status:       p.Status.String(),
			CourtID:      p.CourtID,
			GamesPlayed:  p.GamesPlayed,
			LastGameTime: utcPointer(p.LastGameTime),
			SkillLevel:   p.SkillLevel,
		})
	}
	for _, c := range state.Courts {
		snapshot.Courts[c.ID] = persistence.CourtRecord{
			ID:               c.ID,
			Status:           c.Status.String(),
			Players:          nonNil(c.Players),
			Queue:            nonNil(c.Queue),
			StartTime:        utcPointer(c.StartTime),
			StartedFromQueue: c.StartedFromQueue,
		}
	}
	for _, g := range state.History {
		snapshot.GameHistory = append(snapshot.GameHistory, persistence.GameRecord{
			ID:        g.ID,
			Timestamp: g.Timestamp.UTC(),
			CourtID:   g.CourtID,
			TeamA:     nonNil(g.TeamA),
			TeamB:     nonNil(g.TeamB),
		})
	}
	return snapshot
}

// StateFromSnapshot converts a stored snapshot to engine state. Unknown status
// labels fall back to values Restore can repair. Courts are ordered by id.
func StateFromSnapshot(snapshot persistence.Snapshot) State {
	state := State{
		Players: make([]domain.Player, 0, len(snapshot.Players)),
		Courts:  make([]domain.Court, 0, len(snapshot.Courts)),
		History: make([]domain.GameRecord, 0, len(snapshot.GameHistory)),
	}
	for _, r := range snapshot.Players {
		p := domain.Player{
			ID:           r.ID,
			Name:         r.Name,
			CourtID:      r.CourtID,
			GamesPlayed:  r.GamesPlayed,
			LastGameTime: utcPointer(r.LastGameTime),
			SkillLevel:   r.SkillLevel,
		}
		status, err := domain.ParsePlayerStatus(r.Status)
		if err != nil {
			status = p.IdleStatus()
		}
		p.Status = status
		state.Players = append(state.Players, p)
	}

	ids := make([]string, 0, len(snapshot.Courts))
	for id := range snapshot.Courts {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		r := snapshot.Courts[id]
		c := domain.Court{
			ID:               id,
			Players:          slices.Clone(r.Players),
			Queue:            slices.Clone(r.Queue),
			StartTime:        utcPointer(r.StartTime),
			StartedFromQueue: r.StartedFromQueue,
		}
		if status, err := domain.ParseCourtStatus(r.Status); err == nil {
			c.Status = status
		}
		state.Courts = append(state.Courts, c)
	}

	for _, r := range snapshot.GameHistory {
		state.History = append(state.History, domain.GameRecord{
			ID:        r.ID,
			Timestamp: r.Timestamp.UTC(),
			CourtID:   r.CourtID,
			TeamA:     slices.Clone(r.TeamA),
			TeamB:     slices.Clone(r.TeamB),
		})
	}
	return state
}

func utcPointer(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}
