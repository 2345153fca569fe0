package application

import (
	"context"

	"github.com/example/court-rotation/internal/domain"
)

// State is a complete, self-contained snapshot of the engine.
type State struct {
	Players []domain.Player
	Courts  []domain.Court
	History []domain.GameRecord
}

// StateStore loads and saves engine snapshots. Load returns an empty State
// when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Clear(ctx context.Context) error
}

// sanitize reconciles a loaded snapshot with the configured courts. It drops
// unknown and duplicate references and restores single attachment. The
// returned notes describe every repair.
func sanitize(state State, courtIDs []string) (players []domain.Player, courts map[string]*domain.Court, notes []string) {
	known := make(map[string]int)
	for _, p := range state.Players {
		if p.ID == "" {
			notes = append(notes, "dropped player without id")
			continue
		}
		if _, dup := known[p.ID]; dup {
			notes = append(notes, "dropped duplicate player "+p.ID)
			continue
		}
		p = p.Clone()
		p.SkillLevel = domain.ClampSkillLevel(p.SkillLevel)
		if p.GamesPlayed < 0 {
			p.GamesPlayed = 0
		}
		p.CourtID = ""
		known[p.ID] = len(players)
		players = append(players, p)
	}

	loaded := make(map[string]domain.Court, len(state.Courts))
	for _, c := range state.Courts {
		loaded[c.ID] = c
	}

	courts = make(map[string]*domain.Court, len(courtIDs))
	for _, id := range courtIDs {
		court := domain.NewCourt(id)
		if c, ok := loaded[id]; ok {
			court = c.Clone()
			court.Players = keepAttachable(court.Players, known, players, id, &notes)
			if len(court.Players) > domain.CourtCapacity {
				for _, extra := range court.Players[domain.CourtCapacity:] {
					players[known[extra]].CourtID = ""
					notes = append(notes, "released overflow player "+extra+" from "+id)
				}
				court.Players = court.Players[:domain.CourtCapacity]
			}
			court.Queue = keepAttachable(court.Queue, known, players, id, &notes)
			court.Normalize()
		}
		courts[id] = &court
	}
	for id := range loaded {
		if _, ok := courts[id]; !ok {
			notes = append(notes, "dropped unknown court "+id)
		}
	}

	for _, id := range courtIDs {
		court := courts[id]
		for _, pid := range court.Players {
			p := &players[known[pid]]
			if court.Status == domain.CourtInProgress {
				p.Status = domain.StatusPlaying
			} else {
				p.Status = domain.StatusWaiting
			}
		}
		for _, pid := range court.Queue {
			players[known[pid]].Status = domain.StatusQueued
		}
	}
	for i := range players {
		if players[i].CourtID == "" && (players[i].Status == domain.StatusPlaying ||
			players[i].Status == domain.StatusQueued || players[i].Status == domain.StatusWaiting) {
			players[i].Status = players[i].IdleStatus()
		}
	}
	return players, courts, notes
}

// keepAttachable filters ids to known players not yet attached elsewhere and
// attaches them to courtID.
func keepAttachable(ids []string, known map[string]int, players []domain.Player, courtID string, notes *[]string) []string {
	var out []string
	for _, id := range ids {
		idx, ok := known[id]
		if !ok {
			*notes = append(*notes, "dropped unknown player "+id+" from "+courtID)
			continue
		}
		if players[idx].CourtID != "" {
			*notes = append(*notes, "dropped second attachment of "+id+" to "+courtID)
			continue
		}
		players[idx].CourtID = courtID
		out = append(out, id)
	}
	return out
}
