package application

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/events"
)

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s*`)

// NormalizeName trims a line, strips a leading "12. " ordinal and
// capitalizes every space separated word. Only the first letter of a word is
// upper cased, so "mary-jane" becomes "Mary-jane".
func NormalizeName(raw string) string {
	name := ordinalPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	words := strings.Fields(name)
	if len(words) == 0 {
		return ""
	}
	upper, lower := cases.Upper(language.English), cases.Lower(language.English)
	for i, word := range words {
		_, size := utf8.DecodeRuneInString(word)
		words[i] = upper.String(word[:size]) + lower.String(word[size:])
	}
	return strings.Join(words, " ")
}

// ParseNames normalizes a block of newline separated names, dropping empty
// lines.
func ParseNames(raw string) []string {
	var names []string
	for _, line := range strings.Split(raw, "\n") {
		if name := NormalizeName(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func (e *Engine) nameTakenLocked(name string) bool {
	for _, p := range e.players {
		if p.Name == name {
			return true
		}
	}
	return false
}

// addPlayerLocked falls back to a random id when the generator returns an
// empty or already used one.
func (e *Engine) addPlayerLocked(name string) *domain.Player {
	id := e.idGenerator()
	if _, taken := e.players[id]; id == "" || taken {
		id = uuid.NewString()
	}
	p := domain.NewPlayer(id, name)
	e.players[p.ID] = &p
	e.order = append(e.order, p.ID)
	return &p
}

// AddPlayer registers a single player after normalizing the name.
func (e *Engine) AddPlayer(ctx context.Context, name string) (player domain.Player, err error) {
	logger := e.loggerWith(ctx, "AddPlayer")
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "add player", "failed to add player", err)
			return
		}
		logger.With("player_id", player.ID).InfoContext(ctx, "player added")
	}()

	normalized := NormalizeName(name)
	err = e.apply(ctx, func(cs *changeSet) error {
		if normalized == "" {
			return newValidationError("name", "name is required")
		}
		if e.nameTakenLocked(normalized) {
			return newValidationError("name", "player already exists")
		}
		p := e.addPlayerLocked(normalized)
		player = p.Clone()
		cs.emit(events.Event{Kind: events.PlayerAdded, Player: &player})
		return nil
	})
	return player, err
}

// ImportPlayers adds every new name from raw and returns how many were
// added. Names already on the roster, or repeated within raw, are skipped.
func (e *Engine) ImportPlayers(ctx context.Context, raw string) (imported int, err error) {
	logger := e.loggerWith(ctx, "ImportPlayers")
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "import players", "failed to import players", err)
			return
		}
		logger.InfoContext(ctx, "players imported", "count", imported)
	}()

	names := ParseNames(raw)
	err = e.apply(ctx, func(cs *changeSet) error {
		if len(names) == 0 {
			return newValidationError("names", "please enter at least one player name")
		}
		seen := make(map[string]struct{}, len(names))
		var fresh []string
		for _, name := range names {
			if _, dup := seen[name]; dup || e.nameTakenLocked(name) {
				continue
			}
			seen[name] = struct{}{}
			fresh = append(fresh, name)
		}
		if len(fresh) == 0 {
			return newValidationError("names", "all players already exist")
		}
		for _, name := range fresh {
			e.addPlayerLocked(name)
		}
		imported = len(fresh)
		e.playersChanged(cs)
		return nil
	})
	return imported, err
}

// AdjustPlayerLevel sets a player's skill level, clamped to the valid range.
func (e *Engine) AdjustPlayerLevel(ctx context.Context, playerID string, level int) (player domain.Player, err error) {
	logger := e.loggerWith(ctx, "AdjustPlayerLevel", "player_id", playerID, "requested_level", level)
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "adjust player level", "failed to adjust player level", err)
			return
		}
		logger.InfoContext(ctx, "player level adjusted", "level", player.SkillLevel)
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		p, lookupErr := e.playerLocked(playerID)
		if lookupErr != nil {
			return lookupErr
		}
		p.SkillLevel = domain.ClampSkillLevel(level)
		player = p.Clone()
		cs.playerChanged(p)
		return nil
	})
	return player, err
}
