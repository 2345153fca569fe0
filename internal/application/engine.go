package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/events"
	"github.com/example/court-rotation/internal/matchmaking"
)

// SelectionMode chooses how the next four players are drawn from the pool.
type SelectionMode string

const (
	SelectWeighted SelectionMode = "weighted"
	SelectTop      SelectionMode = "top"
)

// GroupStrategy chooses between score driven selection and the skill tiered
// group search.
type GroupStrategy string

const (
	StrategyScored GroupStrategy = "scored"
	StrategyTiered GroupStrategy = "tiered"
)

// tieredCandidates is the number of top scored players the tiered search
// considers.
const tieredCandidates = 8

// EngineConfig holds the tunables of the scheduling engine.
type EngineConfig struct {
	CourtIDs     []string
	HistoryLimit int
	Weights      matchmaking.Weights
	Selection    SelectionMode
	Strategy     GroupStrategy
	Variety      bool
	// Rand drives weighted selection and variety mode. A time seeded source
	// is used when nil.
	Rand *rand.Rand
}

// DefaultCourtIDs returns court-1 through court-n.
func DefaultCourtIDs(n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, fmt.Sprintf("court-%d", i))
	}
	return ids
}

// DefaultEngineConfig returns five courts with weighted selection.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		CourtIDs:     DefaultCourtIDs(5),
		HistoryLimit: domain.DefaultHistoryLimit,
		Weights:      matchmaking.DefaultWeights(),
		Selection:    SelectWeighted,
		Strategy:     StrategyScored,
	}
}

// Engine owns every player, court, and game record and serializes all
// mutations. Reads return deep copies.
type Engine struct {
	mu      sync.Mutex
	cfg     EngineConfig
	rng     *rand.Rand
	players map[string]*domain.Player
	order   []string
	courts  map[string]*domain.Court
	history *domain.GameLog

	magic map[string]*atomic.Bool

	// version counts committed mutations. It is advanced under mu.
	version uint64

	// saveMu orders snapshot writes; savedVersion is the newest state the
	// store holds.
	saveMu       sync.Mutex
	savedVersion uint64

	// outbox holds event batches in commit order until one caller drains it.
	outMu    sync.Mutex
	outbox   []events.Event
	draining bool

	store       StateStore
	publisher   events.Publisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEngine constructs an engine with the provided dependencies.
func NewEngine(cfg EngineConfig, store StateStore, publisher events.Publisher, idGenerator func() string, now func() time.Time) *Engine {
	return NewEngineWithLogger(cfg, store, publisher, idGenerator, now, nil)
}

// NewEngineWithLogger constructs an engine with a specified logger.
func NewEngineWithLogger(cfg EngineConfig, store StateStore, publisher events.Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *Engine {
	defaults := DefaultEngineConfig()
	if len(cfg.CourtIDs) == 0 {
		cfg.CourtIDs = defaults.CourtIDs
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaults.HistoryLimit
	}
	if cfg.Weights == (matchmaking.Weights{}) {
		cfg.Weights = defaults.Weights
	}
	if cfg.Selection == "" {
		cfg.Selection = defaults.Selection
	}
	if cfg.Strategy == "" {
		cfg.Strategy = defaults.Strategy
	}
	rng := cfg.Rand
	if rng == nil {
		rng = matchmaking.NewRand(uint64(time.Now().UnixNano()))
	}
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		cfg:         cfg,
		rng:         rng,
		magic:       make(map[string]*atomic.Bool, len(cfg.CourtIDs)),
		store:       store,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
	for _, id := range cfg.CourtIDs {
		e.magic[id] = &atomic.Bool{}
	}
	e.resetLocked()
	return e
}

func (e *Engine) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, e.logger, "Engine", operation, attrs...)
}

// Config returns the effective configuration.
func (e *Engine) Config() EngineConfig {
	return e.cfg
}

func (e *Engine) resetLocked() {
	e.players = make(map[string]*domain.Player)
	e.order = nil
	e.courts = make(map[string]*domain.Court, len(e.cfg.CourtIDs))
	for _, id := range e.cfg.CourtIDs {
		court := domain.NewCourt(id)
		e.courts[id] = &court
	}
	e.history = domain.NewGameLog(e.cfg.HistoryLimit)
}

// Restore replaces the in-memory state with the stored snapshot and emits the
// initial notifications. A failed load leaves the engine empty and returns a
// PersistenceError; callers are expected to continue.
func (e *Engine) Restore(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "Restore")

	var state State
	if e.store != nil {
		state, err = e.store.Load(ctx)
		if err != nil {
			err = &domain.PersistenceError{Op: "load", Err: err}
			logger.ErrorContext(ctx, "failed to load state, starting empty", "error", err, "error_kind", ErrorKind(err))
			state = State{}
		}
	}

	e.mu.Lock()
	e.resetLocked()
	players, courts, notes := sanitize(state, e.cfg.CourtIDs)
	for i := range players {
		p := players[i]
		e.players[p.ID] = &p
		e.order = append(e.order, p.ID)
	}
	e.courts = courts
	e.history = domain.NewGameLog(e.cfg.HistoryLimit, state.History...)
	games := e.history.Len()
	initial := []events.Event{{Kind: events.PlayersUpdated, Players: e.playersLocked()}}
	for _, id := range e.cfg.CourtIDs {
		court := e.courts[id].Clone()
		initial = append(initial, events.Event{Kind: events.CourtUpdated, Court: &court})
	}
	e.version++
	e.enqueue(initial)
	e.mu.Unlock()

	for _, note := range notes {
		logger.WarnContext(ctx, "repaired stored state", "detail", note)
	}
	logger.InfoContext(ctx, "state restored",
		"players", len(players),
		"courts", len(courts),
		"games", games,
	)
	e.flush(ctx)
	return err
}

// changeSet collects the notifications produced by one mutation.
type changeSet struct {
	now    time.Time
	events []events.Event
	wipe   bool
}

func (c *changeSet) emit(event events.Event) {
	c.events = append(c.events, event)
}

// apply runs fn under the engine lock. On success the resulting snapshot is
// persisted and the collected events are published after the lock is
// released. fn must validate before it mutates.
func (e *Engine) apply(ctx context.Context, fn func(cs *changeSet) error) error {
	e.mu.Lock()
	cs := &changeSet{now: e.now()}
	if err := fn(cs); err != nil {
		e.mu.Unlock()
		return err
	}
	e.version++
	version := e.version
	state := e.snapshotLocked()
	for i := range cs.events {
		if cs.events[i].At.IsZero() {
			cs.events[i].At = cs.now
		}
	}
	e.enqueue(cs.events)
	e.mu.Unlock()

	e.persist(ctx, version, state, cs.wipe)
	e.flush(ctx)
	return nil
}

// persist writes state unless a newer version already reached the store.
func (e *Engine) persist(ctx context.Context, version uint64, state State, wipe bool) {
	if e.store == nil {
		return
	}
	e.saveMu.Lock()
	if version <= e.savedVersion {
		e.saveMu.Unlock()
		return
	}
	op, err := "save", error(nil)
	if wipe {
		op, err = "clear", e.store.Clear(ctx)
	} else {
		err = e.store.Save(ctx, state)
	}
	if err == nil {
		e.savedVersion = version
	}
	e.saveMu.Unlock()

	if err != nil {
		perr := &domain.PersistenceError{Op: op, Err: err}
		e.loggerWith(ctx, "persist").ErrorContext(ctx, "failed to persist state", "error", perr, "error_kind", ErrorKind(perr))
		e.enqueue([]events.Event{failureEvent(e.now(), op, perr)})
	}
}

func (e *Engine) enqueue(batch []events.Event) {
	if e.publisher == nil || len(batch) == 0 {
		return
	}
	e.outMu.Lock()
	e.outbox = append(e.outbox, batch...)
	e.outMu.Unlock()
}

// flush delivers queued events in order. Only one caller drains at a time;
// events queued meanwhile, including those from subscribers that call back
// into the engine, are picked up by the active drainer.
func (e *Engine) flush(ctx context.Context) {
	if e.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	e.outMu.Lock()
	if e.draining {
		e.outMu.Unlock()
		return
	}
	e.draining = true
	defer func() {
		if r := recover(); r != nil {
			e.outMu.Lock()
			e.draining = false
			e.outMu.Unlock()
			panic(r)
		}
	}()
	for len(e.outbox) > 0 {
		batch := e.outbox
		e.outbox = nil
		e.outMu.Unlock()
		for _, event := range batch {
			_ = e.publisher.Publish(ctx, event)
		}
		e.outMu.Lock()
	}
	e.draining = false
	e.outMu.Unlock()
}

// fail logs a rejected operation and reports it to subscribers.
func (e *Engine) fail(ctx context.Context, logger *slog.Logger, operation, message string, err error) {
	logger.ErrorContext(ctx, message, "error", err, "error_kind", ErrorKind(err))
	e.enqueue([]events.Event{failureEvent(e.now(), operation, err)})
	e.flush(ctx)
}

func failureEvent(at time.Time, operation string, err error) events.Event {
	return events.Event{
		Kind: events.EngineFailure,
		At:   at,
		Failure: &events.Failure{
			Operation: operation,
			ErrorKind: ErrorKind(err),
			Message:   err.Error(),
		},
	}
}

func (e *Engine) snapshotLocked() State {
	state := State{
		Players: e.playersLocked(),
		Courts:  make([]domain.Court, 0, len(e.cfg.CourtIDs)),
		History: e.history.Records(),
	}
	for _, id := range e.cfg.CourtIDs {
		state.Courts = append(state.Courts, e.courts[id].Clone())
	}
	return state
}

func (e *Engine) playersLocked() []domain.Player {
	out := make([]domain.Player, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.players[id].Clone())
	}
	return out
}

func (e *Engine) playerLocked(id string) (*domain.Player, error) {
	p, ok := e.players[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "player", ID: id}
	}
	return p, nil
}

func (e *Engine) courtLocked(id string) (*domain.Court, error) {
	c, ok := e.courts[id]
	if !ok {
		return nil, &domain.NotFoundError{Kind: "court", ID: id}
	}
	return c, nil
}

func (cs *changeSet) courtChanged(court *domain.Court) {
	clone := court.Clone()
	cs.emit(events.Event{Kind: events.CourtUpdated, Court: &clone})
}

func (cs *changeSet) playerChanged(player *domain.Player) {
	clone := player.Clone()
	cs.emit(events.Event{Kind: events.PlayerUpdated, Player: &clone})
}

func (e *Engine) playersChanged(cs *changeSet) {
	cs.emit(events.Event{Kind: events.PlayersUpdated, Players: e.playersLocked()})
}

// Players returns the roster in insertion order.
func (e *Engine) Players(ctx context.Context) []domain.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playersLocked()
}

// Player returns a single player.
func (e *Engine) Player(ctx context.Context, id string) (domain.Player, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.playerLocked(id)
	if err != nil {
		return domain.Player{}, err
	}
	return p.Clone(), nil
}

// Courts returns every court in configuration order.
func (e *Engine) Courts(ctx context.Context) []domain.Court {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Court, 0, len(e.cfg.CourtIDs))
	for _, id := range e.cfg.CourtIDs {
		out = append(out, e.courts[id].Clone())
	}
	return out
}

// Court returns a single court.
func (e *Engine) Court(ctx context.Context, id string) (domain.Court, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, err := e.courtLocked(id)
	if err != nil {
		return domain.Court{}, err
	}
	return c.Clone(), nil
}

// History returns the retained game records, oldest first.
func (e *Engine) History(ctx context.Context) []domain.GameRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Records()
}

// Snapshot exports the complete engine state.
func (e *Engine) Snapshot(ctx context.Context) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Reset drops every player and game and empties all courts.
func (e *Engine) Reset(ctx context.Context) (err error) {
	logger := e.loggerWith(ctx, "Reset")
	defer func() {
		if err != nil {
			e.fail(ctx, logger, "reset", "failed to reset engine", err)
			return
		}
		logger.InfoContext(ctx, "engine reset")
	}()

	err = e.apply(ctx, func(cs *changeSet) error {
		e.resetLocked()
		cs.wipe = true
		e.playersChanged(cs)
		for _, id := range e.cfg.CourtIDs {
			cs.courtChanged(e.courts[id])
		}
		return nil
	})
	return err
}
