package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/court-rotation/internal/application"
	"github.com/example/court-rotation/internal/events"
	"github.com/example/court-rotation/internal/matchmaking"
	"github.com/example/court-rotation/internal/persistence/memory"
)

// EngineFactory builds engines wired to deterministic identifiers, clocks and
// randomness.
type EngineFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Seed        uint64
}

// EngineFactoryOption configures an EngineFactory instance.
type EngineFactoryOption func(*EngineFactory)

// NewEngineFactory constructs an EngineFactory with defaults.
func NewEngineFactory(opts ...EngineFactoryOption) *EngineFactory {
	factory := &EngineFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Seed:        1,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.IDGenerator = generator
	}
}

// WithSeed sets the seed of the engine random source.
func WithSeed(seed uint64) EngineFactoryOption {
	return func(factory *EngineFactory) {
		factory.Seed = seed
	}
}

// EngineDeps captures dependencies for constructing an engine. Zero values
// are filled from the factory: two courts, top-n selection, an in-memory
// store and a fresh bus.
type EngineDeps struct {
	Config application.EngineConfig
	Store  application.StateStore
	Bus    *events.Bus
	Logger *slog.Logger
}

// EngineSet is an engine together with the collaborators it was built with.
type EngineSet struct {
	Engine *application.Engine
	Store  application.StateStore
	Bus    *events.Bus
}

// NewEngine builds an engine using deps combined with the factory defaults.
func (f *EngineFactory) NewEngine(deps EngineDeps) EngineSet {
	cfg := deps.Config
	if len(cfg.CourtIDs) == 0 {
		cfg.CourtIDs = application.DefaultCourtIDs(2)
	}
	if cfg.Selection == "" {
		cfg.Selection = application.SelectTop
	}
	if cfg.Rand == nil {
		cfg.Rand = matchmaking.NewRand(f.Seed)
	}
	store := deps.Store
	if store == nil {
		store = application.NewSnapshotStore(memory.Open())
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NewBus(deps.Logger)
	}
	engine := application.NewEngineWithLogger(cfg, store, bus, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), deps.Logger)
	return EngineSet{Engine: engine, Store: store, Bus: bus}
}
