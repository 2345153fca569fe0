// Package events delivers engine notifications to independent subscribers.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/court-rotation/internal/domain"
	"github.com/example/court-rotation/internal/logging"
)

// Kind names a notification.
type Kind string

const (
	PlayerAdded    Kind = "player:added"
	PlayerUpdated  Kind = "player:updated"
	PlayersUpdated Kind = "players:updated"
	CourtUpdated   Kind = "court:updated"
	GameStarted    Kind = "game:started"
	GameCompleted  Kind = "game:completed"
	EngineFailure  Kind = "engine:failure"
)

// Failure describes an operation that was rejected by the engine.
type Failure struct {
	Operation string
	ErrorKind string
	Message   string
}

// Event carries the entities affected by a change. Only the fields relevant
// to Kind are set.
type Event struct {
	Kind    Kind
	At      time.Time
	Player  *domain.Player
	Players []domain.Player
	Court   *domain.Court
	Game    *domain.GameRecord
	Failure *Failure
}

// Handler reacts to an event. A returned error is logged and does not stop
// delivery to other handlers.
type Handler func(ctx context.Context, event Event) error

// Publisher is the outbound side used by the engine.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type subscription struct {
	id      int
	name    string
	kinds   map[Kind]struct{}
	handler Handler
}

func (s subscription) accepts(kind Kind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers run in
// subscription order on the publishing goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID int
	logger *slog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Subscribe registers handler for the given kinds, or for every kind when
// none are listed. The returned function removes the subscription.
func (b *Bus) Subscribe(name string, handler Handler, kinds ...Kind) (unsubscribe func()) {
	sub := subscription{name: name, handler: handler}
	if len(kinds) > 0 {
		sub.kinds = make(map[Kind]struct{}, len(kinds))
		for _, kind := range kinds {
			sub.kinds[kind] = struct{}{}
		}
	}

	b.mu.Lock()
	b.nextID++
	sub.id = b.nextID
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(sub.id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers event to every matching subscriber. Failures, including
// panics, are isolated per handler and returned joined.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	subs := make([]subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.accepts(event.Kind) {
			subs = append(subs, sub)
		}
	}
	b.mu.RUnlock()

	var errs []error
	for _, sub := range subs {
		if err := b.deliver(ctx, sub, event); err != nil {
			b.loggerFor(ctx).ErrorContext(ctx, "event handler failed",
				"subscriber", sub.name,
				"event", string(event.Kind),
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bus) deliver(ctx context.Context, sub subscription, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %s panicked: %v", sub.name, r)
		}
	}()
	return sub.handler(ctx, event)
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return b.logger
}
