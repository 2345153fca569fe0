package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by NotFoundError.
	ErrNotFound = errors.New("domain: not found")
	// ErrCapacity is matched by CapacityError.
	ErrCapacity = errors.New("domain: court is full")
	// ErrInsufficientPlayers is matched by InsufficientPlayersError.
	ErrInsufficientPlayers = errors.New("domain: insufficient players")
	// ErrInvalidState is matched by InvalidStateError.
	ErrInvalidState = errors.New("domain: invalid state")
	// ErrPersistence is matched by PersistenceError.
	ErrPersistence = errors.New("domain: persistence failure")
)

// NotFoundError reports an unknown player or court identifier.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// CapacityError is returned when a fifth player is added to a court.
type CapacityError struct {
	CourtID  string
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("court %q already holds %d players", e.CourtID, e.Capacity)
}

func (e *CapacityError) Is(target error) bool { return target == ErrCapacity }

// InsufficientPlayersError is returned when matchmaking cannot find enough
// eligible players to form a game.
type InsufficientPlayersError struct {
	Required  int
	Available int
}

func (e *InsufficientPlayersError) Error() string {
	return fmt.Sprintf("need %d eligible players, have %d", e.Required, e.Available)
}

func (e *InsufficientPlayersError) Is(target error) bool { return target == ErrInsufficientPlayers }

// InvalidStateError describes an operation attempted against an entity in the
// wrong lifecycle state.
type InvalidStateError struct {
	Entity    string
	ID        string
	Operation string
	State     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %q in state %s", e.Operation, e.Entity, e.ID, e.State)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// PersistenceError wraps a failed load or save of the engine state.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }
