package persistence

import "context"

// SnapshotRepository stores the single rotation snapshot.
type SnapshotRepository interface {
	// LoadSnapshot returns ErrNotFound when nothing has been saved.
	LoadSnapshot(ctx context.Context) (Snapshot, error)
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	DeleteSnapshot(ctx context.Context) error
}
