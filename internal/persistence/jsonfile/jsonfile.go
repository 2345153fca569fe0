// Package jsonfile stores the rotation snapshot as a single JSON document on
// disk. The document is wrapped in an envelope carrying a BLAKE2b checksum of
// the payload so truncated or hand edited files are detected on load.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/example/court-rotation/internal/persistence"
)

// formatVersion is bumped when the envelope layout changes.
const formatVersion = 1

type envelope struct {
	Version  int             `json:"version"`
	SavedAt  time.Time       `json:"savedAt"`
	Checksum string          `json:"checksum"`
	State    json.RawMessage `json:"state"`
}

// Store is a file backed persistence.SnapshotRepository.
type Store struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// Open returns a Store writing to path. The parent directory is created when
// missing.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("jsonfile: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("jsonfile: create directory: %w", err)
	}
	return &Store{path: path, now: time.Now}, nil
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Close is a no-op; every write is flushed before SaveSnapshot returns.
func (s *Store) Close() error {
	return nil
}

// LoadSnapshot reads and verifies the snapshot file.
func (s *Store) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.Snapshot{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Snapshot{}, fmt.Errorf("jsonfile: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return persistence.Snapshot{}, persistence.ErrNotFound
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("%w: decode envelope: %v", persistence.ErrCorrupt, err)
	}
	if env.Version != formatVersion {
		return persistence.Snapshot{}, fmt.Errorf("%w: unsupported version %d", persistence.ErrCorrupt, env.Version)
	}
	if sum := checksum(env.State); sum != env.Checksum {
		return persistence.Snapshot{}, fmt.Errorf("%w: checksum mismatch", persistence.ErrCorrupt)
	}

	var snapshot persistence.Snapshot
	if err := json.Unmarshal(env.State, &snapshot); err != nil {
		return persistence.Snapshot{}, fmt.Errorf("%w: decode state: %v", persistence.ErrCorrupt, err)
	}
	if snapshot.Courts == nil {
		snapshot.Courts = map[string]persistence.CourtRecord{}
	}
	return snapshot, nil
}

// SaveSnapshot writes the snapshot through a temporary file and renames it
// into place.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	state, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("jsonfile: encode state: %w", err)
	}
	data, err := json.MarshalIndent(envelope{
		Version:  formatVersion,
		SavedAt:  s.now().UTC(),
		Checksum: checksum(state),
		State:    state,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("jsonfile: replace %s: %w", s.path, err)
	}
	return nil
}

// DeleteSnapshot removes the snapshot file. A missing file is not an error.
func (s *Store) DeleteSnapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("jsonfile: remove %s: %w", s.path, err)
	}
	return nil
}

func checksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
