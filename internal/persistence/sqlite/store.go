// Package sqlite stores the rotation snapshot in normalized SQLite tables.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/example/court-rotation/internal/persistence"
	"github.com/example/court-rotation/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	slotActive = "active"
	slotQueue  = "queue"
	teamA      = "A"
	teamB      = "B"
)

// Store implements persistence.SnapshotRepository using SQLite. Each save
// replaces the previous snapshot inside one transaction.
type Store struct {
	pool   *ConnectionPool
	retry  *RetryHelper
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to the database described by config and applies pending
// migrations.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pool, err := NewConnectionPool(config)
	if err != nil {
		return nil, err
	}
	store := &Store{
		pool:   pool,
		retry:  NewRetryHelperWithLogger(DefaultRetryConfig(), logger),
		logger: logger,
		now:    time.Now,
	}
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	files, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite: open migrations: %w", err)
	}
	manager := migration.NewMigrationManager(migration.NewFileScanner(files), migration.NewSQLiteExecutor(s.pool.DB()), s.logger)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LoadSnapshot reads the last saved snapshot.
func (s *Store) LoadSnapshot(ctx context.Context) (persistence.Snapshot, error) {
	var snapshot persistence.Snapshot
	err := s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var savedAt string
		if err := tx.QueryRowContext(ctx, `SELECT saved_at FROM snapshot_meta WHERE id = 1`).Scan(&savedAt); err != nil {
			return err
		}

		players, err := s.loadPlayers(ctx, tx)
		if err != nil {
			return err
		}
		courts, err := s.loadCourts(ctx, tx)
		if err != nil {
			return err
		}
		games, err := s.loadGames(ctx, tx)
		if err != nil {
			return err
		}
		snapshot = persistence.Snapshot{Players: players, Courts: courts, GameHistory: games}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Snapshot{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Snapshot{}, mapError(err)
	}
	return snapshot, nil
}

// SaveSnapshot replaces the stored snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot persistence.Snapshot) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if err := s.deleteAll(ctx, tx); err != nil {
				return err
			}
			if err := s.insertPlayers(ctx, tx, snapshot.Players); err != nil {
				return err
			}
			if err := s.insertCourts(ctx, tx, snapshot.Courts); err != nil {
				return err
			}
			if err := s.insertGames(ctx, tx, snapshot.GameHistory); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO snapshot_meta (id, saved_at) VALUES (1, ?)`, formatTime(s.now()))
			return err
		})
	})
}

// DeleteSnapshot removes every stored row.
func (s *Store) DeleteSnapshot(ctx context.Context) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return s.deleteAll(ctx, tx)
		})
	})
}

func (s *Store) deleteAll(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"game_players", "game_records", "court_slots", "courts", "players", "snapshot_meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) insertPlayers(ctx context.Context, tx *sql.Tx, players []persistence.PlayerRecord) error {
	for i, p := range players {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO players (id, position, name, status, court_id, games_played, last_game_time, skill_level)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, i, p.Name, p.Status, nullString(p.CourtID), p.GamesPlayed, nullTime(p.LastGameTime), p.SkillLevel)
		if err != nil {
			return fmt.Errorf("insert player %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *Store) insertCourts(ctx context.Context, tx *sql.Tx, courts map[string]persistence.CourtRecord) error {
	for id, c := range courts {
		if c.ID == "" {
			c.ID = id
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO courts (id, status, start_time, started_from_queue)
			VALUES (?, ?, ?, ?)
		`, c.ID, c.Status, nullTime(c.StartTime), c.StartedFromQueue)
		if err != nil {
			return fmt.Errorf("insert court %s: %w", c.ID, err)
		}
		if err := s.insertSlots(ctx, tx, c.ID, slotActive, c.Players); err != nil {
			return err
		}
		if err := s.insertSlots(ctx, tx, c.ID, slotQueue, c.Queue); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertSlots(ctx context.Context, tx *sql.Tx, courtID, kind string, playerIDs []string) error {
	for i, playerID := range playerIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO court_slots (court_id, kind, slot, player_id) VALUES (?, ?, ?, ?)
		`, courtID, kind, i, playerID)
		if err != nil {
			return fmt.Errorf("insert %s slot %d of %s: %w", kind, i, courtID, err)
		}
	}
	return nil
}

func (s *Store) insertGames(ctx context.Context, tx *sql.Tx, games []persistence.GameRecord) error {
	for i, g := range games {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO game_records (id, position, played_at, court_id) VALUES (?, ?, ?, ?)
		`, g.ID, i, formatTime(g.Timestamp), g.CourtID)
		if err != nil {
			return fmt.Errorf("insert game %s: %w", g.ID, err)
		}
		for team, ids := range map[string][]string{teamA: g.TeamA, teamB: g.TeamB} {
			for slot, playerID := range ids {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO game_players (game_id, team, slot, player_id) VALUES (?, ?, ?, ?)
				`, g.ID, team, slot, playerID)
				if err != nil {
					return fmt.Errorf("insert game %s player %s: %w", g.ID, playerID, err)
				}
			}
		}
	}
	return nil
}

func (s *Store) loadPlayers(ctx context.Context, tx *sql.Tx) ([]persistence.PlayerRecord, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, status, court_id, games_played, last_game_time, skill_level
		FROM players
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []persistence.PlayerRecord
	for rows.Next() {
		var (
			p        persistence.PlayerRecord
			courtID  sql.NullString
			lastGame sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &courtID, &p.GamesPlayed, &lastGame, &p.SkillLevel); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.CourtID = courtID.String
		if p.LastGameTime, err = parseNullTime(lastGame); err != nil {
			return nil, fmt.Errorf("player %s: %w", p.ID, err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *Store) loadCourts(ctx context.Context, tx *sql.Tx) (map[string]persistence.CourtRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, status, start_time, started_from_queue FROM courts`)
	if err != nil {
		return nil, fmt.Errorf("query courts: %w", err)
	}
	courts := make(map[string]persistence.CourtRecord)
	for rows.Next() {
		var (
			c         persistence.CourtRecord
			startTime sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Status, &startTime, &c.StartedFromQueue); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan court: %w", err)
		}
		if c.StartTime, err = parseNullTime(startTime); err != nil {
			rows.Close()
			return nil, fmt.Errorf("court %s: %w", c.ID, err)
		}
		c.Players = []string{}
		c.Queue = []string{}
		courts[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	slots, err := tx.QueryContext(ctx, `SELECT court_id, kind, player_id FROM court_slots ORDER BY court_id, kind, slot`)
	if err != nil {
		return nil, fmt.Errorf("query court slots: %w", err)
	}
	defer slots.Close()
	for slots.Next() {
		var courtID, kind, playerID string
		if err := slots.Scan(&courtID, &kind, &playerID); err != nil {
			return nil, fmt.Errorf("scan court slot: %w", err)
		}
		c := courts[courtID]
		if kind == slotActive {
			c.Players = append(c.Players, playerID)
		} else {
			c.Queue = append(c.Queue, playerID)
		}
		courts[courtID] = c
	}
	return courts, slots.Err()
}

func (s *Store) loadGames(ctx context.Context, tx *sql.Tx) ([]persistence.GameRecord, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, played_at, court_id FROM game_records ORDER BY position ASC`)
	if err != nil {
		return nil, fmt.Errorf("query games: %w", err)
	}
	var games []persistence.GameRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			g        persistence.GameRecord
			playedAt string
		)
		if err := rows.Scan(&g.ID, &playedAt, &g.CourtID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan game: %w", err)
		}
		if g.Timestamp, err = time.Parse(time.RFC3339Nano, playedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("game %s: %w", g.ID, err)
		}
		index[g.ID] = len(games)
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	members, err := tx.QueryContext(ctx, `SELECT game_id, team, player_id FROM game_players ORDER BY game_id, team, slot`)
	if err != nil {
		return nil, fmt.Errorf("query game players: %w", err)
	}
	defer members.Close()
	for members.Next() {
		var gameID, team, playerID string
		if err := members.Scan(&gameID, &team, &playerID); err != nil {
			return nil, fmt.Errorf("scan game player: %w", err)
		}
		g := &games[index[gameID]]
		if team == teamA {
			g.TeamA = append(g.TeamA, playerID)
		} else {
			g.TeamB = append(g.TeamB, playerID)
		}
	}
	return games, members.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
