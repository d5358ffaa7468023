// Package store persists the tool's small local state: selected
// avatar, per-avatar notes, and plant timers.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"chronicler/pkg/plants"
)

const schema = `
	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		avatar     TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plants (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		description TEXT NOT NULL,
		seed_name   TEXT NOT NULL,
		seed_type   INTEGER NOT NULL,
		environment TEXT NOT NULL,
		planted_at  TEXT NOT NULL
	);
`

// Store is the sqlite-backed state database. The schema is created on
// open; all statements are context-bound.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing store schema: %w", err)
	}

	logger.Debug("store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Setting returns a stored value, or "" when the key is unset.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting stores a value under key, replacing any previous one.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// Note returns an avatar's note and when it was last written. A
// missing note is an empty body with the zero time.
func (s *Store) Note(ctx context.Context, avatar string) (string, time.Time, error) {
	var body, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT body, updated_at FROM notes WHERE avatar = ?`, avatar).
		Scan(&body, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("reading note for %s: %w", avatar, err)
	}

	at, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		return body, time.Time{}, nil
	}
	return body, at, nil
}

// SetNote stores an avatar's note. An empty body removes it.
func (s *Store) SetNote(ctx context.Context, avatar, body string) error {
	if body == "" {
		_, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE avatar = ?`, avatar)
		if err != nil {
			return fmt.Errorf("removing note for %s: %w", avatar, err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes (avatar, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(avatar) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		avatar, body, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing note for %s: %w", avatar, err)
	}
	return nil
}

// AddPlant stores a plant timer and returns its assigned id.
func (s *Store) AddPlant(ctx context.Context, p plants.Plant) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO plants (description, seed_name, seed_type, environment, planted_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.Description, p.SeedName, p.SeedType, p.Environment.String(),
		p.PlantedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("storing plant: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storing plant: %w", err)
	}
	return id, nil
}

// Plants returns every stored plant timer in insertion order.
func (s *Store) Plants(ctx context.Context) ([]plants.Plant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, seed_name, seed_type, environment, planted_at
		 FROM plants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	defer rows.Close()

	var list []plants.Plant
	for rows.Next() {
		var p plants.Plant
		var env, planted string
		if err := rows.Scan(&p.ID, &p.Description, &p.SeedName, &p.SeedType, &env, &planted); err != nil {
			return nil, fmt.Errorf("reading plant row: %w", err)
		}
		if p.Environment, err = plants.ParseEnvironment(env); err != nil {
			return nil, fmt.Errorf("plant %d: %w", p.ID, err)
		}
		if p.PlantedAt, err = time.Parse(time.RFC3339, planted); err != nil {
			return nil, fmt.Errorf("plant %d: bad planted_at %q: %w", p.ID, planted, err)
		}
		p.PlantedAt = p.PlantedAt.Local()
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	return list, nil
}

// RemovePlant deletes a plant timer by id.
func (s *Store) RemovePlant(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing plant %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing plant %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("no plant with id %d", id)
	}
	return nil
}
