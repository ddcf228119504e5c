// Package cache persists the last authoritative account and profile in an
// embedded SQLite database so the client can render identity while
// offline. The cache is strictly a read-optimization: it is written
// best-effort after session mutations and never consulted by the request
// pipeline.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".

	"github.com/gotmail/gotmail-go/internal/api"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNoSnapshot indicates the cache holds no snapshot.
var ErrNoSnapshot = errors.New("cache: no snapshot")

// snapshotID is the primary key of the single snapshot row. The cache
// holds at most one identity, matching the one-session-per-device model.
const snapshotID = 1

// Snapshot is the cached identity: the last account and profile the
// service returned, plus when they were cached.
type Snapshot struct {
	Account  api.Account
	Profile  *api.UserProfile
	CachedAt time.Time
}

// Store is a SQLite-backed snapshot cache. Use ":memory:" as the path in
// tests.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the cache database at dbPath and
// applies pending schema migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: opening sqlite: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: enabling WAL: %w", err)
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

// runMigrations applies all pending schema migrations using the goose v3
// Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the FS root.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("cache: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("cache: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("cache: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied cache migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// SaveSnapshot stores account and profile as the current snapshot,
// replacing any previous one. A nil profile preserves the previously
// cached profile, since profile data is fetched lazily and an
// account-only update must not discard it.
func (s *Store) SaveSnapshot(ctx context.Context, account *api.Account, profile *api.UserProfile) error {
	if account == nil {
		return fmt.Errorf("cache: nil account")
	}

	accountJSON, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("cache: encoding account: %w", err)
	}

	var profileJSON []byte
	if profile != nil {
		profileJSON, err = json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("cache: encoding profile: %w", err)
		}
	}

	const query = `
		INSERT INTO snapshot (id, account, profile, cached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			account   = excluded.account,
			profile   = COALESCE(excluded.profile, snapshot.profile),
			cached_at = excluded.cached_at`

	if _, err := s.db.ExecContext(ctx, query,
		snapshotID, string(accountJSON), nullableString(profileJSON), time.Now().UTC().Unix(),
	); err != nil {
		return fmt.Errorf("cache: saving snapshot: %w", err)
	}

	return nil
}

// LoadSnapshot returns the cached snapshot, or ErrNoSnapshot when the
// cache is empty.
func (s *Store) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	const query = `SELECT account, profile, cached_at FROM snapshot WHERE id = ?`

	var (
		accountJSON string
		profileJSON sql.NullString
		cachedAt    int64
	)

	err := s.db.QueryRowContext(ctx, query, snapshotID).Scan(&accountJSON, &profileJSON, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}

	if err != nil {
		return nil, fmt.Errorf("cache: loading snapshot: %w", err)
	}

	var snap Snapshot
	snap.CachedAt = time.Unix(cachedAt, 0).UTC()

	if err := json.Unmarshal([]byte(accountJSON), &snap.Account); err != nil {
		return nil, fmt.Errorf("cache: decoding account: %w", err)
	}

	if profileJSON.Valid {
		var profile api.UserProfile
		if err := json.Unmarshal([]byte(profileJSON.String), &profile); err != nil {
			return nil, fmt.Errorf("cache: decoding profile: %w", err)
		}

		snap.Profile = &profile
	}

	return &snap, nil
}

// Clear drops the cached snapshot. Clearing an empty cache is not an
// error.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshot WHERE id = ?`, snapshotID); err != nil {
		return fmt.Errorf("cache: clearing snapshot: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// nullableString maps empty byte slices to NULL so COALESCE in the upsert
// can preserve the existing profile column.
func nullableString(b []byte) any {
	if len(b) == 0 {
		return nil
	}

	return string(b)
}
