package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/agentdesk/internal/domain"
	_ "modernc.org/sqlite"
)

// DefaultProfile is used when the CLI is not told otherwise.
const DefaultProfile = "default"

// SQLiteStore persists credentials of one profile in a SQLite file.
type SQLiteStore struct {
	db      *sql.DB
	profile string
	mu      sync.Mutex
	now     func() time.Time
}

// NewSQLite opens (and creates) the credential database at dbPath.
func NewSQLite(dbPath, profile string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create credential directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping credential database: %w", err)
	}

	if profile == "" {
		profile = DefaultProfile
	}
	store := &SQLiteStore{db: db, profile: profile, now: time.Now}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	PRAGMA journal_mode = WAL;
	CREATE TABLE IF NOT EXISTS credentials (
		profile TEXT PRIMARY KEY,
		access_token TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		identity_json TEXT,
		stored_until INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Profile returns the profile this store reads and writes.
func (s *SQLiteStore) Profile() string { return s.profile }

// Set stores a token pair and identity, replacing the previous row.
func (s *SQLiteStore) Set(pair domain.TokenPair, id domain.Identity) {
	raw, err := encodeIdentity(id)
	if err != nil {
		slog.Warn("failed to encode identity", "profile", s.profile, "error", err)
		return
	}
	now := s.now()
	s.exec("set credentials", `
		INSERT INTO credentials (profile, access_token, refresh_token, identity_json, stored_until, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			identity_json = excluded.identity_json,
			stored_until = excluded.stored_until,
			updated_at = excluded.updated_at`,
		s.profile, pair.AccessToken, pair.RefreshToken, raw, now.Add(TokenTTL).Unix(), now.Unix())
}

// Get returns the token pair unless it expired.
func (s *SQLiteStore) Get() (domain.Credentials, bool) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT access_token, refresh_token, stored_until FROM credentials WHERE profile = ?`, s.profile)

	var access, refresh string
	var storedUntil int64
	if err := row.Scan(&access, &refresh, &storedUntil); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("failed to read credentials", "profile", s.profile, "error", err)
		}
		return domain.Credentials{}, false
	}
	until := time.Unix(storedUntil, 0)
	if !s.now().Before(until) {
		return domain.Credentials{}, false
	}
	return credentialsFor(access, refresh, until)
}

// Identity returns the stored identity.
func (s *SQLiteStore) Identity() (domain.Identity, bool) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT identity_json FROM credentials WHERE profile = ?`, s.profile)

	var raw sql.NullString
	if err := row.Scan(&raw); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("failed to read identity", "profile", s.profile, "error", err)
		}
		return domain.Identity{}, false
	}
	if !raw.Valid || raw.String == "" {
		return domain.Identity{}, false
	}
	id, err := decodeIdentity(raw.String)
	if err != nil {
		slog.Warn("ignoring stored identity", "profile", s.profile, "error", err)
		return domain.Identity{}, false
	}
	return id, true
}

// UpdateTokens replaces the token pair of an existing row.
func (s *SQLiteStore) UpdateTokens(pair domain.TokenPair) {
	now := s.now()
	s.exec("update tokens", `
		INSERT INTO credentials (profile, access_token, refresh_token, stored_until, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(profile) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			stored_until = excluded.stored_until,
			updated_at = excluded.updated_at`,
		s.profile, pair.AccessToken, pair.RefreshToken, now.Add(TokenTTL).Unix(), now.Unix())
}

// Clear deletes the profile row.
func (s *SQLiteStore) Clear() {
	s.exec("clear credentials", `DELETE FROM credentials WHERE profile = ?`, s.profile)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close credential database: %w", err)
	}
	return nil
}

// exec runs a write, retrying with exponential backoff while the database is locked.
func (s *SQLiteStore) exec(op, query string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		_, err := s.db.ExecContext(context.Background(), query, args...)
		if err == nil {
			return
		}
		if isConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("credential store locked, retrying", "op", op, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		slog.Error("credential store write failed", "op", op, "profile", s.profile, "error", err)
		return
	}
}

// isConflict reports SQLITE_BUSY and "database is locked" errors.
func isConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
