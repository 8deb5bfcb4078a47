package cachestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// SetupSchema creates the cache table and its indexes. It is idempotent and
// safe to call on an already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaEntries = `
CREATE TABLE IF NOT EXISTS mml_cache (
    cache_key TEXT PRIMARY KEY,
    namespace TEXT NOT NULL,
    value TEXT NOT NULL,
    expires_at INTEGER NOT NULL
);
`
		indexNamespace = `CREATE INDEX IF NOT EXISTS mml_cache_namespace ON mml_cache (namespace);`
		indexExpiry    = `CREATE INDEX IF NOT EXISTS mml_cache_expires_at ON mml_cache (expires_at);`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// Commit runs first on success, making the rollback a no-op.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaEntries); err != nil {
		return fmt.Errorf("could not create schema: %w", err)
	}

	if _, err = tx.Exec(indexNamespace); err != nil {
		return fmt.Errorf("could not create namespace index: %w", err)
	}

	if _, err = tx.Exec(indexExpiry); err != nil {
		return fmt.Errorf("could not create expiry index: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// SQLite is a Backend stored in a SQLite table. Expired rows are invisible
// to Get and are removed by PruneExpired.
type SQLite struct {
	db                  *sql.DB
	stmtGet             *sql.Stmt
	stmtSet             *sql.Stmt
	stmtDeleteKey       *sql.Stmt
	stmtDeleteNamespace *sql.Stmt
	stmtPruneExpired    *sql.Stmt
	stmtStats           *sql.Stmt
	now                 func() time.Time
	logger              *slog.Logger
}

// NewSQLite prepares the statements of the backend. SetupSchema must have
// been called on db first.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	stmtGet, err := db.Prepare(`SELECT value FROM mml_cache WHERE cache_key = ? AND expires_at > ?;`)
	if err != nil {
		return nil, err
	}

	stmtSet, err := db.Prepare(`INSERT INTO mml_cache (cache_key, namespace, value, expires_at) VALUES (?, ?, ?, ?) ON CONFLICT(cache_key) DO UPDATE SET namespace = excluded.namespace, value = excluded.value, expires_at = excluded.expires_at;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteKey, err := db.Prepare(`DELETE FROM mml_cache WHERE cache_key = ?;`)
	if err != nil {
		return nil, err
	}

	stmtDeleteNamespace, err := db.Prepare(`DELETE FROM mml_cache WHERE namespace = ?;`)
	if err != nil {
		return nil, err
	}

	stmtPruneExpired, err := db.Prepare(`DELETE FROM mml_cache WHERE expires_at <= ?;`)
	if err != nil {
		return nil, err
	}

	stmtStats, err := db.Prepare(`SELECT namespace, COUNT(*), coalesce(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0), coalesce(SUM(length(value)), 0) FROM mml_cache GROUP BY namespace ORDER BY namespace;`)
	if err != nil {
		return nil, err
	}

	return &SQLite{
		db:                  db,
		stmtGet:             stmtGet,
		stmtSet:             stmtSet,
		stmtDeleteKey:       stmtDeleteKey,
		stmtDeleteNamespace: stmtDeleteNamespace,
		stmtPruneExpired:    stmtPruneExpired,
		stmtStats:           stmtStats,
		now:                 time.Now,
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases the prepared statements. The database itself stays open.
func (s *SQLite) Close() {
	_ = s.stmtGet.Close()
	_ = s.stmtSet.Close()
	_ = s.stmtDeleteKey.Close()
	_ = s.stmtDeleteNamespace.Close()
	_ = s.stmtPruneExpired.Close()
	_ = s.stmtStats.Close()
}

// SetLogger sets the logger for the backend. By default, all logs are discarded.
func (s *SQLite) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Get returns the value under key if it has not expired.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.stmtGet.QueryRowContext(ctx, key, s.now().UnixMilli()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, Unavailable("get", err)
	}
	return value, true, nil
}

// Set inserts or replaces the value under key.
func (s *SQLite) Set(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ns, _ := SplitKey(key)
	expires := s.now().Add(normalizeTTL(ttl)).UnixMilli()
	if _, err := s.stmtSet.ExecContext(ctx, key, ns, value, expires); err != nil {
		return false, Unavailable("set", err)
	}
	return true, nil
}

// Purge deletes one key or every row of a namespace.
func (s *SQLite) Purge(ctx context.Context, scope Scope) error {
	stmt := s.stmtDeleteKey
	if scope.Kind == ScopeNamespace {
		stmt = s.stmtDeleteNamespace
	}
	res, err := stmt.ExecContext(ctx, scope.Value)
	if err != nil {
		return Unavailable("purge", err)
	}
	if scope.Kind == ScopeNamespace {
		rowsAffected, _ := res.RowsAffected()
		s.logger.InfoContext(ctx, "Namespace purged",
			slog.String("namespace", scope.Value),
			slog.Int64("entries_removed", rowsAffected),
		)
	}
	return nil
}
