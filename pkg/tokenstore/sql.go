package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	// Registered drivers: "pgx" for PostgreSQL, "sqlite" for SQLite.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// SQLStore keeps entries in a SQL table. Schema (PostgreSQL):
//
//	CREATE TABLE dashboard_storage (
//	    client_id  VARCHAR(64) NOT NULL,
//	    key        VARCHAR(64) NOT NULL,
//	    value      TEXT NOT NULL,
//	    expires_at TIMESTAMP WITH TIME ZONE,
//	    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
//	    PRIMARY KEY (client_id, key)
//	);
//
// EnsureSchema creates the table for the configured dialect.
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	logger    *slog.Logger
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// SQLDialect selects placeholder and upsert syntax.
type SQLDialect int

const (
	// DialectPostgreSQL uses $n placeholders. Driver name "pgx".
	DialectPostgreSQL SQLDialect = iota
	// DialectSQLite uses ? placeholders. Driver name "sqlite".
	DialectSQLite
)

// DriverName returns the database/sql driver registered for the dialect.
func (d SQLDialect) DriverName() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "pgx"
}

// ParseDialect maps a configuration name to a dialect.
func ParseDialect(name string) (SQLDialect, error) {
	switch name {
	case "postgres", "postgresql", "pgx":
		return DialectPostgreSQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("tokenstore: unknown sql dialect %q", name)
	}
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName       string
	dialect         SQLDialect
	cleanupInterval time.Duration
	logger          *slog.Logger
}

// WithSQLTableName sets the table name.
// Default: "dashboard_storage".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect.
// Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// WithSQLCleanupInterval sets how often expired rows are deleted.
// Zero (the default) disables the cleanup loop.
func WithSQLCleanupInterval(d time.Duration) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.cleanupInterval = d
	}
}

// WithSQLLogger sets the logger used by the cleanup loop.
// Default: slog.Default().
func WithSQLLogger(logger *slog.Logger) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// OpenSQL opens a database handle for the dialect's driver.
func OpenSQL(dialect SQLDialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect.DriverName(), err)
	}
	return db, nil
}

// NewSQLStore creates a SQL-backed store.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName: "dashboard_storage",
		dialect:   DialectPostgreSQL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &SQLStore{
		db:        db,
		tableName: cfg.tableName,
		dialect:   cfg.dialect,
		logger:    cfg.logger,
		done:      make(chan struct{}),
	}
	if cfg.cleanupInterval > 0 {
		go store.cleanupLoop(cfg.cleanupInterval)
	}
	return store
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// EnsureSchema creates the storage table if it does not exist.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectSQLite:
		query = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			client_id  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			expires_at TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (client_id, key)
		)`, s.tableName)
	default:
		query = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			client_id  VARCHAR(64) NOT NULL,
			key        VARCHAR(64) NOT NULL,
			value      TEXT NOT NULL,
			expires_at TIMESTAMP WITH TIME ZONE,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (client_id, key)
		)`, s.tableName)
	}

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", s.tableName, err)
	}
	return nil
}

// Get returns the value for clientID/key if present and not expired.
func (s *SQLStore) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrStoreClosed
	}
	if clientID == "" {
		return "", false, ErrEmptyClientID
	}

	query := fmt.Sprintf(
		"SELECT value, expires_at FROM %s WHERE client_id = %s AND key = %s",
		s.tableName, s.placeholder(1), s.placeholder(2),
	)

	var (
		value     string
		expiresAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, clientID, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expiresAt.Valid && expired(expiresAt.Time, time.Now()) {
		return "", false, nil
	}
	return value, true, nil
}

// Set upserts value for clientID/key.
func (s *SQLStore) Set(ctx context.Context, clientID, key, value string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if clientID == "" {
		return ErrEmptyClientID
	}

	var query string
	switch s.dialect {
	case DialectSQLite:
		query = fmt.Sprintf(`
			INSERT INTO %s (client_id, key, value, expires_at, updated_at)
			VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT (client_id, key) DO UPDATE SET
				value = excluded.value,
				expires_at = excluded.expires_at,
				updated_at = CURRENT_TIMESTAMP
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			INSERT INTO %s (client_id, key, value, expires_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (client_id, key) DO UPDATE SET
				value = EXCLUDED.value,
				expires_at = EXCLUDED.expires_at,
				updated_at = NOW()
		`, s.tableName)
	}

	exp := sql.NullTime{Time: expiresAt, Valid: !expiresAt.IsZero()}
	_, err := s.db.ExecContext(ctx, query, clientID, key, value, exp)
	return err
}

// Delete removes clientID/key.
func (s *SQLStore) Delete(ctx context.Context, clientID, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if clientID == "" {
		return ErrEmptyClientID
	}

	query := fmt.Sprintf(
		"DELETE FROM %s WHERE client_id = %s AND key = %s",
		s.tableName, s.placeholder(1), s.placeholder(2),
	)
	_, err := s.db.ExecContext(ctx, query, clientID, key)
	return err
}

// Close stops the cleanup loop. The *sql.DB is owned by the caller.
func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
	})
	return nil
}

// DeleteExpired removes rows whose expiry has passed and returns how many
// were removed.
func (s *SQLStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE expires_at IS NOT NULL AND expires_at < %s",
		s.tableName, s.placeholder(1),
	)
	res, err := s.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *SQLStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := s.DeleteExpired(ctx)
			cancel()
			if err != nil {
				s.logger.Warn("expired entry cleanup failed", "table", s.tableName, "error", err)
			} else if n > 0 {
				s.logger.Debug("expired entries removed", "table", s.tableName, "count", n)
			}
		case <-s.done:
			return
		}
	}
}
