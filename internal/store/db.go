// Package store persists people, groups and notification state in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/tartampluch/birthday-manager/internal/config"
)

// =============================================================================
// Database Connection
// =============================================================================

// DB wraps sql.DB with the birthday-manager queries.
type DB struct {
	*sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Config holds database configuration options.
type Config struct {
	Path            string        // Path to SQLite database file, ":memory:" for tests
	MaxOpenConns    int           // SQLite allows a single writer, keep this at 1
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns sensible defaults for SQLite.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
	}
}

// Open creates a new database connection with SQLite-optimized settings.
//
// The caller is responsible for calling Close() when done.
func Open(cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(config.LogKeyComponent, config.CompStore)

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrDBOpen, err)
		}
	}

	// _journal_mode=WAL: concurrent readers while writing
	// _foreign_keys=ON: cascade person_groups on delete
	// _busy_timeout=5000: wait up to 5s if the database is locked
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000", cfg.Path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBOpen, err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrDBPing, err)
	}

	logger.Info(config.MsgDBConnected,
		slog.String(config.LogKeyPath, cfg.Path),
	)

	return &DB{DB: db, logger: logger, now: time.Now}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.logger.Info(config.MsgDBClosing)
	return db.DB.Close()
}

// Health checks if the database connection is healthy.
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, config.DBPingTimeout)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("%s: %w", config.ErrDBQuery, err)
	}
	return nil
}

// =============================================================================
// Migrations
// =============================================================================

// Migrate applies pending forward-only migrations and returns how many ran.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	db.logger.Info(config.MsgMigrations)

	count := 0
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				applied_at TEXT NOT NULL DEFAULT (datetime('now'))
			)
		`); err != nil {
			return fmt.Errorf("create schema_migrations table: %w", err)
		}

		applied := make(map[int]bool)
		rows, err := tx.QueryContext(ctx, "SELECT version FROM schema_migrations")
		if err != nil {
			return fmt.Errorf("query applied migrations: %w", err)
		}
		for rows.Next() {
			var version int
			if err := rows.Scan(&version); err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan migration version: %w", err)
			}
			applied[version] = true
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate migration versions: %w", err)
		}

		for version := 1; version <= len(migrationsSQL); version++ {
			if applied[version] {
				continue
			}
			db.logger.Info(config.MsgMigrationApply, slog.Int(config.LogKeyVersion, version))

			if _, err := tx.ExecContext(ctx, migrationsSQL[version]); err != nil {
				return fmt.Errorf("execute migration %d: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
				return fmt.Errorf("record migration %d: %w", version, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", config.ErrDBMigrate, err)
	}

	db.logger.Info(config.MsgMigrationsDone,
		slog.Int(config.LogKeyApplied, count),
		slog.Int(config.LogKeyTotal, len(migrationsSQL)),
	)
	return count, nil
}

// =============================================================================
// Transaction Helpers
// =============================================================================

// WithTx executes fn within a transaction.
// If fn returns an error the transaction is rolled back, otherwise committed.
func (db *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalid is wrapped by input validation failures.
	ErrInvalid = errors.New("invalid record")
)

// translateErr maps driver errors onto the package sentinels.
func translateErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se sqlite3.Error
	if errors.As(err, &se) && (se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// =============================================================================
// Helper Functions
// =============================================================================

func (db *DB) timestamp() string {
	return db.now().UTC().Format(time.RFC3339)
}

// parseTimestamp reads TEXT timestamps written either by us (RFC3339)
// or by SQLite defaults ("2006-01-02 15:04:05").
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
