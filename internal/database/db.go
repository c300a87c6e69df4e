// Package database provides SQLite connections tuned for append-only data.
package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

//go:embed schemas/*.sql
var schemaFS embed.FS

// DatabaseProfile selects durability PRAGMAs
type DatabaseProfile string

// ProfileLedger - fsync on every write, never shrinks, single writer
const ProfileLedger DatabaseProfile = "ledger"

// DB wraps a SQLite connection pool
type DB struct {
	conn    *sql.DB
	path    string
	profile DatabaseProfile
	name    string // Schema name and log label (e.g. "journal")
}

// Config holds database configuration
type Config struct {
	Path    string
	Profile DatabaseProfile
	Name    string
}

// New opens a database. Paths starting with "file:" are used verbatim
// (in-memory databases in tests); other paths get their directory created.
func New(cfg Config) (*DB, error) {
	if !strings.HasPrefix(cfg.Path, "file:") {
		absPath, err := filepath.Abs(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path to absolute: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		cfg.Path = absPath
	}

	if cfg.Profile == "" {
		cfg.Profile = ProfileLedger
	}
	if cfg.Profile != ProfileLedger {
		return nil, fmt.Errorf("unknown database profile %q for %s", cfg.Profile, cfg.Name)
	}

	conn, err := sql.Open("sqlite", buildConnectionString(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Name, err)
	}
	configureConnectionPool(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.Name, err)
	}

	return &DB{
		conn:    conn,
		path:    cfg.Path,
		profile: cfg.Profile,
		name:    cfg.Name,
	}, nil
}

// buildConnectionString creates the SQLite connection string with ledger PRAGMAs
func buildConnectionString(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	connStr := path + sep + "_pragma=journal_mode(WAL)"
	connStr += "&_pragma=synchronous(FULL)"
	connStr += "&_pragma=auto_vacuum(NONE)"
	connStr += "&_pragma=foreign_keys(1)"
	connStr += "&_pragma=busy_timeout(5000)"
	return connStr
}

func configureConnectionPool(conn *sql.DB) {
	// single writer keeps the append-only journal strictly ordered
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(24 * time.Hour)
	conn.SetConnMaxIdleTime(30 * time.Minute)
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Name returns the database name
func (db *DB) Name() string {
	return db.name
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Migrate applies the embedded schema named after the database
func (db *DB) Migrate() error {
	return ApplySchema(db.conn, db.name)
}

// Schema returns the embedded schema for a database name
func Schema(name string) (string, error) {
	data, err := schemaFS.ReadFile("schemas/" + name + "_schema.sql")
	if err != nil {
		return "", fmt.Errorf("no schema for database %q: %w", name, err)
	}
	return string(data), nil
}

// ApplySchema executes the embedded schema for name inside a transaction.
// Every statement is idempotent.
func ApplySchema(conn *sql.DB, name string) error {
	schema, err := Schema(name)
	if err != nil {
		return err
	}

	return WithTransaction(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(schema); err != nil {
			return fmt.Errorf("failed to apply %s schema: %w", name, err)
		}
		return nil
	})
}

// WithTransaction runs fn inside a transaction, rolling back on error or panic
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", p)
		} else if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = fmt.Errorf("transaction failed: %w (rollback also failed: %v)", err, rollbackErr)
			} else {
				err = fmt.Errorf("transaction failed: %w", err)
			}
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck pings the database and runs an integrity check
func (db *DB) HealthCheck(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed for %s: %w", db.name, err)
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check query failed for %s: %w", db.name, err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed for %s: %s", db.name, result)
	}
	return nil
}
