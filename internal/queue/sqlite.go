package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStorage persists values in a kv_store table of a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStorage opens (creating if needed) the database at path and
// initializes the schema.
func OpenSQLiteStorage(path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Transactions start with BEGIN IMMEDIATE so a read-modify-write takes
	// the write lock before reading; other processes wait on busy_timeout.
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps WAL pragmas and busy handling simple.
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db, path: path}
	if err := s.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// initializeSchema creates all tables and sets pragmas
func (s *SQLiteStorage) initializeSchema() error {
	for _, pragma := range PragmaStatements() {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}

	for _, schema := range AllTableSchemas() {
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return s.recordSchemaVersion()
}

// recordSchemaVersion records the current schema version in the database
func (s *SQLiteStorage) recordSchemaVersion() error {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", SchemaVersion).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check schema version: %w", err)
	}

	if count > 0 {
		return nil
	}

	_, err = s.db.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		SchemaVersion,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert schema version: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the current schema version from the database
func (s *SQLiteStorage) GetSchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Path returns the filesystem path to the database file
func (s *SQLiteStorage) Path() string {
	return s.path
}

func (s *SQLiteStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

const upsertSQL = `
	INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

func (s *SQLiteStorage) Save(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertSQL, key, data, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside an immediate transaction, so concurrent updates
// from other connections or processes are serialized.
func (s *SQLiteStorage) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin update of %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current []byte
	err = tx.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertSQL, key, next, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	return nil
}

// TryLock takes an flock on a file next to the database.
func (s *SQLiteStorage) TryLock(name string) (func(), bool, error) {
	return tryFileLock(s.path + "." + name + ".lock")
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
