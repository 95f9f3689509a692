package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore keeps settings in an SQLite database file
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// NewSQLiteStore opens (creating if needed) the settings database at path
// and brings its schema up to date.
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ensureDBDir(path); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", addSQLiteParams(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open settings database: %w", err)
	}

	m, err := newMigrator(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := m.run(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path, logger: logger}, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) get(ctx context.Context, namespace, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", newError("get", namespace, key, ErrNotFound)
	}
	if err != nil {
		return "", newError("get", namespace, key, err)
	}
	return value, nil
}

func (s *SQLiteStore) set(ctx context.Context, namespace, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, time.Now().Unix(),
	)
	if err != nil {
		return newError("set", namespace, key, err)
	}
	return nil
}

// GetString implements Store
func (s *SQLiteStore) GetString(ctx context.Context, namespace, key string) (string, error) {
	return s.get(ctx, namespace, key)
}

// SetString implements Store
func (s *SQLiteStore) SetString(ctx context.Context, namespace, key, value string) error {
	return s.set(ctx, namespace, key, value)
}

// GetUint64 implements Store
func (s *SQLiteStore) GetUint64(ctx context.Context, namespace, key string) (uint64, error) {
	v, err := s.get(ctx, namespace, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, newError("get", namespace, key, err)
	}
	return n, nil
}

// SetUint64 implements Store
func (s *SQLiteStore) SetUint64(ctx context.Context, namespace, key string, value uint64) error {
	return s.set(ctx, namespace, key, strconv.FormatUint(value, 10))
}

// Close implements Store
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ensureDBDir creates the directory holding the database file
func ensureDBDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// addSQLiteParams appends connection parameters to the DSN
func addSQLiteParams(dsn string) string {
	params := []string{
		"_busy_timeout=5000",
		"_journal_mode=WAL",
		"_synchronous=NORMAL",
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
