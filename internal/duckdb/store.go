// Package duckdb stores imported regulatory features in DuckDB so they can be
// re-read one chromosome and category at a time.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
)

// Store manages a DuckDB connection holding features of every category.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// SetLogger sets the logger for import progress messages.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
// seq keeps the order features appeared in their source file.
func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS features (
			category VARCHAR,
			seq BIGINT,
			seqname VARCHAR,
			source VARCHAR,
			feature VARCHAR,
			start BIGINT,
			end_ BIGINT,
			score VARCHAR,
			strand VARCHAR,
			frame VARCHAR,
			group_ VARCHAR
		);

		CREATE TABLE IF NOT EXISTS imports (
			category VARCHAR PRIMARY KEY,
			path VARCHAR,
			size BIGINT,
			mod_time VARCHAR,
			row_count BIGINT,
			loaded_at VARCHAR
		);

		CREATE INDEX IF NOT EXISTS idx_features_chrom ON features(category, seqname);
	`)
	return err
}
