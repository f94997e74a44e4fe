package cache

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the persistent LRU index: one row per cached file, recording
// when it was last used. It backs eviction decisions in gc.go.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if necessary) the sqlite database at path and
// ensures its schema exists. The pool is capped at a single connection:
// sqlite allows only one writer at a time, and database/sql's pool does
// the serializing without needing a dedicated worker goroutine.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_time (
			file TEXT NOT NULL UNIQUE,
			time INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Touch records that file was used at unixTime, inserting or updating its
// row.
func (s *Store) Touch(ctx context.Context, file string, unixTime int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO usage_time (file, time) VALUES (?, ?)`,
		file, unixTime,
	)
	return err
}

// Oldest returns up to limit filenames ordered by least-recently-used.
func (s *Store) Oldest(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file FROM usage_time ORDER BY time ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var file string
		if err := rows.Scan(&file); err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// Forget removes file's row, once it has been purged from disk.
func (s *Store) Forget(ctx context.Context, file string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM usage_time WHERE file = ?`, file)
	return err
}
