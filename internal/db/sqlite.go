package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
)

// Sqlite is a database that stores programs in a sqlite file.
type Sqlite struct {
	URL string

	gormStore
}

// NewSqlite creates a new Sqlite database. cacheSize hashes are kept in
// memory in front of it.
func NewSqlite(path string, cacheSize int) (Database, error) {
	if path == "" {
		return nil, fmt.Errorf("'path' is required")
	}
	cache, err := newSeenCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Sqlite{URL: path, gormStore: gormStore{cache: cache}}, nil
}

// Connect connects to the database.
func (s *Sqlite) Connect() error {
	if err := s.open(sqlite.Open(s.URL)); err != nil {
		return fmt.Errorf("failed to connect sqlite database: %w", err)
	}
	return nil
}
