package db

import (
	"fmt"

	"gorm.io/driver/postgres"
)

// Postgres is a database that stores programs in Postgres, so that fuzzers
// on several hosts share one set of seen programs.
type Postgres struct {
	URL string

	gormStore
}

// NewPostgres creates a new Postgres database from a postgres:// URL.
func NewPostgres(url string, cacheSize int) (Database, error) {
	if url == "" {
		return nil, fmt.Errorf("'url' is required")
	}
	cache, err := newSeenCache(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Postgres{URL: url, gormStore: gormStore{cache: cache}}, nil
}

// Connect connects to the database.
func (p *Postgres) Connect() error {
	if err := p.open(postgres.Open(p.URL)); err != nil {
		return fmt.Errorf("failed to connect postgres database: %w", err)
	}
	return nil
}
