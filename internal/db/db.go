// Package db remembers the programs fuzzing runs have produced, so that
// duplicate outputs can be skipped.
package db

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/blacktop/dexfuzz/internal/model"
	"github.com/twmb/murmur3"
)

// Database is the interface that wraps the unique program store.
type Database interface {
	// Connect connects to the database.
	Connect() error

	// Seen records p and reports whether a program with the same hash was
	// recorded before. A seen program is not stored again.
	Seen(p *model.Program) (bool, error)

	// Get returns the program with the given hash.
	// It returns model.ErrNotFound if the hash is unknown.
	Get(hash string) (*model.Program, error)

	// Count returns the number of unique programs.
	Count() (int64, error)

	// Close closes the database.
	Close() error
}

// Hash returns the hex encoded 128-bit murmur3 hash of data.
func Hash(data []byte) string {
	hi, lo := murmur3.Sum128(data)
	return fmt.Sprintf("%016x%016x", hi, lo)
}

// Open returns the database for url, not yet connected. postgres://
// URLs use Postgres, *.gob files an in-memory map saved on Close, and
// anything else a sqlite file.
func Open(url string, cacheSize int) (Database, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return NewPostgres(url, cacheSize)
	case filepath.Ext(url) == ".gob":
		return NewInMemory(url)
	}
	return NewSqlite(url, cacheSize)
}
