package db

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

// seenCache keeps recently recorded hashes in front of a database.
type seenCache struct {
	cache *lru.Cache[string, struct{}]
}

func newSeenCache(size int) (*seenCache, error) {
	if size <= 0 {
		return &seenCache{}, nil
	}
	c, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create hash cache")
	}
	return &seenCache{cache: c}, nil
}

func (s *seenCache) has(hash string) bool {
	if s.cache == nil {
		return false
	}
	return s.cache.Contains(hash)
}

func (s *seenCache) add(hash string) {
	if s.cache != nil {
		s.cache.Add(hash, struct{}{})
	}
}
