package db

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blacktop/dexfuzz/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormStore implements the Database operations shared by the sql backends.
type gormStore struct {
	mu    sync.Mutex
	db    *gorm.DB
	cache *seenCache
}

func (g *gormStore) open(dialector gorm.Dialector) (err error) {
	g.db, err = gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}
	if err := g.db.AutoMigrate(&model.Program{}); err != nil {
		g.Close()
		return fmt.Errorf("failed to auto-migrate program schema: %w", err)
	}
	return nil
}

func (g *gormStore) Seen(p *model.Program) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cache.has(p.Hash) {
		return true, nil
	}
	if _, err := g.get(p.Hash); err == nil {
		g.cache.add(p.Hash)
		return true, nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return false, err
	}
	if err := g.db.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			g.cache.add(p.Hash)
			return true, nil
		}
		return false, fmt.Errorf("failed to record program %s: %w", p.Hash, err)
	}
	g.cache.add(p.Hash)
	return false, nil
}

func (g *gormStore) get(hash string) (*model.Program, error) {
	var p model.Program
	if err := g.db.Where("hash = ?", hash).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (g *gormStore) Get(hash string) (*model.Program, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.get(hash)
}

func (g *gormStore) Count() (int64, error) {
	var n int64
	if err := g.db.Model(&model.Program{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (g *gormStore) Close() error {
	if g.db == nil {
		return nil
	}
	db, err := g.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB instance: %w", err)
	}
	return db.Close()
}
