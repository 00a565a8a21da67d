package db

import (
	"bytes"
	"encoding/gob"
	"os"
	"sync"

	"github.com/blacktop/dexfuzz/internal/model"
	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

// Memory is a database that keeps programs in memory and saves them as a
// gob file on Close.
type Memory struct {
	Programs map[string]*model.Program
	Path     string

	mu     sync.Mutex
	nextID uint
}

// NewInMemory creates a new in-memory database.
func NewInMemory(path string) (Database, error) {
	if path == "" {
		return nil, errors.New("'path' is required")
	}
	return &Memory{
		Programs: make(map[string]*model.Program),
		Path:     path,
	}, nil
}

// Connect loads the programs saved at Path, if any.
func (m *Memory) Connect() error {
	f, err := os.Open(m.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&m.Programs); err != nil {
		return errors.Wrapf(err, "failed to decode %s", m.Path)
	}
	for _, p := range m.Programs {
		m.nextID = max(m.nextID, p.ID)
	}
	return nil
}

func (m *Memory) Seen(p *model.Program) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Programs[p.Hash]; ok {
		return true, nil
	}
	m.nextID++
	p.ID = m.nextID
	m.Programs[p.Hash] = p
	return false, nil
}

func (m *Memory) Get(hash string) (*model.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Programs[hash]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p, nil
}

func (m *Memory) Count() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Programs)), nil
}

// Close saves the programs to Path.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m.Programs); err != nil {
		return errors.Wrap(err, "failed to encode programs")
	}
	return atomic.WriteFile(m.Path, &buf)
}
