// Package model contains the database models of dexfuzz.
package model

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("no program found")

// Program is one mutated file that a fuzzing run produced.
type Program struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// Hash is the 128-bit murmur3 hash of the file, in hex.
	Hash      string    `gorm:"uniqueIndex;not null" json:"hash"`
	RunID     string    `gorm:"index" json:"run_id"`
	Input     string    `json:"input,omitempty"`
	Output    string    `json:"output,omitempty"`
	Seed      int64     `json:"seed"`
	Mutations int       `json:"mutations"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
