// Package store keeps the champion genome of every generation of a run.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evoforge/neat-go/neat"
)

// ChampionRecord is the best genome of one generation of a run.
type ChampionRecord struct {
	RunID      string
	Generation int
	GenomeID   int
	Fitness    float64
	Genome     neat.GenomeData
	SavedAt    time.Time
}

// Store persists champion records keyed by run id and generation.
type Store interface {
	Init(ctx context.Context) error
	SaveChampion(ctx context.Context, record ChampionRecord) error
	GetChampion(ctx context.Context, runID string, generation int) (ChampionRecord, bool, error)
	// BestChampion returns the fittest record of a run, the latest generation on ties.
	BestChampion(ctx context.Context, runID string) (ChampionRecord, bool, error)
	ListChampions(ctx context.Context, runID string) ([]ChampionRecord, error)
	ListRuns(ctx context.Context) ([]string, error)
	Close() error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// NewStore creates a store backend: "memory" (the default) or "sqlite".
// The store still needs Init.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// better reports whether a should replace b as the best champion of a run.
func better(a, b ChampionRecord) bool {
	if a.Fitness != b.Fitness {
		return a.Fitness > b.Fitness
	}
	return a.Generation > b.Generation
}
