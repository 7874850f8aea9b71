package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/evoforge/neat-go/neat"
)

// ChampionReporter saves the best genome of each generation to a Store.
// It implements neat.Reporter.
type ChampionReporter struct {
	Store Store
	RunID string
	// OnlyImprovements skips generations whose champion does not beat the
	// best fitness saved so far by this reporter.
	OnlyImprovements bool

	best float64
	now  func() time.Time
}

// NewChampionReporter creates a reporter writing to s under runID.
func NewChampionReporter(s Store, runID string) *ChampionReporter {
	return &ChampionReporter{Store: s, RunID: runID, best: math.Inf(-1), now: time.Now}
}

// GenerationEnd implements neat.Reporter.
func (r *ChampionReporter) GenerationEnd(ctx context.Context, report neat.GenerationReport, pop *neat.Population) error {
	champion := pop.BestGenome
	if champion == nil {
		return nil
	}
	if r.OnlyImprovements && champion.Fitness <= r.best {
		return nil
	}
	if champion.Fitness > r.best {
		r.best = champion.Fitness
	}

	record := ChampionRecord{
		RunID:      r.RunID,
		Generation: report.Generation,
		GenomeID:   champion.ID,
		Fitness:    champion.Fitness,
		Genome:     champion.Data(),
		SavedAt:    r.now().UTC(),
	}
	if err := r.Store.SaveChampion(ctx, record); err != nil {
		return fmt.Errorf("save champion of generation %d: %w", report.Generation, err)
	}
	return nil
}

var _ neat.Reporter = (*ChampionReporter)(nil)
