package neat

import (
	"math"
	"sort"
)

// StagnationInfo holds the stagnation state of a single species.
type StagnationInfo struct {
	SpeciesID      int
	Species        *Species
	StagnantFor    int
	IsStagnant     bool
	AverageFitness float64
}

// recordAverage stores the species average and advances the stagnation
// counter. The counter restarts whenever the average beats the best average
// the species has ever had.
func (s *Species) recordAverage(avg float64) {
	s.AverageFitness = avg
	if avg > s.MaxAverageFitness {
		s.MaxAverageFitness = avg
		s.GenerationsSinceImprovement = 0
		return
	}
	s.GenerationsSinceImprovement++
}

// IsStagnating reports whether the species went limit generations without improvement.
func (s *Species) IsStagnating(limit int) bool {
	return s.GenerationsSinceImprovement >= limit
}

// Stagnation reports the stagnation state of every species, least fit first.
func Stagnation(species []*Species, limit int) []StagnationInfo {
	result := make([]StagnationInfo, 0, len(species))
	for _, s := range species {
		result = append(result, StagnationInfo{
			SpeciesID:      s.ID,
			Species:        s,
			StagnantFor:    s.GenerationsSinceImprovement,
			IsStagnant:     s.IsStagnating(limit),
			AverageFitness: s.AverageFitness,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].AverageFitness < result[j].AverageFitness
	})
	return result
}

// newStagnationBaseline is the best average a species starts with, so the
// first recorded average always counts as an improvement.
func newStagnationBaseline() float64 {
	return math.Inf(-1)
}
