package neat

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
)

// Species represents a group of genetically similar genomes.
type Species struct {
	ID                          int
	Created                     int // Generation in which the species was founded.
	Representative              *Genome
	Members                     []*Genome
	AverageFitness              float64 // Mean adjusted fitness of the members.
	MaxAverageFitness           float64 // Best AverageFitness ever recorded.
	GenerationsSinceImprovement int
	AllowedOffspring            int

	offspring []*Genome
}

// NewSpecies founds a species with representative as its first member.
func NewSpecies(id, generation int, representative *Genome) *Species {
	s := &Species{
		ID:                id,
		Created:           generation,
		MaxAverageFitness: newStagnationBaseline(),
	}
	s.Representative = representative
	s.AddGenome(representative)
	return s
}

// AddGenome makes g a member of the species.
func (s *Species) AddGenome(g *Genome) {
	s.Members = append(s.Members, g)
	g.Species = s
}

// Reset keeps one random member as representative and releases the rest,
// preparing the species for the next round of speciation.
func (s *Species) Reset(rng *rand.Rand) {
	s.AverageFitness = 0
	if len(s.Members) == 0 {
		s.Representative = nil
		return
	}
	rep := s.Members[rng.Intn(len(s.Members))]
	for _, m := range s.Members {
		if m != rep && m.Species == s {
			m.Species = nil
		}
	}
	s.Members = []*Genome{rep}
	s.Representative = rep
}

// ShareFitness divides every member's raw fitness by the member count and
// records the resulting species average.
func (s *Species) ShareFitness() {
	if len(s.Members) == 0 {
		s.recordAverage(0)
		return
	}
	size := float64(len(s.Members))
	sum := 0.0
	for _, m := range s.Members {
		m.AdjustedFitness = m.Fitness / size
		sum += m.AdjustedFitness
	}
	s.recordAverage(sum / size)
}

// GoExtinct dissolves the species. Elite members are detached and survive in
// the population; the others are released.
func (s *Species) GoExtinct() {
	for _, m := range s.Members {
		if m.Species == s {
			m.Species = nil
		}
	}
	s.Members = nil
	s.Representative = nil
	s.offspring = nil
}

// cullEpsilon absorbs float64 error in the survivor count, such as
// 25*0.28 = 7.000000000000001.
const cullEpsilon = 1e-9

// Cull sorts the members by adjusted fitness, best first, and keeps the top
// ceil(n * fraction). It returns the removed genomes.
func (s *Species) Cull(fraction float64) []*Genome {
	sort.SliceStable(s.Members, func(i, j int) bool {
		return s.Members[i].AdjustedFitness > s.Members[j].AdjustedFitness
	})
	keep := int(math.Ceil(float64(len(s.Members))*fraction - cullEpsilon))
	if keep < 1 {
		keep = 1
	}
	if keep >= len(s.Members) {
		return nil
	}

	removed := append([]*Genome(nil), s.Members[keep:]...)
	s.Members = s.Members[:keep]
	for _, g := range removed {
		if g.Species == s {
			g.Species = nil
		}
		if s.Representative == g {
			s.Representative = nil
		}
	}
	return removed
}

// Repopulate produces one child from the current members and queues it as
// offspring of the species.
//
// With more than one member of positive adjusted fitness the child is the
// crossover of two distinct parents picked by roulette wheel, followed by
// Mutate. Otherwise it is a copy of the first member followed by ForceMutate.
// A mutation that violates a structural invariant is logged and skipped; the
// child is still returned.
func (s *Species) Repopulate(rt *Runtime) (*Genome, error) {
	if len(s.Members) == 0 {
		return nil, fmt.Errorf("species %d has no members: %w", s.ID, ErrNoSelectableParent)
	}

	positive := 0
	for _, m := range s.Members {
		if m.AdjustedFitness > 0 {
			positive++
		}
	}

	var child *Genome
	var mutateErr error
	kind := "asexual"
	if positive > 1 {
		kind = "sexual"
		sort.SliceStable(s.Members, func(i, j int) bool {
			return s.Members[i].AdjustedFitness < s.Members[j].AdjustedFitness
		})
		parentA, err := RouletteWheel(rt.Rand, s.parentWeights(nil))
		if err != nil {
			return nil, fmt.Errorf("species %d: first parent: %w", s.ID, err)
		}
		parentB, err := RouletteWheel(rt.Rand, s.parentWeights(parentA))
		if err != nil {
			return nil, fmt.Errorf("species %d: second parent: %w", s.ID, err)
		}
		child, err = Crossover(parentA, parentB)
		if err != nil {
			return nil, fmt.Errorf("species %d: %w", s.ID, err)
		}
		mutateErr = child.Mutate()
	} else {
		child = s.Members[0].Copy()
		mutateErr = child.ForceMutate()
	}

	if mutateErr != nil {
		rt.Logger.Warn("mutation skipped",
			slog.Int("species", s.ID),
			slog.String("reproduction", kind),
			slog.Any("genome", child),
			slog.Any("error", mutateErr))
		rt.Metrics.countMutationFailure(kind)
	}

	child.Species = s
	s.offspring = append(s.offspring, child)
	return child, nil
}

// parentWeights lists the members with positive adjusted fitness, except exclude.
func (s *Species) parentWeights(exclude *Genome) []Weighted[*Genome] {
	weights := make([]Weighted[*Genome], 0, len(s.Members))
	for _, m := range s.Members {
		if m == exclude || m.AdjustedFitness <= 0 {
			continue
		}
		weights = append(weights, Weighted[*Genome]{Weight: m.AdjustedFitness, Value: m})
	}
	return weights
}

// ReplaceWithOffspring swaps the previous generation for the queued offspring.
// Elite members stay in the species.
func (s *Species) ReplaceWithOffspring() {
	members := make([]*Genome, 0, len(s.offspring)+1)
	for _, m := range s.Members {
		if m.IsElite {
			members = append(members, m)
			continue
		}
		if m.Species == s {
			m.Species = nil
		}
		if s.Representative == m {
			s.Representative = nil
		}
	}
	s.Members = append(members, s.offspring...)
	s.offspring = nil
}

// --------------------------- SpeciesSet ---------------------------

// SpeciesSet manages the collection of species within a population.
type SpeciesSet struct {
	Species   []*Species
	Threshold float64 // Current compatibility distance threshold.
	Indexer   int     // Next species id.
}

// NewSpeciesSet creates an empty set starting at the configured threshold.
func NewSpeciesSet(config *SpeciesSetConfig) *SpeciesSet {
	return &SpeciesSet{Threshold: config.CompatibilityThreshold}
}

// Speciate assigns every genome without a species to the first species
// whose representative lies within the threshold, founding new species as
// needed. From the second generation on the threshold first moves one step
// toward the target species count; it never drops below one step. It returns
// the distances computed along the way.
func (ss *SpeciesSet) Speciate(rt *Runtime, population []*Genome, generation int) []float64 {
	config := &rt.Config.SpeciesSet

	alive := ss.Species[:0]
	for _, s := range ss.Species {
		s.Reset(rt.Rand)
		if s.Representative != nil {
			alive = append(alive, s)
		}
	}
	ss.Species = alive

	if generation > 0 {
		switch {
		case len(ss.Species) < config.TargetSpecies:
			ss.Threshold -= config.ThresholdStep
		case len(ss.Species) > config.TargetSpecies:
			ss.Threshold += config.ThresholdStep
		}
	}
	if ss.Threshold < config.ThresholdStep {
		ss.Threshold = config.ThresholdStep
	}

	var distances []float64
	for _, g := range population {
		if g.Species != nil {
			continue
		}
		found := false
		for _, s := range ss.Species {
			d := CompatibilityDistance(g, s.Representative)
			distances = append(distances, d)
			if d <= ss.Threshold {
				s.AddGenome(g)
				found = true
				break
			}
		}
		if !found {
			s := NewSpecies(ss.Indexer, generation, g)
			ss.Indexer++
			ss.Species = append(ss.Species, s)
			rt.Logger.Debug("species founded",
				slog.Int("species", s.ID),
				slog.Int("generation", generation),
				slog.Any("representative", g))
		}
	}
	return distances
}
