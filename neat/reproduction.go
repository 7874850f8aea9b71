package neat

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// Reproduction handles the creation of new genomes, either from scratch or
// through elitism, crossover and mutation.
type Reproduction struct {
	rt *Runtime
}

// ReproductionStats summarizes one call to Reproduce.
type ReproductionStats struct {
	Elites      int
	Offspring   int
	Culled      int
	Extinctions int
}

// NewReproduction creates a reproduction manager for rt.
func NewReproduction(rt *Runtime) *Reproduction {
	return &Reproduction{rt: rt}
}

// CreateNewPopulation creates popSize initialized genomes.
func (r *Reproduction) CreateNewPopulation(popSize int) ([]*Genome, error) {
	genomes := make([]*Genome, 0, popSize)
	for i := 0; i < popSize; i++ {
		g := r.rt.NewGenome()
		if err := g.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize genome %d: %w", g.ID, err)
		}
		genomes = append(genomes, g)
	}
	return genomes, nil
}

// SelectElites flags and returns the n genomes with the highest raw fitness.
// Equal fitness keeps population order.
func SelectElites(population []*Genome, n int) []*Genome {
	if n <= 0 {
		return nil
	}
	ranked := make([]*Genome, len(population))
	copy(ranked, population)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Fitness > ranked[j].Fitness
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	elites := ranked[:n]
	for _, g := range elites {
		g.IsElite = true
	}
	return elites
}

// AllocateOffspring sets AllowedOffspring on every species.
//
// A stagnating species gets nothing. The others get
// round(average / sum of all averages * slots), rounding half to even; when
// the averages sum to zero or less the slots are split evenly. Whatever the
// rounding leaves over goes to the species with the largest allocation, the
// last one on ties. An overshoot is taken back from the largest allocations
// down, the last one first on ties, and may zero several species, so the
// total always equals slots.
func AllocateOffspring(species []*Species, slots, stagnationLimit int) {
	if len(species) == 0 {
		return
	}

	total := 0.0
	active := 0
	for _, s := range species {
		total += s.AverageFitness
		if !s.IsStagnating(stagnationLimit) {
			active++
		}
	}

	allocated := 0
	for _, s := range species {
		if s.IsStagnating(stagnationLimit) {
			s.AllowedOffspring = 0
			continue
		}
		var share float64
		if total > 0 {
			share = s.AverageFitness / total
		} else {
			share = 1 / float64(active)
		}
		s.AllowedOffspring = max(0, int(math.RoundToEven(share*float64(slots))))
		allocated += s.AllowedOffspring
	}

	drift := slots - allocated
	if drift == 0 {
		return
	}
	if drift > 0 {
		largest := species[0]
		for _, s := range species[1:] {
			if s.AllowedOffspring >= largest.AllowedOffspring {
				largest = s
			}
		}
		largest.AllowedOffspring += drift
		return
	}

	byAllocation := make([]*Species, len(species))
	for i, s := range species {
		byAllocation[len(species)-1-i] = s
	}
	sort.SliceStable(byAllocation, func(i, j int) bool {
		return byAllocation[i].AllowedOffspring > byAllocation[j].AllowedOffspring
	})
	for _, s := range byAllocation {
		if drift == 0 {
			break
		}
		take := min(s.AllowedOffspring, -drift)
		s.AllowedOffspring -= take
		drift += take
	}
}

// Reproduce builds the next generation from the speciated population:
// elites carry over unchanged, offspring slots are allocated per species,
// species without offspring go extinct and the others cull their weakest
// members before producing children. Feed-forward genomes of the new
// generation start with reset node outputs and no genome stays flagged elite.
func (r *Reproduction) Reproduce(ss *SpeciesSet, population []*Genome) ([]*Genome, ReproductionStats, error) {
	config := r.rt.Config
	var stats ReproductionStats

	elites := SelectElites(population, config.Reproduction.EliteCount())
	stats.Elites = len(elites)

	AllocateOffspring(ss.Species, config.Neat.PopSize-len(elites), config.Stagnation.MaxStagnation)

	next := make([]*Genome, 0, config.Neat.PopSize)
	next = append(next, elites...)

	survivors := ss.Species[:0]
	for _, s := range ss.Species {
		if s.AllowedOffspring == 0 {
			r.rt.Logger.Debug("species extinct",
				slog.Int("species", s.ID),
				slog.Int("stagnant_for", s.GenerationsSinceImprovement),
				slog.Float64("average_fitness", s.AverageFitness))
			s.GoExtinct()
			stats.Extinctions++
			continue
		}

		stats.Culled += len(s.Cull(config.Reproduction.SurvivalThreshold))
		for i := 0; i < s.AllowedOffspring; i++ {
			child, err := s.Repopulate(r.rt)
			if err != nil {
				return nil, stats, fmt.Errorf("reproduction failed: %w", err)
			}
			next = append(next, child)
		}
		stats.Offspring += s.AllowedOffspring
		s.ReplaceWithOffspring()
		survivors = append(survivors, s)
	}
	ss.Species = survivors

	recurrent := r.rt.Recurrent()
	for _, g := range next {
		if !recurrent {
			g.HardReset()
		}
		g.IsElite = false
	}
	return next, stats, nil
}
