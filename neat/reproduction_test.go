package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowed(species []*Species) []int {
	out := make([]int, len(species))
	for i, s := range species {
		out[i] = s.AllowedOffspring
	}
	return out
}

func speciesWithAverages(averages ...float64) []*Species {
	species := make([]*Species, len(averages))
	for i, avg := range averages {
		species[i] = &Species{ID: i, AverageFitness: avg}
	}
	return species
}

func TestAllocateOffspring(t *testing.T) {
	for _, tc := range []struct {
		name     string
		averages []float64
		stagnant []int
		slots    int
		want     []int
	}{
		{name: "proportional with drift to largest", averages: []float64{1, 1, 2}, slots: 10, want: []int{2, 2, 6}},
		{name: "zero averages split evenly", averages: []float64{0, 0, 0}, slots: 10, want: []int{3, 3, 4}},
		{name: "tie goes to last", averages: []float64{1, 1}, slots: 5, want: []int{2, 3}},
		{name: "stagnant species get nothing", averages: []float64{0.5, 0.5, 0.5, 0.5}, stagnant: []int{3}, slots: 6, want: []int{2, 2, 2, 0}},
		{name: "negative averages split evenly", averages: []float64{-1, -2}, slots: 4, want: []int{2, 2}},
		{name: "all stagnant", averages: []float64{1, 2}, stagnant: []int{0, 1}, slots: 4, want: []int{0, 4}},
		{name: "no slots", averages: []float64{1, 3}, slots: 0, want: []int{0, 0}},
		{name: "overshoot spread over several species", averages: []float64{1, 1, 1, 1, 1, 1, 1, 1}, slots: 12, want: []int{2, 2, 2, 2, 2, 2, 0, 0}},
		{name: "overshoot skips stagnant species", averages: []float64{1, 1, 1, 1, 1, 1, 1, 1}, stagnant: []int{0}, slots: 12, want: []int{0, 2, 2, 2, 2, 2, 2, 0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			species := speciesWithAverages(tc.averages...)
			for _, i := range tc.stagnant {
				species[i].GenerationsSinceImprovement = 15
			}
			AllocateOffspring(species, tc.slots, 15)
			assert.Equal(t, tc.want, allowed(species))
		})
	}
}

func TestAllocateOffspringSumsToSlots(t *testing.T) {
	equal := make([]float64, 8)
	for i := range equal {
		equal[i] = 0.5
	}
	for _, averages := range [][]float64{
		{0.3, 0.9, 0.1, 2.4, 0.05},
		equal,
		{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		{0, 0, 0, 0, 0, 0, 0},
	} {
		species := speciesWithAverages(averages...)
		for slots := 0; slots < 60; slots++ {
			AllocateOffspring(species, slots, 15)
			sum := 0
			for _, n := range allowed(species) {
				assert.GreaterOrEqual(t, n, 0)
				sum += n
			}
			assert.Equal(t, slots, sum, "%d species, %d slots", len(species), slots)
		}
	}
}

func TestSelectElites(t *testing.T) {
	rt := newTestRuntime(t, 1)
	population := make([]*Genome, 5)
	for i, f := range []float64{1, 5, 3, 5, 2} {
		population[i] = newInitializedGenome(t, rt)
		population[i].Fitness = f
	}

	elites := SelectElites(population, 3)
	require.Len(t, elites, 3)
	assert.Same(t, population[1], elites[0])
	assert.Same(t, population[3], elites[1])
	assert.Same(t, population[2], elites[2])
	for _, g := range population {
		assert.Equal(t, g.Fitness >= 3, g.IsElite)
	}

	assert.Nil(t, SelectElites(population, 0))
	assert.Len(t, SelectElites(population, 10), 5)
}

// evaluatedPopulation returns a speciated population with shared fitness.
func evaluatedPopulation(t *testing.T, rt *Runtime) (*SpeciesSet, []*Genome) {
	genomes, err := NewReproduction(rt).CreateNewPopulation(rt.Config.Neat.PopSize)
	require.NoError(t, err)
	for i, g := range genomes {
		g.Fitness = float64(i%7) + 0.5
	}
	ss := NewSpeciesSet(&rt.Config.SpeciesSet)
	ss.Speciate(rt, genomes, 0)
	for _, s := range ss.Species {
		s.ShareFitness()
	}
	return ss, genomes
}

func TestReproduceKeepsPopulationSize(t *testing.T) {
	for _, mode := range []NetworkType{NetworkFeedForward, NetworkRecurrent} {
		t.Run(string(mode), func(t *testing.T) {
			rt := newTestRuntime(t, 21, func(c *Config) {
				c.Genome.NetworkType = mode
				c.Reproduction.Elitism = 2
				c.SpeciesSet.CompatibilityThreshold = 0.5
				c.Genome.NodeAddProb = 0.3
				c.Genome.ConnAddProb = 0.3
			})
			ss, population := evaluatedPopulation(t, rt)
			fittest := []*Genome{population[6], population[13]}
			for _, g := range population {
				require.LessOrEqual(t, g.Fitness, fittest[0].Fitness)
			}

			next, stats, err := NewReproduction(rt).Reproduce(ss, population)
			require.NoError(t, err)
			require.Len(t, next, rt.Config.Neat.PopSize)
			assert.Equal(t, 2, stats.Elites)
			assert.Equal(t, rt.Config.Neat.PopSize-2, stats.Offspring)
			for _, g := range fittest {
				assert.Contains(t, next, g, "genome %d survives as an elite", g.ID)
			}

			ids := map[int]bool{}
			for _, g := range next {
				assert.False(t, g.IsElite)
				assert.False(t, ids[g.ID], "genome %d appears twice", g.ID)
				ids[g.ID] = true
				checkOrders(t, g)
			}
			for _, s := range ss.Species {
				assert.Positive(t, s.AllowedOffspring)
			}
		})
	}
}

func TestReproduceRemovesExtinctSpecies(t *testing.T) {
	rt := newTestRuntime(t, 22, func(c *Config) {
		c.Neat.PopSize = 6
		c.Reproduction.ElitismEnabled = false
		c.Stagnation.MaxStagnation = 3
	})
	a, b := splitPair(t, rt)
	a.Fitness, b.Fitness = 1, 1
	ss := &SpeciesSet{}
	doomed := NewSpecies(0, 0, a)
	doomed.GenerationsSinceImprovement = 3
	kept := NewSpecies(1, 0, b)
	kept.AverageFitness = 1
	ss.Species = []*Species{doomed, kept}

	next, stats, err := NewReproduction(rt).Reproduce(ss, []*Genome{a, b})
	require.NoError(t, err)
	assert.Len(t, next, 6)
	assert.Equal(t, 1, stats.Extinctions)
	require.Len(t, ss.Species, 1)
	assert.Same(t, kept, ss.Species[0])
	assert.Nil(t, a.Species)
	for _, g := range next {
		assert.Same(t, kept, g.Species)
	}
}
