package neat

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// xorFitness scores a genome by how close its first output gets to XOR of
// the first two inputs, with the third input held at 0.
func xorFitness(_ context.Context, g *Genome) (float64, error) {
	g.HardReset()
	fitness := 4.0
	for _, p := range [][3]float64{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 0}} {
		out, err := g.Evaluate([]float64{p[0], p[1], 0})
		if err != nil {
			return 0, err
		}
		d := out[0] - p[2]
		fitness -= d * d
	}
	return fitness, nil
}

func newTestPopulation(t *testing.T, seed int64, tweaks ...func(*Config)) *Population {
	rt := newTestRuntime(t, seed, tweaks...)
	p, err := NewPopulation(rt)
	require.NoError(t, err)
	return p
}

func maxGenerations(n int) func(*Config) {
	return func(c *Config) { c.Neat.MaxGenerations = n }
}

func TestRunStopsAtMaxGenerations(t *testing.T) {
	p := newTestPopulation(t, 1, maxGenerations(5))
	var reports []GenerationReport
	p.AddReporter(ReporterFunc(func(_ context.Context, r GenerationReport, pop *Population) error {
		assert.Same(t, p, pop)
		assert.Equal(t, r.Generation+1, pop.Generation)
		reports = append(reports, r)
		return nil
	}))

	best, err := p.Run(context.Background(), xorFitness)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Same(t, p.BestGenome, best)
	assert.Equal(t, 5, p.Generation)
	assert.Len(t, p.Genomes, 20)

	require.Len(t, reports, 5)
	for i, r := range reports {
		assert.Equal(t, i, r.Generation)
		assert.Positive(t, r.SpeciesCount)
		assert.Equal(t, 1, r.Elites)
		assert.Equal(t, 19, r.Offspring)
		assert.GreaterOrEqual(t, r.BestFitness, r.MeanFitness)
		assert.LessOrEqual(t, r.WorstFitness, r.MeanFitness)
		if i > 0 {
			assert.GreaterOrEqual(t, r.Innovations, reports[i-1].Innovations)
		}
	}
	assert.Equal(t, reports[4].BestGenomeID, best.ID)
	assert.Equal(t, p.Runtime.Innovations.ConnectionCount(), reports[4].Innovations)
}

func TestRunKeepsPopulationSizeWithManySpecies(t *testing.T) {
	p := newTestPopulation(t, 14, maxGenerations(12), recurrentMode, func(c *Config) {
		c.Neat.PopSize = 30
		c.Genome.ConnAddProb = 0.9
		c.Genome.NodeAddProb = 0.6
		c.Genome.WeightMutateRate = 1
		c.Genome.WeightPerturbRate = 0.2
		c.SpeciesSet.TargetSpecies = 25
		c.SpeciesSet.CompatibilityThreshold = 0.2
	})
	most := 0
	p.AddReporter(ReporterFunc(func(_ context.Context, r GenerationReport, pop *Population) error {
		most = max(most, r.SpeciesCount)
		assert.Len(t, pop.Genomes, 30, "generation %d", r.Generation)
		assert.Equal(t, 30, r.Elites+r.Offspring, "generation %d", r.Generation)
		return nil
	}))

	_, err := p.Run(context.Background(), xorFitness)
	require.NoError(t, err)
	assert.Greater(t, most, 2)
}

func TestRunReturnsWinner(t *testing.T) {
	p := newTestPopulation(t, 2, func(c *Config) {
		c.Neat.NoFitnessTermination = false
		c.Neat.FitnessThreshold = 1
	})
	first := p.Genomes

	winner, err := p.Run(context.Background(), func(context.Context, *Genome) (float64, error) {
		return 1, nil
	})
	require.NoError(t, err)
	assert.Same(t, first[len(first)-1], winner, "ties go to the last genome")
	assert.Equal(t, 1, p.Generation)
}

func TestRunIgnoresThresholdWithoutFitnessTermination(t *testing.T) {
	p := newTestPopulation(t, 3, maxGenerations(3), func(c *Config) {
		c.Neat.FitnessThreshold = 1
	})
	_, err := p.Run(context.Background(), func(context.Context, *Genome) (float64, error) {
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Generation)
}

func TestRunStoppedByReporter(t *testing.T) {
	p := newTestPopulation(t, 4, maxGenerations(0))
	p.AddReporter(ReporterFunc(func(_ context.Context, r GenerationReport, _ *Population) error {
		if r.Generation == 7 {
			return ErrStopRun
		}
		return nil
	}))

	best, err := p.Run(context.Background(), xorFitness)
	require.NoError(t, err)
	assert.NotNil(t, best)
	assert.Equal(t, 8, p.Generation)
}

func TestRunReporterFailure(t *testing.T) {
	boom := errors.New("disk full")
	p := newTestPopulation(t, 5)
	p.AddReporter(ReporterFunc(func(context.Context, GenerationReport, *Population) error {
		return boom
	}))

	_, err := p.Run(context.Background(), xorFitness)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, p.Generation)
}

func TestRunFitnessFailure(t *testing.T) {
	boom := errors.New("simulator crashed")
	p := newTestPopulation(t, 6)
	calls := 0
	_, err := p.Run(context.Background(), func(context.Context, *Genome) (float64, error) {
		calls++
		if calls == 3 {
			return 0, boom
		}
		return 1, nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 0, p.Generation)
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPopulation(t, 7)
	_, err := p.Run(ctx, xorFitness)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, p.Generation)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	p = newTestPopulation(t, 7)
	p.AddReporter(ReporterFunc(func(_ context.Context, r GenerationReport, _ *Population) error {
		if r.Generation == 1 {
			cancel()
		}
		return nil
	}))
	best, err := p.Run(ctx, xorFitness)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, best)
	assert.Equal(t, 2, p.Generation)
}

func TestRunIsDeterministicForSeed(t *testing.T) {
	run := func() ([]float64, GenomeData) {
		p := newTestPopulation(t, 42, maxGenerations(6), func(c *Config) {
			c.Genome.NodeAddProb = 0.2
			c.Genome.ConnAddProb = 0.3
		})
		var best []float64
		p.AddReporter(ReporterFunc(func(_ context.Context, r GenerationReport, _ *Population) error {
			best = append(best, r.BestFitness)
			return nil
		}))
		winner, err := p.Run(context.Background(), xorFitness)
		require.NoError(t, err)
		return best, winner.Data()
	}

	bestA, dataA := run()
	bestB, dataB := run()
	assert.Equal(t, bestA, bestB)
	assert.Equal(t, dataA, dataB)
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	config := DefaultConfig()
	config.Neat.MaxGenerations = 3
	config.Neat.Seed = 8
	rt, err := NewRuntime(config, WithLogger(discardLogger()), WithMetrics(metrics))
	require.NoError(t, err)
	p, err := NewPopulation(rt)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), xorFitness)
	require.NoError(t, err)

	assert.Equal(t, 60.0, testutil.ToFloat64(metrics.Evaluations))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Generation))
	assert.Equal(t, p.BestGenome.Fitness, testutil.ToFloat64(metrics.BestFitness))
	assert.Positive(t, testutil.ToFloat64(metrics.SpeciesCount))

	count, err := testutil.GatherAndCount(reg, "neat_generation", "neat_best_fitness")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	var observed uint64
	for _, mf := range families {
		if mf.GetName() == "neat_generation_duration_seconds" {
			observed = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(3), observed)
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observeReport(GenerationReport{Generation: 3})
		m.countEvaluation()
		m.countMutationFailure("sexual")
	})
}

func TestGenerationReportLogValue(t *testing.T) {
	value := GenerationReport{Generation: 4, BestFitness: 2.5, SpeciesCount: 3, Innovations: 12}.LogValue()
	attrs := map[string]string{}
	for _, a := range value.Group() {
		attrs[a.Key] = a.Value.String()
	}
	assert.Equal(t, "4", attrs["generation"])
	assert.Equal(t, "2.5", attrs["best_fitness"])
	assert.Equal(t, "3", attrs["species"])
	assert.Equal(t, "12", attrs["innovations"])
}
