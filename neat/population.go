package neat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FitnessFunc evaluates a single genome and returns its raw fitness.
// The population calls it once per genome per generation, in population order.
type FitnessFunc func(ctx context.Context, g *Genome) (float64, error)

// GenerationReport summarizes a finished generation.
type GenerationReport struct {
	Generation   int
	BestGenomeID int
	BestFitness  float64
	MeanFitness  float64
	StdevFitness float64
	WorstFitness float64
	SpeciesCount int
	Stagnant     int
	Threshold    float64
	MeanDistance float64
	Elites       int
	Offspring    int
	Extinctions  int
	Innovations  int
	Duration     time.Duration
}

// LogValue implements slog.LogValuer.
func (r GenerationReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", r.Generation),
		slog.Int("best_genome", r.BestGenomeID),
		slog.Float64("best_fitness", r.BestFitness),
		slog.Float64("mean_fitness", r.MeanFitness),
		slog.Float64("stdev_fitness", r.StdevFitness),
		slog.Float64("worst_fitness", r.WorstFitness),
		slog.Int("species", r.SpeciesCount),
		slog.Int("stagnant", r.Stagnant),
		slog.Float64("threshold", r.Threshold),
		slog.Int("extinctions", r.Extinctions),
		slog.Int("innovations", r.Innovations),
		slog.Duration("duration", r.Duration),
	)
}

// Reporter is notified at the end of every generation, after reproduction.
// Returning an error aborts the run; ErrStopRun ends it without failure.
type Reporter interface {
	GenerationEnd(ctx context.Context, report GenerationReport, pop *Population) error
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, report GenerationReport, pop *Population) error

// GenerationEnd calls f.
func (f ReporterFunc) GenerationEnd(ctx context.Context, report GenerationReport, pop *Population) error {
	return f(ctx, report, pop)
}

// Population holds the state of the NEAT evolutionary process.
type Population struct {
	Runtime      *Runtime
	Genomes      []*Genome
	SpeciesSet   *SpeciesSet
	Reproduction *Reproduction
	Generation   int     // Index of the next generation to evaluate.
	BestGenome   *Genome // Best genome of the last evaluated generation.

	reporters []Reporter
}

// NewPopulation creates the initial generation of genomes.
func NewPopulation(rt *Runtime) (*Population, error) {
	reproduction := NewReproduction(rt)
	genomes, err := reproduction.CreateNewPopulation(rt.Config.Neat.PopSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create initial population: %w", err)
	}
	return &Population{
		Runtime:      rt,
		Genomes:      genomes,
		SpeciesSet:   NewSpeciesSet(&rt.Config.SpeciesSet),
		Reproduction: reproduction,
	}, nil
}

// AddReporter registers r to be notified at the end of each generation.
func (p *Population) AddReporter(r Reporter) {
	p.reporters = append(p.reporters, r)
}

// Run evolves the population until max_generations generations have run
// (0 means no limit), the fitness threshold is met or ctx is cancelled. Cancellation is only
// observed between generations. It returns the best genome of the last
// evaluated generation.
func (p *Population) Run(ctx context.Context, fitness FitnessFunc) (*Genome, error) {
	limit := p.Runtime.Config.Neat.MaxGenerations
	for limit == 0 || p.Generation < limit {
		if err := ctx.Err(); err != nil {
			return p.BestGenome, err
		}
		winner, err := p.RunGeneration(ctx, fitness)
		if errors.Is(err, ErrStopRun) {
			return p.BestGenome, nil
		}
		if err != nil {
			return p.BestGenome, err
		}
		if winner != nil {
			p.Runtime.Logger.Info("fitness threshold reached",
				slog.Int("generation", p.Generation-1),
				slog.Any("genome", winner))
			return winner, nil
		}
	}
	return p.BestGenome, nil
}

// RunGeneration executes a single generation: evaluate, speciate, share
// fitness, reproduce and replace. It returns the best genome if it meets the
// fitness threshold, otherwise nil.
func (p *Population) RunGeneration(ctx context.Context, fitness FitnessFunc) (winner *Genome, err error) {
	rt := p.Runtime
	start := time.Now()

	ctx, span := rt.Tracer.Start(ctx, "neat.generation",
		trace.WithAttributes(attribute.Int("neat.generation", p.Generation)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// 1. Evaluate fitness
	if err := p.evaluate(ctx, fitness); err != nil {
		return nil, fmt.Errorf("fitness evaluation failed in generation %d: %w", p.Generation, err)
	}
	p.BestGenome = p.findBestGenome()

	report := GenerationReport{Generation: p.Generation}
	fitnesses := make([]float64, len(p.Genomes))
	for i, g := range p.Genomes {
		fitnesses[i] = g.Fitness
	}
	report.MeanFitness = Mean(fitnesses)
	report.StdevFitness = Stdev(fitnesses)
	report.WorstFitness = MinFloat(fitnesses)
	if p.BestGenome != nil {
		report.BestGenomeID = p.BestGenome.ID
		report.BestFitness = p.BestGenome.Fitness
	}

	// 2. Speciate and share fitness
	_, speciateSpan := rt.Tracer.Start(ctx, "neat.speciate")
	distances := p.SpeciesSet.Speciate(rt, p.Genomes, p.Generation)
	for _, s := range p.SpeciesSet.Species {
		s.ShareFitness()
	}
	speciateSpan.SetAttributes(attribute.Int("neat.species", len(p.SpeciesSet.Species)))
	speciateSpan.End()

	report.SpeciesCount = len(p.SpeciesSet.Species)
	report.Threshold = p.SpeciesSet.Threshold
	report.MeanDistance = Mean(distances)
	for _, info := range Stagnation(p.SpeciesSet.Species, rt.Config.Stagnation.MaxStagnation) {
		if info.IsStagnant {
			report.Stagnant++
		}
	}

	// 3. Check fitness threshold termination
	if !rt.Config.Neat.NoFitnessTermination && p.BestGenome != nil &&
		p.BestGenome.Fitness >= rt.Config.Neat.FitnessThreshold {
		winner = p.BestGenome
	}

	// 4. Reproduce and replace
	_, reproduceSpan := rt.Tracer.Start(ctx, "neat.reproduce")
	next, stats, err := p.Reproduction.Reproduce(p.SpeciesSet, p.Genomes)
	if err != nil {
		reproduceSpan.RecordError(err)
		reproduceSpan.End()
		return nil, fmt.Errorf("reproduction failed in generation %d: %w", p.Generation, err)
	}
	reproduceSpan.SetAttributes(
		attribute.Int("neat.elites", stats.Elites),
		attribute.Int("neat.offspring", stats.Offspring),
		attribute.Int("neat.extinctions", stats.Extinctions))
	reproduceSpan.End()
	p.Genomes = next

	report.Elites = stats.Elites
	report.Offspring = stats.Offspring
	report.Extinctions = stats.Extinctions
	report.Innovations = rt.Innovations.ConnectionCount()
	report.Duration = time.Since(start)

	rt.Metrics.observeReport(report)
	rt.Logger.Info("generation finished", slog.Any("report", report))

	p.Generation++
	for _, r := range p.reporters {
		if err := r.GenerationEnd(ctx, report, p); err != nil {
			return nil, fmt.Errorf("reporter failed in generation %d: %w", report.Generation, err)
		}
	}
	return winner, nil
}

// evaluate assigns a fitness to every genome, one at a time.
func (p *Population) evaluate(ctx context.Context, fitness FitnessFunc) error {
	rt := p.Runtime
	ctx, span := rt.Tracer.Start(ctx, "neat.evaluate",
		trace.WithAttributes(attribute.Int("neat.genomes", len(p.Genomes))))
	defer span.End()

	for _, g := range p.Genomes {
		f, err := fitness(ctx, g)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("genome %d: %w", g.ID, err)
		}
		g.Fitness = f
		g.AdjustedFitness = 0
		rt.Metrics.countEvaluation()
	}
	return nil
}

// findBestGenome returns the genome with the highest fitness, the last one on ties.
func (p *Population) findBestGenome() *Genome {
	var best *Genome
	for _, g := range p.Genomes {
		if best == nil || g.Fitness >= best.Fitness {
			best = g
		}
	}
	return best
}
