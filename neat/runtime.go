package neat

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Runtime bundles the run-wide state every genome of a population shares:
// configuration, the innovation registry, the random source and the
// observability hooks. One Runtime belongs to exactly one run.
type Runtime struct {
	Config      *Config
	Innovations *InnovationRegistry
	Rand        *rand.Rand
	Logger      *slog.Logger
	Metrics     *Metrics
	Tracer      trace.Tracer

	activation   ActivationFunc
	nextGenomeID int
}

// RuntimeOption customizes a Runtime created by NewRuntime.
type RuntimeOption func(*Runtime)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(rt *Runtime) { rt.Logger = logger }
}

// WithRand replaces the random source seeded from the configuration.
func WithRand(rng *rand.Rand) RuntimeOption {
	return func(rt *Runtime) { rt.Rand = rng }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *Metrics) RuntimeOption {
	return func(rt *Runtime) { rt.Metrics = m }
}

// WithTracer sets the OpenTelemetry tracer used for generation spans.
func WithTracer(t trace.Tracer) RuntimeOption {
	return func(rt *Runtime) { rt.Tracer = t }
}

// NewRuntime validates config and creates the shared state for a run.
func NewRuntime(config *Config, opts ...RuntimeOption) (*Runtime, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	activation, err := GetActivation(config.Genome.Activation)
	if err != nil {
		return nil, err
	}

	seed := config.Neat.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rt := &Runtime{
		Config:      config,
		Innovations: NewInnovationRegistry(),
		Rand:        rand.New(rand.NewSource(seed)),
		Logger:      slog.Default(),
		Tracer:      defaultTracer(),
		activation:  activation,
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.Logger == nil {
		return nil, fmt.Errorf("runtime requires a logger")
	}
	return rt, nil
}

// Recurrent reports whether genomes are evaluated as recurrent networks.
func (rt *Runtime) Recurrent() bool {
	return rt.Config.Genome.NetworkType == NetworkRecurrent
}

// NewGenome creates an empty genome with a fresh run-unique id.
func (rt *Runtime) NewGenome() *Genome {
	g := newGenome(rt, rt.nextGenomeID)
	rt.nextGenomeID++
	return g
}
