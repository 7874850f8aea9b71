package neat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/evoforge/neat-go/neat"

// Metrics exposes evolution progress as Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Generation       prometheus.Gauge
	BestFitness      prometheus.Gauge
	MeanFitness      prometheus.Gauge
	SpeciesCount     prometheus.Gauge
	Threshold        prometheus.Gauge
	Evaluations      prometheus.Counter
	Extinctions      prometheus.Counter
	MutationFailures *prometheus.CounterVec
	GenerationTime   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Generation: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_generation",
			Help: "Index of the generation currently being evaluated",
		}),
		BestFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_best_fitness",
			Help: "Highest raw fitness of the last evaluated generation",
		}),
		MeanFitness: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_mean_fitness",
			Help: "Mean raw fitness of the last evaluated generation",
		}),
		SpeciesCount: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_species",
			Help: "Number of species after speciation",
		}),
		Threshold: factory.NewGauge(prometheus.GaugeOpts{
			Name: "neat_compatibility_threshold",
			Help: "Current compatibility distance threshold",
		}),
		Evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "neat_genome_evaluations_total",
			Help: "Genomes evaluated by the fitness function",
		}),
		Extinctions: factory.NewCounter(prometheus.CounterOpts{
			Name: "neat_species_extinctions_total",
			Help: "Species removed for receiving no offspring",
		}),
		MutationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "neat_mutation_failures_total",
			Help: "Mutations skipped because they violated a structural invariant",
		}, []string{"reproduction"}),
		GenerationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "neat_generation_duration_seconds",
			Help:    "Wall time of a full generation",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

func (m *Metrics) observeReport(r GenerationReport) {
	if m == nil {
		return
	}
	m.Generation.Set(float64(r.Generation))
	m.BestFitness.Set(r.BestFitness)
	m.MeanFitness.Set(r.MeanFitness)
	m.SpeciesCount.Set(float64(r.SpeciesCount))
	m.Threshold.Set(r.Threshold)
	m.Extinctions.Add(float64(r.Extinctions))
	m.GenerationTime.Observe(r.Duration.Seconds())
}

func (m *Metrics) countEvaluation() {
	if m == nil {
		return
	}
	m.Evaluations.Inc()
}

func (m *Metrics) countMutationFailure(kind string) {
	if m == nil {
		return
	}
	m.MutationFailures.WithLabelValues(kind).Inc()
}

// defaultTracer returns the tracer of the globally registered provider.
func defaultTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
