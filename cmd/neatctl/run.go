package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/evoforge/neat-go/neat"
	"github.com/evoforge/neat-go/neat/store"
)

type runOptions struct {
	generations      int
	seed             int64
	dbPath           string
	runID            string
	metricsAddr      string
	checkpoint       string
	checkpointEvery  int
	improvementsOnly bool
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evolve a network for the XOR task",
	Long: `Evolve a network that computes XOR of its two inputs.

The champion of every generation is saved under a run id, in memory or in a
SQLite database when --db is set. With --checkpoint the run resumes from the
file if it exists and writes it back when the run ends.`,
	Args: cobra.NoArgs,
	RunE: runEvolution,
}

func init() {
	f := runCmd.Flags()
	f.IntVarP(&runOpts.generations, "generations", "g", 0, "override max_generations")
	f.Int64Var(&runOpts.seed, "seed", 0, "override the random seed")
	f.StringVar(&runOpts.dbPath, "db", "", "SQLite database for champions (default: in memory)")
	f.StringVar(&runOpts.runID, "run-id", "", "run id for stored champions (default: random UUID)")
	f.StringVar(&runOpts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.StringVar(&runOpts.checkpoint, "checkpoint", "", "checkpoint file to resume from and save to")
	f.IntVar(&runOpts.checkpointEvery, "checkpoint-every", 0, "also save the checkpoint every N generations")
	f.BoolVar(&runOpts.improvementsOnly, "improvements-only", false, "store a champion only when it beats the previous one")
}

func runEvolution(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if runOpts.generations > 0 {
		config.Neat.MaxGenerations = runOpts.generations
	}
	if runOpts.seed != 0 {
		config.Neat.Seed = runOpts.seed
	}
	if err := checkXORShape(config); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := neat.NewMetrics(registry)
	if runOpts.metricsAddr != "" {
		shutdown := serveMetrics(runOpts.metricsAddr, registry, logger)
		defer shutdown()
	}

	opts := []neat.RuntimeOption{neat.WithLogger(logger), neat.WithMetrics(metrics)}
	pop, err := openPopulation(config, logger, opts)
	if err != nil {
		return err
	}

	kind := "memory"
	if runOpts.dbPath != "" {
		kind = "sqlite"
	}
	champions, err := store.NewStore(kind, runOpts.dbPath)
	if err != nil {
		return err
	}
	if err := champions.Init(ctx); err != nil {
		return fmt.Errorf("opening champion store: %w", err)
	}
	defer champions.Close()

	runID := runOpts.runID
	if runID == "" {
		runID = store.NewRunID()
	}
	reporter := store.NewChampionReporter(champions, runID)
	reporter.OnlyImprovements = runOpts.improvementsOnly
	pop.AddReporter(reporter)
	if runOpts.checkpoint != "" && runOpts.checkpointEvery > 0 {
		pop.AddReporter(neat.ReporterFunc(func(_ context.Context, _ neat.GenerationReport, p *neat.Population) error {
			if p.Generation%runOpts.checkpointEvery != 0 {
				return nil
			}
			return p.SaveCheckpointFile(runOpts.checkpoint)
		}))
	}

	logger.Info("evolution started",
		slog.String("run_id", runID),
		slog.Int("generation", pop.Generation),
		slog.Int("pop_size", config.Neat.PopSize),
		slog.Int("max_generations", config.Neat.MaxGenerations))

	agent := &xorAgent{}
	best, runErr := pop.Run(ctx, neat.AgentFitness(agent, len(xorInputs)))
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("evolution failed: %w", runErr)
	}
	if runOpts.checkpoint != "" {
		if err := pop.SaveCheckpointFile(runOpts.checkpoint); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s finished after %d generations.\n", runID, pop.Generation)
	if best == nil {
		fmt.Fprintln(out, "No genome was evaluated.")
		return nil
	}
	fmt.Fprintf(out, "Best genome %d: fitness %.4f, %d nodes, %d connections (%d enabled)\n\n",
		best.ID, best.Fitness, len(best.Nodes), len(best.Connections), best.EnabledConnections())
	return printXORTable(out, best)
}

// openPopulation resumes from --checkpoint when the file exists, otherwise
// starts a new population.
func openPopulation(config *neat.Config, logger *slog.Logger, opts []neat.RuntimeOption) (*neat.Population, error) {
	if runOpts.checkpoint != "" {
		if _, err := os.Stat(runOpts.checkpoint); err == nil {
			return neat.LoadCheckpointFile(runOpts.checkpoint, config, opts...)
		}
		logger.Info("no checkpoint found, starting new evolution", slog.String("path", runOpts.checkpoint))
	}
	rt, err := neat.NewRuntime(config, opts...)
	if err != nil {
		return nil, err
	}
	return neat.NewPopulation(rt)
}

// serveMetrics exposes the registry over HTTP and returns a shutdown func.
func serveMetrics(addr string, registry *prometheus.Registry, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
