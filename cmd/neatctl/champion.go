package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evoforge/neat-go/neat"
	"github.com/evoforge/neat-go/neat/store"
)

var (
	championDB         string
	championGeneration int
	championShowGenome bool
	championXOR        bool
)

var championCmd = &cobra.Command{
	Use:   "champion [run-id]",
	Short: "Inspect stored champions",
	Long: `Without a run id, list the runs in the database. With a run id, list the
champion of every generation, or show one champion with --generation. The
best champion of the run is shown with --generation -1. --xor rebuilds the
genome under --config, which should be the configuration of the run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: showChampions,
}

func init() {
	f := championCmd.Flags()
	f.StringVar(&championDB, "db", "neat.db", "SQLite database written by neatctl run --db")
	f.IntVar(&championGeneration, "generation", -2, "show the champion of one generation (-1: best of the run)")
	f.BoolVar(&championShowGenome, "genome", false, "print the genome in its JSON persistence format")
	f.BoolVar(&championXOR, "xor", false, "rebuild the genome and print its XOR answers")
}

func showChampions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	champions := store.NewSQLiteStore(championDB)
	if err := champions.Init(ctx); err != nil {
		return fmt.Errorf("opening champion store: %w", err)
	}
	defer champions.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		runs, err := champions.ListRuns(ctx)
		if err != nil {
			return err
		}
		for _, runID := range runs {
			fmt.Fprintln(out, runID)
		}
		return nil
	}
	runID := args[0]

	if championGeneration < -1 {
		records, err := champions.ListChampions(ctx, runID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "GENERATION\tGENOME\tFITNESS\tNODES\tCONNECTIONS\tSAVED")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%d\t%.4f\t%d\t%d\t%s\n", r.Generation, r.GenomeID, r.Fitness,
				len(r.Genome.NodeGenes), len(r.Genome.ConnectionGenes), r.SavedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	}

	var (
		record store.ChampionRecord
		found  bool
		err    error
	)
	if championGeneration == -1 {
		record, found, err = champions.BestChampion(ctx, runID)
	} else {
		record, found, err = champions.GetChampion(ctx, runID, championGeneration)
	}
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no champion stored for run %s", runID)
	}

	fmt.Fprintf(out, "Run %s, generation %d: genome %d, fitness %.4f\n",
		record.RunID, record.Generation, record.GenomeID, record.Fitness)
	if championShowGenome {
		data, err := json.MarshalIndent(record.Genome, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	}
	if championXOR {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		if err := checkXORShape(config); err != nil {
			return err
		}
		rt, err := neat.NewRuntime(config)
		if err != nil {
			return err
		}
		g, err := rt.GenomeFromData(record.Genome)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		return printXORTable(out, g)
	}
	return nil
}
