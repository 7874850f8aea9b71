// Package neat is a Go implementation of NeuroEvolution of Augmenting
// Topologies (NEAT).
//
// NEAT evolves both the weights and the structure of neural networks. Genomes
// grow by adding connections and nodes; a run-wide innovation registry gives
// every structural edge a number so genomes can be aligned for crossover and
// compared for speciation. Fitness is shared within species and stagnating
// species die out.
//
// The library lives in package neat, compiled networks in neat/nn and
// champion persistence in neat/store. Command neatctl drives an XOR
// experiment end to end.
//
// Basic usage:
//
//	config, err := neat.LoadConfig("configs/xor.ini")
//	if err != nil {
//		log.Fatalf("Error loading config: %v", err)
//	}
//
//	rt, err := neat.NewRuntime(config, neat.WithLogger(slog.Default()))
//	if err != nil {
//		log.Fatalf("Error creating runtime: %v", err)
//	}
//
//	pop, err := neat.NewPopulation(rt)
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	best, err := pop.Run(ctx, func(ctx context.Context, g *neat.Genome) (float64, error) {
//		out, err := g.Evaluate([]float64{1, 0})
//		if err != nil {
//			return 0, err
//		}
//		return 1 - math.Abs(1-out[0]), nil
//	})
package neat
