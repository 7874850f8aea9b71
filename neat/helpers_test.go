package neat

import (
	"io"
	"log/slog"
	"math/rand"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRuntime builds a seeded runtime from the default configuration
// after applying the given tweaks.
func newTestRuntime(t require.TestingT, seed int64, tweaks ...func(*Config)) *Runtime {
	config := DefaultConfig()
	config.Neat.Seed = seed
	for _, tweak := range tweaks {
		tweak(config)
	}
	rt, err := NewRuntime(config, WithLogger(discardLogger()), WithRand(rand.New(rand.NewSource(seed))))
	require.NoError(t, err)
	return rt
}

func recurrentMode(c *Config) {
	c.Genome.NetworkType = NetworkRecurrent
}

// newInitializedGenome returns a first-generation genome of rt.
func newInitializedGenome(t require.TestingT, rt *Runtime) *Genome {
	g := rt.NewGenome()
	require.NoError(t, g.Initialize())
	return g
}

// newBareGenome returns a genome holding the bias, the inputs and the outputs
// of the configuration but no connections.
func newBareGenome(t require.TestingT, rt *Runtime) *Genome {
	gc := &rt.Config.Genome
	g := rt.NewGenome()
	_, err := g.AddNodeGene(NewNodeGene(BiasNodeID, LayerInput))
	require.NoError(t, err)
	for i := 1; i <= gc.NumInputs; i++ {
		_, err := g.AddNodeGene(NewNodeGene(i, LayerInput))
		require.NoError(t, err)
	}
	for i := 0; i < gc.NumOutputs; i++ {
		_, err := g.AddNodeGene(&NodeGene{ID: gc.NumInputs + 1 + i, Layer: LayerOutput, Order: 1})
		require.NoError(t, err)
	}
	return g
}

func mustNode(t require.TestingT, g *Genome, id int) *NodeGene {
	n, ok := g.Node(id)
	require.True(t, ok, "node %d missing from genome %d", id, g.ID)
	return n
}

func innovations(g *Genome) map[int]bool {
	set := make(map[int]bool, len(g.Connections))
	for _, c := range g.Connections {
		set[c.InnovNr] = true
	}
	return set
}

// checkOrders asserts the structural invariants plus dense orders, inputs at
// order 0 and outputs on the top order.
func checkOrders(t require.TestingT, g *Genome) {
	require.NoError(t, g.Verify())

	highest := 0
	seen := map[int]bool{}
	for _, n := range g.Nodes {
		seen[n.Order] = true
		highest = max(highest, n.Order)
		if n.Layer == LayerInput {
			require.Equal(t, 0, n.Order, "input node %d", n.ID)
		}
	}
	for o := 0; o <= highest; o++ {
		require.True(t, seen[o], "order %d is a gap in genome %d", o, g.ID)
	}
	for _, n := range g.Nodes {
		if n.Layer == LayerOutput {
			require.Equal(t, highest, n.Order, "output node %d", n.ID)
		}
	}
}
