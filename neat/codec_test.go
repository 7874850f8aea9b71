package neat

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evolvedGenome returns a genome grown by a few structural mutations.
func evolvedGenome(t *testing.T, rt *Runtime) *Genome {
	g := newInitializedGenome(t, rt)
	for i := 0; i < 4; i++ {
		require.NoError(t, g.MutateAddNode())
		require.NoError(t, g.MutateAddConnection())
	}
	g.MutateToggleEnabled()
	return g
}

func recurrentFlags(g *Genome) map[int]bool {
	flags := make(map[int]bool, len(g.Connections))
	for _, c := range g.Connections {
		flags[c.InnovNr] = c.Recurrent
	}
	return flags
}

func assertSameBehaviour(t *testing.T, want, got *Genome) {
	want.HardReset()
	got.HardReset()
	for _, in := range [][]float64{{0, 0, 0}, {1, -1, 0.5}, {0.3, 0.2, 0.1}, {-2, 4, 1}} {
		a, err := want.Evaluate(in)
		require.NoError(t, err)
		b, err := got.Evaluate(in)
		require.NoError(t, err)
		assert.Equal(t, a, b, "inputs %v", in)
	}
}

func TestGenomeJSONRoundTrip(t *testing.T) {
	for _, tweak := range []func(*Config){func(*Config) {}, recurrentMode} {
		rt := newTestRuntime(t, 31, tweak)
		g := evolvedGenome(t, rt)
		if rt.Recurrent() {
			for i := 0; i < 5; i++ {
				require.NoError(t, g.MutateAddConnection())
			}
		}

		var buf bytes.Buffer
		require.NoError(t, g.Encode(&buf))
		decoded, err := rt.DecodeGenome(&buf)
		require.NoError(t, err)

		assert.NotEqual(t, g.ID, decoded.ID)
		assert.Equal(t, innovations(g), innovations(decoded))
		assert.Equal(t, recurrentFlags(g), recurrentFlags(decoded))
		assert.Equal(t, nodeIDs(g.Nodes), nodeIDs(decoded.Nodes))
		for _, c := range g.Connections {
			d, ok := decoded.ConnectionByInnovation(c.InnovNr)
			require.True(t, ok)
			assert.Equal(t, c.Key, d.Key)
			assert.Equal(t, c.Weight, d.Weight)
			assert.Equal(t, c.Enabled, d.Enabled)
		}
		checkOrders(t, decoded)
		assertSameBehaviour(t, g, decoded)
	}
}

func TestDecodeIntoFreshRuntime(t *testing.T) {
	source := newTestRuntime(t, 32)
	g := evolvedGenome(t, source)
	data := g.Data()

	rt := newTestRuntime(t, 33)
	decoded, err := rt.GenomeFromData(data)
	require.NoError(t, err)
	assertSameBehaviour(t, g, decoded)

	for _, c := range g.Connections {
		innov, err := rt.Innovations.Lookup(c.Key)
		require.NoError(t, err)
		assert.Equal(t, c.InnovNr, innov)
	}
	fresh := rt.Innovations.Innovation(ConnectionKey{InNodeID: 1000, OutNodeID: 1001})
	assert.Equal(t, g.HighestInnovation()+1, fresh)
	assert.Greater(t, rt.Innovations.NewNodeID(), 0)
	for _, id := range nodeIDs(g.Nodes) {
		_, known := rt.Innovations.NodeLayer(id)
		assert.True(t, known, "node %d", id)
	}
}

func TestDecodeRejectsConflictingInnovation(t *testing.T) {
	rt := newTestRuntime(t, 34, func(c *Config) {
		c.Genome.NumInputs = 1
		c.Genome.NumOutputs = 1
	})
	rt.Innovations.Innovation(ConnectionKey{InNodeID: 0, OutNodeID: 2})

	data := GenomeData{
		NodeGenes: []NodeData{{ID: 0, Layer: LayerInput}, {ID: 1, Layer: LayerInput}, {ID: 2, Layer: LayerOutput, Order: 1}},
		ConnectionGenes: []ConnectionData{{
			InNode:    NodeData{ID: 1, Layer: LayerInput},
			OutNode:   NodeData{ID: 2, Layer: LayerOutput, Order: 1},
			Weight:    0.5,
			InnovNr:   0,
			IsEnabled: true,
		}},
	}
	_, err := rt.GenomeFromData(data)
	require.ErrorIs(t, err, ErrDuplicateConnection)

	data.ConnectionGenes[0].InnovNr = 7
	g, err := rt.GenomeFromData(data)
	require.NoError(t, err)
	c, ok := g.ConnectionByInnovation(7)
	require.True(t, ok)
	assert.Equal(t, 0.5, c.Weight)
	assert.Equal(t, 8, rt.Innovations.Innovation(ConnectionKey{InNodeID: 0, OutNodeID: 1}))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	rt := newTestRuntime(t, 35)
	_, err := rt.DecodeGenome(bytes.NewBufferString(`{"nodeGenes": [`))
	require.Error(t, err)

	dup := `{"nodeGenes":[{"id":0,"layer":0,"order":0},{"id":0,"layer":0,"order":0}],"connectionGenes":[]}`
	_, err = rt.DecodeGenome(bytes.NewBufferString(dup))
	require.ErrorIs(t, err, ErrDuplicateNodeID)
}

func TestGenomeJSONFieldNames(t *testing.T) {
	rt := newTestRuntime(t, 36)
	g := newInitializedGenome(t, rt)

	raw, err := json.Marshal(g)
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc["nodeGenes"], len(g.Nodes))
	require.Len(t, doc["connectionGenes"], len(g.Connections))

	node := doc["nodeGenes"][0]
	assert.ElementsMatch(t, []string{"id", "layer", "order"}, keys(node))
	conn := doc["connectionGenes"][0]
	assert.ElementsMatch(t, []string{"inNode", "outNode", "weight", "innovNr", "isEnabled"}, keys(conn))
	assert.Equal(t, float64(g.Connections[0].InnovNr), conn["innovNr"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
