package neat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInnovationNumbersAreStablePerEdge(t *testing.T) {
	r := NewInnovationRegistry()

	a := r.Innovation(ConnectionKey{InNodeID: 1, OutNodeID: 4})
	b := r.Innovation(ConnectionKey{InNodeID: 2, OutNodeID: 4})
	again := r.Innovation(ConnectionKey{InNodeID: 1, OutNodeID: 4})
	reversed := r.Innovation(ConnectionKey{InNodeID: 4, OutNodeID: 1})

	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, a, again)
	assert.Equal(t, 2, reversed)
	assert.Equal(t, 3, r.ConnectionCount())
}

func TestInnovationLookup(t *testing.T) {
	r := NewInnovationRegistry()
	key := ConnectionKey{InNodeID: 0, OutNodeID: 3}

	_, err := r.Lookup(key)
	require.ErrorIs(t, err, ErrMissingInnovation)

	want := r.Innovation(key)
	got, err := r.Lookup(key)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRegistryNodeIDs(t *testing.T) {
	r := NewInnovationRegistry()
	assert.True(t, r.RegisterNode(0, LayerInput))
	assert.True(t, r.RegisterNode(5, LayerOutput))
	assert.False(t, r.RegisterNode(5, LayerOutput))

	layer, ok := r.NodeLayer(5)
	require.True(t, ok)
	assert.Equal(t, LayerOutput, layer)

	assert.Equal(t, 6, r.NewNodeID())
	assert.Equal(t, 7, r.NewNodeID())

	r.Reset()
	_, ok = r.NodeLayer(5)
	assert.False(t, ok)
	assert.Equal(t, 0, r.NewNodeID())
}

func TestRegistryAdopt(t *testing.T) {
	r := NewInnovationRegistry()
	r.Innovation(ConnectionKey{InNodeID: 1, OutNodeID: 3})

	require.NoError(t, r.Adopt(ConnectionKey{InNodeID: 1, OutNodeID: 3}, 0))
	require.NoError(t, r.Adopt(ConnectionKey{InNodeID: 2, OutNodeID: 3}, 7))
	assert.Equal(t, 8, r.Innovation(ConnectionKey{InNodeID: 0, OutNodeID: 3}), "next innovation continues after the adopted one")

	err := r.Adopt(ConnectionKey{InNodeID: 1, OutNodeID: 3}, 4)
	require.ErrorIs(t, err, ErrDuplicateConnection)
	err = r.Adopt(ConnectionKey{InNodeID: 9, OutNodeID: 3}, 7)
	require.ErrorIs(t, err, ErrDuplicateConnection)
}

func TestRegistryStateRestore(t *testing.T) {
	r := NewInnovationRegistry()
	r.RegisterNode(0, LayerInput)
	r.RegisterNode(1, LayerOutput)
	r.Innovation(ConnectionKey{InNodeID: 0, OutNodeID: 1})
	r.Innovation(ConnectionKey{InNodeID: 1, OutNodeID: 0})
	r.NewNodeID()

	state := r.State()
	require.Len(t, state.Connections, 2)
	assert.Equal(t, 0, state.Connections[0].InnovNr)
	assert.Equal(t, 1, state.Connections[1].InnovNr)

	restored := NewInnovationRegistry()
	restored.Restore(state)
	assert.Equal(t, state, restored.State())
	assert.Equal(t, r.NewNodeID(), restored.NewNodeID())
	assert.Equal(t, r.Innovation(ConnectionKey{InNodeID: 1, OutNodeID: 1}),
		restored.Innovation(ConnectionKey{InNodeID: 1, OutNodeID: 1}))
}

func TestInnovationDeterminismAcrossGenomes(t *testing.T) {
	rt := newTestRuntime(t, 1)
	a := newBareGenome(t, rt)
	b := newBareGenome(t, rt)

	// Unrelated edge in a first, so the shared edge is not simply innovation 0 in both.
	_, err := a.AddConnection(mustNode(t, a, 2), mustNode(t, a, 5), 0.3, true)
	require.NoError(t, err)

	ca, err := a.AddConnection(mustNode(t, a, 1), mustNode(t, a, 4), 0.1, true)
	require.NoError(t, err)
	cb, err := b.AddConnection(mustNode(t, b, 1), mustNode(t, b, 4), -0.7, true)
	require.NoError(t, err)

	assert.Equal(t, ca.InnovNr, cb.InnovNr)
	assert.Equal(t, 1, cb.InnovNr)
}
