package neat

import (
	"fmt"
	"log/slog"
	"sort"
)

// Genome represents an individual organism in the population.
// Nodes and Connections keep insertion order; lookups go through the
// id-keyed indexes. A genome never shares gene values with another genome.
type Genome struct {
	ID              int
	Nodes           []*NodeGene
	Connections     []*ConnectionGene
	Fitness         float64 // Raw fitness reported by the evaluator.
	AdjustedFitness float64 // Fitness after sharing within the species.
	IsElite         bool
	Species         *Species // Lookup relation; the population owns the genome.

	rt         *Runtime
	nodeIndex  map[int]*NodeGene
	connIndex  map[ConnectionKey]*ConnectionGene
	innovIndex map[int]*ConnectionGene
	outgoing   map[int][]*ConnectionGene
	incoming   map[int][]*ConnectionGene
}

func newGenome(rt *Runtime, id int) *Genome {
	return &Genome{
		ID:         id,
		rt:         rt,
		nodeIndex:  make(map[int]*NodeGene),
		connIndex:  make(map[ConnectionKey]*ConnectionGene),
		innovIndex: make(map[int]*ConnectionGene),
		outgoing:   make(map[int][]*ConnectionGene),
		incoming:   make(map[int][]*ConnectionGene),
	}
}

// Runtime returns the run state the genome belongs to.
func (g *Genome) Runtime() *Runtime {
	return g.rt
}

// Node returns the node gene with the given id.
func (g *Genome) Node(id int) (*NodeGene, bool) {
	n, ok := g.nodeIndex[id]
	return n, ok
}

// Connection returns the connection gene for key.
func (g *Genome) Connection(key ConnectionKey) (*ConnectionGene, bool) {
	c, ok := g.connIndex[key]
	return c, ok
}

// ConnectionByInnovation returns the connection gene carrying innovation number innov.
func (g *Genome) ConnectionByInnovation(innov int) (*ConnectionGene, bool) {
	c, ok := g.innovIndex[innov]
	return c, ok
}

// HighestInnovation returns the largest innovation number in the genome, or -1 without connections.
func (g *Genome) HighestInnovation() int {
	highest := -1
	for _, c := range g.Connections {
		if c.InnovNr > highest {
			highest = c.InnovNr
		}
	}
	return highest
}

// NodesInLayer returns the nodes of one layer sorted by id.
func (g *Genome) NodesInLayer(layer Layer) []*NodeGene {
	var nodes []*NodeGene
	for _, n := range g.Nodes {
		if n.Layer == layer {
			nodes = append(nodes, n)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes
}

// EnabledConnections returns the number of enabled connection genes.
func (g *Genome) EnabledConnections() int {
	n := 0
	for _, c := range g.Connections {
		if c.Enabled {
			n++
		}
	}
	return n
}

// LogValue implements slog.LogValuer.
func (g *Genome) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", g.ID),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("connections", len(g.Connections)),
		slog.Float64("fitness", g.Fitness),
	)
}

// --------------------------- Initialization ---------------------------

// Initialize wires a first-generation genome according to the configuration.
// Node ids are fixed: 0 is the bias, 1..N the inputs, N+1..N+M the outputs and
// N+M+1 the optional start hidden node, so equal structures share innovations.
func (g *Genome) Initialize() error {
	gc := &g.rt.Config.Genome
	if gc.InitialConnection == InitMinimalRandom && gc.StartWithHidden {
		return fmt.Errorf("genome %d: minimal_random initialization cannot start with a hidden node", g.ID)
	}

	bias := &NodeGene{ID: BiasNodeID, Layer: LayerInput}
	if _, err := g.AddNodeGene(bias); err != nil {
		return err
	}
	for i := 1; i <= gc.NumInputs; i++ {
		if _, err := g.AddNodeGene(NewNodeGene(i, LayerInput)); err != nil {
			return err
		}
	}

	outputOrder := 1
	if gc.StartWithHidden {
		outputOrder = 2
	}
	for i := 0; i < gc.NumOutputs; i++ {
		out := &NodeGene{ID: gc.NumInputs + 1 + i, Layer: LayerOutput, Order: outputOrder}
		if _, err := g.AddNodeGene(out); err != nil {
			return err
		}
	}

	switch gc.InitialConnection {
	case InitMinimalRandom:
		inputs := g.NodesInLayer(LayerInput)
		outputs := g.NodesInLayer(LayerOutput)
		in := inputs[g.rt.Rand.Intn(len(inputs))]
		out := outputs[g.rt.Rand.Intn(len(outputs))]
		_, err := g.AddConnection(in, out, randomWeight(g.rt.Rand), true)
		return err
	default:
		if gc.StartWithHidden {
			hidden := &NodeGene{ID: gc.NumInputs + gc.NumOutputs + 1, Layer: LayerHidden, Order: 1}
			if _, err := g.AddNodeGene(hidden); err != nil {
				return err
			}
			if err := g.connectLayers(LayerInput, LayerHidden); err != nil {
				return err
			}
			return g.connectLayers(LayerHidden, LayerOutput)
		}
		return g.connectLayers(LayerInput, LayerOutput)
	}
}

// connectLayers fully connects every node of one layer to every node of another.
func (g *Genome) connectLayers(from, to Layer) error {
	for _, in := range g.NodesInLayer(from) {
		for _, out := range g.NodesInLayer(to) {
			if _, err := g.AddConnection(in, out, randomWeight(g.rt.Rand), true); err != nil {
				return err
			}
		}
	}
	return nil
}

// Copy returns a deep copy of the genes under a new genome id.
// Fitness, species and elite state are not carried over and node outputs start reset.
func (g *Genome) Copy() *Genome {
	c := g.rt.NewGenome()
	for _, n := range g.Nodes {
		c.insertNode(n.Copy())
	}
	for _, cg := range g.Connections {
		c.insertConnection(cg.Copy())
	}
	c.HardReset()
	return c
}

// --------------------------- Structure ---------------------------

// AddNodeGene adds a copy of node to the genome. The copy starts with order 0
// and output 0, except the bias unit (order 0, output 1) and output nodes,
// which keep the supplied order. The id is recorded in the run registry.
func (g *Genome) AddNodeGene(node *NodeGene) (*NodeGene, error) {
	if _, exists := g.nodeIndex[node.ID]; exists {
		return nil, fmt.Errorf("genome %d: node %d: %w", g.ID, node.ID, ErrDuplicateNodeID)
	}
	if layer, known := g.rt.Innovations.NodeLayer(node.ID); known && layer != node.Layer {
		return nil, fmt.Errorf("genome %d: node %d: registered as %s, not %s: %w",
			g.ID, node.ID, layer, node.Layer, ErrDuplicateNodeID)
	}

	ng := NewNodeGene(node.ID, node.Layer)
	if ng.IsBias() {
		ng.Order = 0
		ng.Output = 1
	}
	if ng.Layer == LayerOutput {
		ng.Order = node.Order
	}

	g.rt.Innovations.RegisterNode(ng.ID, ng.Layer)
	g.insertNode(ng)
	return ng, nil
}

// AddConnection inserts an edge between in and out, importing either node if
// the genome does not hold its id yet. The innovation number comes from the
// run registry. Node orders are repaired so every non-recurrent edge points
// to a strictly higher order; an edge that cannot satisfy this (it would close
// a cycle, leaves an output, enters an input or is a self loop) is stored as
// recurrent instead.
func (g *Genome) AddConnection(in, out *NodeGene, weight float64, enabled bool) (*ConnectionGene, error) {
	key := ConnectionKey{InNodeID: in.ID, OutNodeID: out.ID}
	if _, exists := g.connIndex[key]; exists {
		return nil, fmt.Errorf("genome %d: connection %s: %w", g.ID, key, ErrDuplicateConnection)
	}
	innov := g.rt.Innovations.Innovation(key)
	if existing, exists := g.innovIndex[innov]; exists {
		return nil, fmt.Errorf("genome %d: connection %s: innovation %d already held by %s: %w",
			g.ID, key, innov, existing.Key, ErrDuplicateConnection)
	}

	inNode, err := g.resolveNode(in)
	if err != nil {
		return nil, err
	}
	outNode, err := g.resolveNode(out)
	if err != nil {
		return nil, err
	}

	// A hidden node that gains its first outgoing edge sits at least one layer above the inputs.
	if inNode.Layer == LayerHidden && inNode.Order == 0 {
		inNode.Order = 1
		g.propagateOrder(inNode)
	}

	recurrent := false
	if outNode.Order <= inNode.Order {
		if g.canOrder(inNode, outNode) {
			outNode.Order = inNode.Order + 1
			g.propagateOrder(outNode)
		} else {
			recurrent = true
		}
	}

	cg := &ConnectionGene{
		Key:       key,
		Weight:    weight,
		InnovNr:   innov,
		Enabled:   enabled,
		Recurrent: recurrent,
	}
	g.insertConnection(cg)
	g.pinOutputs()
	g.normalizeOrder()
	return cg, nil
}

// resolveNode returns the genome's own node with the id of n, importing it if absent.
func (g *Genome) resolveNode(n *NodeGene) (*NodeGene, error) {
	if existing, ok := g.nodeIndex[n.ID]; ok {
		return existing, nil
	}
	return g.AddNodeGene(n)
}

// canOrder reports whether out may be moved above in.
func (g *Genome) canOrder(in, out *NodeGene) bool {
	if out.Layer == LayerInput || in.Layer == LayerOutput || in.ID == out.ID {
		return false
	}
	return !g.pathExists(out, in)
}

// pathExists reports whether to is reachable from from over non-recurrent edges.
// Order strictly increases along such edges, so nodes ordered above the target
// are never expanded; this bounds the search by the current maximum order.
func (g *Genome) pathExists(from, to *NodeGene) bool {
	visited := map[int]bool{from.ID: true}
	queue := []*NodeGene{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current.ID == to.ID {
			return true
		}
		for _, c := range g.outgoing[current.ID] {
			if c.Recurrent || visited[c.Key.OutNodeID] {
				continue
			}
			next := g.nodeIndex[c.Key.OutNodeID]
			if next.ID != to.ID && next.Order >= to.Order {
				continue
			}
			visited[next.ID] = true
			queue = append(queue, next)
		}
	}
	return false
}

// propagateOrder pushes every downstream node whose order collides with its
// predecessor one step above it. It walks a worklist over the non-recurrent
// edges, which form a DAG, so it terminates.
func (g *Genome) propagateOrder(start *NodeGene) {
	queue := []*NodeGene{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range g.outgoing[current.ID] {
			if c.Recurrent {
				continue
			}
			next := g.nodeIndex[c.Key.OutNodeID]
			if next.Order <= current.Order {
				next.Order = current.Order + 1
				queue = append(queue, next)
			}
		}
	}
}

// pinOutputs places every output node one above the highest non-output order.
func (g *Genome) pinOutputs() {
	highest := -1
	for _, n := range g.Nodes {
		if n.Layer != LayerOutput && n.Order > highest {
			highest = n.Order
		}
	}
	for _, n := range g.Nodes {
		if n.Layer == LayerOutput {
			n.Order = highest + 1
		}
	}
}

// normalizeOrder compacts order values into a dense sequence starting at 0,
// keeping their relative ranking.
func (g *Genome) normalizeOrder() {
	seen := make(map[int]bool, len(g.Nodes))
	values := make([]int, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if !seen[n.Order] {
			seen[n.Order] = true
			values = append(values, n.Order)
		}
	}
	sort.Ints(values)
	rank := make(map[int]int, len(values))
	for i, v := range values {
		rank[v] = i
	}
	for _, n := range g.Nodes {
		n.Order = rank[n.Order]
	}
}

func (g *Genome) insertNode(n *NodeGene) {
	g.Nodes = append(g.Nodes, n)
	g.nodeIndex[n.ID] = n
}

func (g *Genome) insertConnection(c *ConnectionGene) {
	g.Connections = append(g.Connections, c)
	g.connIndex[c.Key] = c
	g.innovIndex[c.InnovNr] = c
	g.outgoing[c.Key.InNodeID] = append(g.outgoing[c.Key.InNodeID], c)
	g.incoming[c.Key.OutNodeID] = append(g.incoming[c.Key.OutNodeID], c)
}

// Verify checks the structural invariants: unique node ids, unique node pairs
// and innovation numbers, resolvable endpoints and, for every non-recurrent
// connection, an out node ordered strictly above its in node.
func (g *Genome) Verify() error {
	ids := make(map[int]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if ids[n.ID] {
			return fmt.Errorf("genome %d: node %d: %w", g.ID, n.ID, ErrDuplicateNodeID)
		}
		ids[n.ID] = true
	}
	keys := make(map[ConnectionKey]bool, len(g.Connections))
	innovs := make(map[int]bool, len(g.Connections))
	for _, c := range g.Connections {
		if keys[c.Key] || innovs[c.InnovNr] {
			return fmt.Errorf("genome %d: connection %s (innovation %d): %w", g.ID, c.Key, c.InnovNr, ErrDuplicateConnection)
		}
		keys[c.Key] = true
		innovs[c.InnovNr] = true

		in, okIn := g.nodeIndex[c.Key.InNodeID]
		out, okOut := g.nodeIndex[c.Key.OutNodeID]
		if !okIn || !okOut {
			return fmt.Errorf("genome %d: connection %s references a missing node", g.ID, c.Key)
		}
		if !c.Recurrent && out.Order <= in.Order {
			return fmt.Errorf("genome %d: connection %s breaks ordering (%d -> %d)", g.ID, c.Key, in.Order, out.Order)
		}
	}
	return nil
}
