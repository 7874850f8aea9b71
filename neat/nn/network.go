// Package nn compiles genomes into standalone networks. A compiled network
// keeps its own node state, so it can be activated without touching the
// genome it was built from.
package nn

import (
	"fmt"
	"sort"

	"github.com/evoforge/neat-go/neat"
)

type link struct {
	from      int // slot of the source node
	weight    float64
	recurrent bool
}

// step is one node activation in evaluation order.
type step struct {
	slot  int
	input bool
	links []link
}

// Network is a compiled phenotype. Activate produces exactly what
// Genome.Evaluate would for the same genome state and inputs.
type Network struct {
	inputSlots  []int // non-bias input nodes by ascending id
	outputSlots []int // output nodes by ascending id
	biasSlot    int
	steps       []step
	values      []float64
	previous    []float64

	activation        neat.ActivationFunc
	recurrentMode     bool
	hasRecurrentLinks bool
	softmax           bool
}

// New compiles g. Node values start from the genome's current node outputs.
func New(g *neat.Genome) (*Network, error) {
	config := g.Runtime().Config
	activation, err := neat.GetActivation(config.Genome.Activation)
	if err != nil {
		return nil, err
	}

	slots := make(map[int]int, len(g.Nodes))
	net := &Network{
		biasSlot:      -1,
		values:        make([]float64, len(g.Nodes)),
		activation:    activation,
		recurrentMode: g.Runtime().Recurrent(),
		softmax:       config.Genome.SoftmaxOutput,
	}

	ordered := make([]*neat.NodeGene, len(g.Nodes))
	copy(ordered, g.Nodes)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})
	for i, n := range ordered {
		slots[n.ID] = i
		net.values[i] = n.Output
	}

	incoming := make(map[int][]link)
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		incoming[c.Key.OutNodeID] = append(incoming[c.Key.OutNodeID], link{
			from:      slots[c.Key.InNodeID],
			weight:    c.Weight,
			recurrent: c.Recurrent,
		})
		if c.Recurrent {
			net.hasRecurrentLinks = true
		}
	}

	for _, n := range g.NodesInLayer(neat.LayerInput) {
		if n.IsBias() {
			net.biasSlot = slots[n.ID]
			continue
		}
		net.inputSlots = append(net.inputSlots, slots[n.ID])
	}
	for _, n := range g.NodesInLayer(neat.LayerOutput) {
		net.outputSlots = append(net.outputSlots, slots[n.ID])
	}
	if len(net.inputSlots) != config.Genome.NumInputs {
		return nil, fmt.Errorf("genome %d: has %d input nodes, want %d: %w",
			g.ID, len(net.inputSlots), config.Genome.NumInputs, neat.ErrInputSizeMismatch)
	}

	for i, n := range ordered {
		if n.IsBias() {
			continue
		}
		net.steps = append(net.steps, step{
			slot:  i,
			input: n.Layer == neat.LayerInput,
			links: incoming[n.ID],
		})
	}
	if net.hasRecurrentLinks {
		net.previous = make([]float64, len(net.values))
	}
	return net, nil
}

// Activate runs one pass with the given inputs and returns the outputs in
// ascending node id order.
func (net *Network) Activate(inputs []float64) ([]float64, error) {
	if len(inputs) != len(net.inputSlots) {
		return nil, fmt.Errorf("got %d inputs, want %d: %w", len(inputs), len(net.inputSlots), neat.ErrInputSizeMismatch)
	}
	if net.hasRecurrentLinks {
		copy(net.previous, net.values)
	}

	if net.biasSlot >= 0 {
		net.values[net.biasSlot] = 1
	}
	for i, slot := range net.inputSlots {
		net.values[slot] = inputs[i]
	}

	for _, s := range net.steps {
		sum := 0.0
		for _, l := range s.links {
			if l.recurrent {
				sum += net.previous[l.from] * l.weight
			} else {
				sum += net.values[l.from] * l.weight
			}
		}
		switch {
		case s.input:
			if net.recurrentMode {
				net.values[s.slot] += sum
			}
		default:
			net.values[s.slot] = net.activation(sum)
		}
	}

	outputs := make([]float64, len(net.outputSlots))
	for i, slot := range net.outputSlots {
		outputs[i] = net.values[slot]
	}
	if net.softmax {
		neat.Softmax(outputs)
	}
	return outputs, nil
}

// Reset clears the node state: the bias emits 1, every other node 0.
func (net *Network) Reset() {
	for i := range net.values {
		net.values[i] = 0
	}
	if net.biasSlot >= 0 {
		net.values[net.biasSlot] = 1
	}
}

// NodeCount returns the number of nodes in the network.
func (net *Network) NodeCount() int {
	return len(net.values)
}
