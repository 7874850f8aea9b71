package neat

import (
	"fmt"
	"sort"
)

// Evaluate runs one pass of the network and returns the output node values
// sorted by node id.
//
// The bias emits 1 and the remaining input nodes, by ascending id, take the
// input vector. Every other node, in ascending order, emits the activation of
// the weighted sum over its enabled incoming edges. Recurrent edges read the
// value their source held before this pass started, so memory carries across
// successive calls. In recurrent mode input nodes add their incoming sum to the
// assigned value. With softmax_output the returned vector is normalized.
func (g *Genome) Evaluate(inputs []float64) ([]float64, error) {
	gc := &g.rt.Config.Genome
	if len(inputs) != gc.NumInputs {
		return nil, fmt.Errorf("genome %d: got %d inputs, want %d: %w", g.ID, len(inputs), gc.NumInputs, ErrInputSizeMismatch)
	}
	inputNodes := g.NodesInLayer(LayerInput)
	if len(inputNodes) != gc.NumInputs+1 {
		return nil, fmt.Errorf("genome %d: has %d input nodes, want %d: %w", g.ID, len(inputNodes)-1, gc.NumInputs, ErrInputSizeMismatch)
	}

	var previous map[int]float64
	for _, c := range g.Connections {
		if c.Recurrent && c.Enabled {
			previous = make(map[int]float64, len(g.Nodes))
			for _, n := range g.Nodes {
				previous[n.ID] = n.Output
			}
			break
		}
	}

	next := 0
	for _, n := range inputNodes {
		if n.IsBias() {
			n.Output = 1
			continue
		}
		n.Output = inputs[next]
		next++
	}

	recurrent := g.rt.Recurrent()
	for _, n := range g.evaluationOrder() {
		switch {
		case n.IsBias():
		case n.Layer == LayerInput:
			if recurrent {
				n.Output += g.incomingSum(n, previous)
			}
		default:
			n.Output = g.rt.activation(g.incomingSum(n, previous))
		}
	}

	outputNodes := g.NodesInLayer(LayerOutput)
	outputs := make([]float64, len(outputNodes))
	for i, n := range outputNodes {
		outputs[i] = n.Output
	}
	if gc.SoftmaxOutput {
		Softmax(outputs)
	}
	return outputs, nil
}

// incomingSum accumulates source output times weight over the enabled edges into n.
func (g *Genome) incomingSum(n *NodeGene, previous map[int]float64) float64 {
	sum := 0.0
	for _, c := range g.incoming[n.ID] {
		if !c.Enabled {
			continue
		}
		if c.Recurrent {
			sum += previous[c.Key.InNodeID] * c.Weight
		} else {
			sum += g.nodeIndex[c.Key.InNodeID].Output * c.Weight
		}
	}
	return sum
}

// evaluationOrder returns the nodes sorted by order, ties broken by id.
func (g *Genome) evaluationOrder() []*NodeGene {
	nodes := make([]*NodeGene, len(g.Nodes))
	copy(nodes, g.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Order != nodes[j].Order {
			return nodes[i].Order < nodes[j].Order
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// HardReset zeroes every node output except the bias unit.
func (g *Genome) HardReset() {
	for _, n := range g.Nodes {
		if n.IsBias() {
			n.Output = 1
			continue
		}
		n.Output = 0
	}
}
