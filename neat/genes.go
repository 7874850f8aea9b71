package neat

import (
	"fmt"
)

// Layer identifies the role a node plays inside the network.
type Layer int

const (
	LayerInput Layer = iota
	LayerHidden
	LayerOutput
)

// String returns the lower case layer name.
func (l Layer) String() string {
	switch l {
	case LayerInput:
		return "input"
	case LayerHidden:
		return "hidden"
	case LayerOutput:
		return "output"
	default:
		return fmt.Sprintf("layer(%d)", int(l))
	}
}

// BiasNodeID is the id reserved for the bias unit. Its output is always 1.
const BiasNodeID = 0

// --------------------------- NodeGene ---------------------------

// NodeGene represents a neuron in the genome.
// ID and Layer are its identity; Order and Output are runtime state that
// the owning genome recomputes.
type NodeGene struct {
	ID     int
	Layer  Layer
	Order  int     // Topological rank. Non-recurrent edges always point to a higher order.
	Output float64 // Value produced by the last evaluation pass.
}

// NewNodeGene creates a node gene with zero order and output.
func NewNodeGene(id int, layer Layer) *NodeGene {
	return &NodeGene{ID: id, Layer: layer}
}

// IsBias reports whether the node is the bias unit.
func (ng *NodeGene) IsBias() bool {
	return ng.ID == BiasNodeID
}

// String returns a string representation of the NodeGene.
func (ng *NodeGene) String() string {
	return fmt.Sprintf("NodeGene(ID: %d, Layer: %s, Order: %d, Output: %.4f)", ng.ID, ng.Layer, ng.Order, ng.Output)
}

// Copy creates a deep copy of the NodeGene.
func (ng *NodeGene) Copy() *NodeGene {
	c := *ng
	return &c
}

// --------------------------- ConnectionGene ---------------------------

// ConnectionKey identifies a connection by the ids of the nodes it joins.
type ConnectionKey struct {
	InNodeID  int
	OutNodeID int
}

// String returns "in->out".
func (k ConnectionKey) String() string {
	return fmt.Sprintf("%d->%d", k.InNodeID, k.OutNodeID)
}

// ConnectionGene represents a weighted edge between two node genes.
type ConnectionGene struct {
	Key       ConnectionKey
	Weight    float64
	InnovNr   int // Run-wide innovation number used to align homologous genes.
	Enabled   bool
	Recurrent bool // Reads the previous pass output of its source node.
}

// String returns a string representation of the ConnectionGene.
func (cg *ConnectionGene) String() string {
	return fmt.Sprintf("ConnectionGene(Key: %s, Innov: %d, Weight: %.3f, Enabled: %t, Recurrent: %t)",
		cg.Key, cg.InnovNr, cg.Weight, cg.Enabled, cg.Recurrent)
}

// Copy creates a deep copy of the ConnectionGene.
func (cg *ConnectionGene) Copy() *ConnectionGene {
	c := *cg
	return &c
}
