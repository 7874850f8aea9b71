package neat

import (
	"encoding/json"
	"fmt"
	"io"
)

// NodeData is the persisted form of a node gene.
type NodeData struct {
	ID    int   `json:"id"`
	Layer Layer `json:"layer"`
	Order int   `json:"order"`
}

// ConnectionData is the persisted form of a connection gene.
type ConnectionData struct {
	InNode    NodeData `json:"inNode"`
	OutNode   NodeData `json:"outNode"`
	Weight    float64  `json:"weight"`
	InnovNr   int      `json:"innovNr"`
	IsEnabled bool     `json:"isEnabled"`
}

// GenomeData is the persisted form of a genome. Connections keep the
// genome's insertion order, which decoding replays.
type GenomeData struct {
	NodeGenes       []NodeData       `json:"nodeGenes"`
	ConnectionGenes []ConnectionData `json:"connectionGenes"`
}

func nodeData(n *NodeGene) NodeData {
	return NodeData{ID: n.ID, Layer: n.Layer, Order: n.Order}
}

// Data returns the persisted form of g.
func (g *Genome) Data() GenomeData {
	data := GenomeData{
		NodeGenes:       make([]NodeData, 0, len(g.Nodes)),
		ConnectionGenes: make([]ConnectionData, 0, len(g.Connections)),
	}
	for _, n := range g.Nodes {
		data.NodeGenes = append(data.NodeGenes, nodeData(n))
	}
	for _, c := range g.Connections {
		data.ConnectionGenes = append(data.ConnectionGenes, ConnectionData{
			InNode:    nodeData(g.nodeIndex[c.Key.InNodeID]),
			OutNode:   nodeData(g.nodeIndex[c.Key.OutNodeID]),
			Weight:    c.Weight,
			InnovNr:   c.InnovNr,
			IsEnabled: c.Enabled,
		})
	}
	return data
}

// MarshalJSON implements json.Marshaler.
func (g *Genome) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Data())
}

// Encode writes g as JSON to w.
func (g *Genome) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(g.Data())
}

// GenomeFromData rebuilds a genome under a fresh id of rt. Nodes are added
// first, then connections are replayed in order through AddConnection, so
// orders and recurrent flags are recomputed. Stored innovation numbers are
// adopted by the registry of rt; one that conflicts with it is an error.
func (rt *Runtime) GenomeFromData(data GenomeData) (*Genome, error) {
	g := rt.NewGenome()
	for _, nd := range data.NodeGenes {
		if _, err := g.AddNodeGene(&NodeGene{ID: nd.ID, Layer: nd.Layer, Order: nd.Order}); err != nil {
			return nil, fmt.Errorf("decode genome: %w", err)
		}
	}
	for _, cd := range data.ConnectionGenes {
		in := &NodeGene{ID: cd.InNode.ID, Layer: cd.InNode.Layer, Order: cd.InNode.Order}
		out := &NodeGene{ID: cd.OutNode.ID, Layer: cd.OutNode.Layer, Order: cd.OutNode.Order}
		if err := rt.Innovations.Adopt(ConnectionKey{InNodeID: in.ID, OutNodeID: out.ID}, cd.InnovNr); err != nil {
			return nil, fmt.Errorf("decode genome: %w", err)
		}
		if _, err := g.AddConnection(in, out, cd.Weight, cd.IsEnabled); err != nil {
			return nil, fmt.Errorf("decode genome: %w", err)
		}
	}
	g.HardReset()
	return g, nil
}

// DecodeGenome reads a JSON genome from r and rebuilds it under rt.
func (rt *Runtime) DecodeGenome(r io.Reader) (*Genome, error) {
	var data GenomeData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode genome: %w", err)
	}
	return rt.GenomeFromData(data)
}
