package neat

import (
	"errors"
	"fmt"
)

// MutateAddConnection inserts one new edge chosen uniformly among the absent,
// legal node pairs, with a weight drawn from [-1, 1). It is a no-op when the
// genome is fully connected.
//
// Feed-forward genomes only consider pairs that keep the network acyclic:
// the source is not an output, the target is not an input, the two nodes are
// not yet joined in either direction and the target cannot already reach the
// source. Recurrent genomes consider every pair except input to input, with
// the bias never used as a target.
func (g *Genome) MutateAddConnection() error {
	type pair struct{ in, out *NodeGene }
	var candidates []pair

	recurrent := g.rt.Recurrent()
	for _, in := range g.Nodes {
		for _, out := range g.Nodes {
			key := ConnectionKey{InNodeID: in.ID, OutNodeID: out.ID}
			if _, exists := g.connIndex[key]; exists {
				continue
			}
			if recurrent {
				if (in.Layer == LayerInput && out.Layer == LayerInput) || out.IsBias() {
					continue
				}
			} else {
				if in.Layer == LayerOutput || out.Layer == LayerInput || in.ID == out.ID {
					continue
				}
				if _, exists := g.connIndex[ConnectionKey{InNodeID: out.ID, OutNodeID: in.ID}]; exists {
					continue
				}
				if g.pathExists(out, in) {
					continue
				}
			}
			candidates = append(candidates, pair{in, out})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	p := candidates[g.rt.Rand.Intn(len(candidates))]
	if _, err := g.AddConnection(p.in, p.out, randomWeight(g.rt.Rand), true); err != nil {
		return fmt.Errorf("add connection mutation: %w", err)
	}
	return nil
}

// MutateAddNode splits a uniformly chosen enabled connection: the edge is
// disabled and replaced by in->new (weight 1) and new->out (old weight).
func (g *Genome) MutateAddNode() error {
	var enabled []*ConnectionGene
	for _, c := range g.Connections {
		if c.Enabled {
			enabled = append(enabled, c)
		}
	}
	if len(enabled) == 0 {
		return nil
	}

	split := enabled[g.rt.Rand.Intn(len(enabled))]
	split.Enabled = false

	in := g.nodeIndex[split.Key.InNodeID]
	out := g.nodeIndex[split.Key.OutNodeID]
	node, err := g.AddNodeGene(NewNodeGene(g.rt.Innovations.NewNodeID(), LayerHidden))
	if err != nil {
		return fmt.Errorf("add node mutation: %w", err)
	}
	if _, err := g.AddConnection(in, node, 1, true); err != nil {
		return fmt.Errorf("add node mutation: %w", err)
	}
	if _, err := g.AddConnection(node, out, split.Weight, true); err != nil {
		return fmt.Errorf("add node mutation: %w", err)
	}
	return nil
}

// MutateWeights changes the weight of every enabled connection: with the
// perturb rate it adds gaussian noise, otherwise it draws a fresh weight.
func (g *Genome) MutateWeights() {
	gc := &g.rt.Config.Genome
	for _, c := range g.Connections {
		if !c.Enabled {
			continue
		}
		if chance(g.rt.Rand, gc.WeightPerturbRate) {
			c.Weight += g.rt.Rand.NormFloat64() * gc.WeightMutatePower
		} else {
			c.Weight = randomWeight(g.rt.Rand)
		}
	}
}

// MutateToggleEnabled flips the enabled flag of one random connection.
func (g *Genome) MutateToggleEnabled() {
	if len(g.Connections) == 0 {
		return
	}
	c := g.Connections[g.rt.Rand.Intn(len(g.Connections))]
	c.Enabled = !c.Enabled
}

// Mutate applies each operator independently with its configured rate,
// in the order add connection, add node, weights, toggle.
func (g *Genome) Mutate() error {
	gc := &g.rt.Config.Genome
	var errs []error
	if chance(g.rt.Rand, gc.ConnAddProb) {
		errs = append(errs, g.MutateAddConnection())
	}
	if chance(g.rt.Rand, gc.NodeAddProb) {
		errs = append(errs, g.MutateAddNode())
	}
	if chance(g.rt.Rand, gc.WeightMutateRate) {
		g.MutateWeights()
	}
	if chance(g.rt.Rand, gc.EnabledMutateRate) {
		g.MutateToggleEnabled()
	}
	return errors.Join(errs...)
}

// mutation is one named operator for ForceMutate.
type mutation struct {
	name  string
	apply func() error
}

// ForceMutate applies exactly one operator, chosen by roulette wheel over the
// operators with a non-zero rate.
func (g *Genome) ForceMutate() error {
	gc := &g.rt.Config.Genome
	choices := []Weighted[mutation]{
		{gc.ConnAddProb, mutation{"add_connection", g.MutateAddConnection}},
		{gc.NodeAddProb, mutation{"add_node", g.MutateAddNode}},
		{gc.WeightMutateRate, mutation{"weights", func() error { g.MutateWeights(); return nil }}},
		{gc.EnabledMutateRate, mutation{"toggle_enabled", func() error { g.MutateToggleEnabled(); return nil }}},
	}
	m, err := RouletteWheel(g.rt.Rand, choices)
	if err != nil {
		return fmt.Errorf("force mutation of genome %d: %w", g.ID, err)
	}
	if err := m.apply(); err != nil {
		return fmt.Errorf("force mutation %s of genome %d: %w", m.name, g.ID, err)
	}
	return nil
}
