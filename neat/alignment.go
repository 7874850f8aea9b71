package neat

import (
	"fmt"
	"math"
	"sort"
)

// GeneKind classifies a connection gene when two genomes are aligned.
type GeneKind int

const (
	// GeneMatching genes exist in both genomes.
	GeneMatching GeneKind = iota
	// GeneDisjoint genes exist in one genome only, inside the other genome's innovation range.
	GeneDisjoint
	// GeneExcess genes exist in one genome only, beyond the other genome's highest innovation.
	GeneExcess
)

func (k GeneKind) String() string {
	switch k {
	case GeneMatching:
		return "matching"
	case GeneDisjoint:
		return "disjoint"
	case GeneExcess:
		return "excess"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// AlignedGene is one innovation number present in at least one of two genomes.
// A or B is nil when that genome lacks the gene.
type AlignedGene struct {
	InnovNr int
	Kind    GeneKind
	A, B    *ConnectionGene
}

// Align lines up the connection genes of a and b by innovation number,
// in ascending order.
func Align(a, b *Genome) []AlignedGene {
	highestA, highestB := a.HighestInnovation(), b.HighestInnovation()

	innovs := make([]int, 0, len(a.Connections)+len(b.Connections))
	for _, c := range a.Connections {
		innovs = append(innovs, c.InnovNr)
	}
	for _, c := range b.Connections {
		if _, shared := a.innovIndex[c.InnovNr]; !shared {
			innovs = append(innovs, c.InnovNr)
		}
	}
	sort.Ints(innovs)

	aligned := make([]AlignedGene, 0, len(innovs))
	for _, innov := range innovs {
		ca, inA := a.innovIndex[innov]
		cb, inB := b.innovIndex[innov]
		gene := AlignedGene{InnovNr: innov, A: ca, B: cb}
		switch {
		case inA && inB:
			gene.Kind = GeneMatching
		case inA:
			gene.Kind = classify(innov, highestB)
		default:
			gene.Kind = classify(innov, highestA)
		}
		aligned = append(aligned, gene)
	}
	return aligned
}

func classify(innov, otherHighest int) GeneKind {
	if innov < otherHighest {
		return GeneDisjoint
	}
	return GeneExcess
}

// CompatibilityDistance measures how far apart two genomes are:
//
//	c1*excess/N + c2*disjoint/N + c3*mean|weight difference of matching genes|
//
// N is 1 while both genomes hold fewer than 20 connection genes, otherwise
// the larger gene count. It is 0 when speciation is disabled.
func CompatibilityDistance(a, b *Genome) float64 {
	config := a.rt.Config
	if !config.SpeciesSet.SpeciationEnabled {
		return 0
	}

	n := 1
	if len(a.Connections) >= 20 || len(b.Connections) >= 20 {
		n = max(len(a.Connections), len(b.Connections))
	}

	excess, disjoint, matching := 0, 0, 0
	weightDiff := 0.0
	for _, gene := range Align(a, b) {
		switch gene.Kind {
		case GeneMatching:
			matching++
			weightDiff += math.Abs(gene.A.Weight - gene.B.Weight)
		case GeneDisjoint:
			disjoint++
		case GeneExcess:
			excess++
		}
	}
	avgWeightDiff := 0.0
	if matching > 0 {
		avgWeightDiff = weightDiff / float64(matching)
	}

	gc := &config.Genome
	return gc.CompatibilityExcessCoefficient*float64(excess)/float64(n) +
		gc.CompatibilityDisjointCoefficient*float64(disjoint)/float64(n) +
		gc.CompatibilityWeightCoefficient*avgWeightDiff
}

// Crossover produces a child of a and b.
//
// The child first receives the input and output nodes of both parents.
// Matching genes come from a random parent; if either parent's copy is
// disabled the child's gene is disabled with disabled_inherit_rate and enabled
// otherwise. Disjoint and excess genes come only from the parent with the
// higher adjusted fitness, or from either with probability 1/2 on a tie; a
// disabled one stays disabled with disabled_inherit_rate.
//
// Both parents must come from the same run: every inherited gene has to be
// known to the registry of a under the same innovation number.
func Crossover(a, b *Genome) (*Genome, error) {
	rt := a.rt
	rng := rt.Rand
	disabledRate := rt.Config.Genome.DisabledInheritRate

	child := rt.NewGenome()
	for _, parent := range []*Genome{a, b} {
		for _, n := range parent.Nodes {
			if n.Layer == LayerHidden {
				continue
			}
			if _, exists := child.nodeIndex[n.ID]; exists {
				continue
			}
			if _, err := child.AddNodeGene(n); err != nil {
				return nil, err
			}
		}
	}

	for _, gene := range Align(a, b) {
		var donor *Genome
		var inherited *ConnectionGene
		enabled := true

		if gene.Kind == GeneMatching {
			donor, inherited = a, gene.A
			if chance(rng, 0.5) {
				donor, inherited = b, gene.B
			}
			if !gene.A.Enabled || !gene.B.Enabled {
				enabled = !chance(rng, disabledRate)
			}
		} else {
			owner, other, c := a, b, gene.A
			if c == nil {
				owner, other, c = b, a, gene.B
			}
			switch {
			case owner.AdjustedFitness > other.AdjustedFitness:
			case owner.AdjustedFitness == other.AdjustedFitness && chance(rng, 0.5):
			default:
				continue
			}
			donor, inherited = owner, c
			if !c.Enabled {
				enabled = !chance(rng, disabledRate)
			}
		}

		innov, err := rt.Innovations.Lookup(inherited.Key)
		if err != nil {
			return nil, fmt.Errorf("crossover of genomes %d and %d: %w", a.ID, b.ID, err)
		}
		if innov != inherited.InnovNr {
			return nil, fmt.Errorf("crossover of genomes %d and %d: connection %s registered as innovation %d, not %d: %w",
				a.ID, b.ID, inherited.Key, innov, inherited.InnovNr, ErrMissingInnovation)
		}

		in := donor.nodeIndex[inherited.Key.InNodeID]
		out := donor.nodeIndex[inherited.Key.OutNodeID]
		if _, err := child.AddConnection(in, out, inherited.Weight, enabled); err != nil {
			return nil, fmt.Errorf("crossover of genomes %d and %d: %w", a.ID, b.ID, err)
		}
	}
	return child, nil
}
