package main

import (
	"fmt"
	"io"

	"github.com/evoforge/neat-go/neat"
	"github.com/evoforge/neat-go/neat/nn"
)

var xorInputs = [][]float64{
	{0.0, 0.0},
	{0.0, 1.0},
	{1.0, 0.0},
	{1.0, 1.0},
}

var xorOutputs = []float64{0.0, 1.0, 1.0, 0.0}

// xorAgent presents the four XOR patterns, one per tick, and scores the
// genome with (4 - sum of squared errors)^2.
type xorAgent struct {
	tick int
	sse  float64
}

func (a *xorAgent) Reset(*neat.Genome) {
	a.tick = 0
	a.sse = 0
}

func (a *xorAgent) Sense() []float64 {
	return xorInputs[a.tick]
}

func (a *xorAgent) Act(outputs []float64) {
	diff := outputs[0] - xorOutputs[a.tick]
	a.sse += diff * diff
	a.tick++
}

func (a *xorAgent) Done() bool {
	return a.tick >= len(xorInputs)
}

func (a *xorAgent) Fitness() float64 {
	base := max(0, 4.0-a.sse)
	return base * base
}

// checkXORShape rejects configurations the XOR task cannot drive.
func checkXORShape(config *neat.Config) error {
	if config.Genome.NumInputs != 2 || config.Genome.NumOutputs < 1 {
		return fmt.Errorf("xor needs num_inputs = 2 and at least one output, got %d and %d",
			config.Genome.NumInputs, config.Genome.NumOutputs)
	}
	return nil
}

// printXORTable shows how g answers each XOR pattern.
func printXORTable(w io.Writer, g *neat.Genome) error {
	net, err := nn.New(g)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, " Input      | Expected | Output")
	fmt.Fprintln(w, "------------+----------+--------")
	for i, in := range xorInputs {
		net.Reset()
		out, err := net.Activate(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, " %v | %8.1f | %.4f\n", in, xorOutputs[i], out[0])
	}
	return nil
}
