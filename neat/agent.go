package neat

import (
	"context"
	"fmt"
)

// Agent is the environment-side collaborator that drives a genome through a
// trial. Sense must return exactly num_inputs values and Act receives
// num_outputs values.
type Agent interface {
	// Reset starts a new trial controlled by g.
	Reset(g *Genome)
	// Sense returns the input vector for the current tick.
	Sense() []float64
	// Act applies the network outputs of the current tick.
	Act(outputs []float64)
	// Done reports whether the trial has ended.
	Done() bool
	// Fitness returns the terminal fitness of the trial.
	Fitness() float64
}

// AgentFitness returns a FitnessFunc that runs one trial per genome: the agent
// is reset with the genome, then sense, evaluate and act repeat until the
// agent is done or maxTicks ticks have run. A maxTicks of 0 or less runs
// until Done. The context is checked between ticks.
func AgentFitness(agent Agent, maxTicks int) FitnessFunc {
	return func(ctx context.Context, g *Genome) (float64, error) {
		agent.Reset(g)
		for tick := 0; maxTicks <= 0 || tick < maxTicks; tick++ {
			if agent.Done() {
				break
			}
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			outputs, err := g.Evaluate(agent.Sense())
			if err != nil {
				return 0, fmt.Errorf("tick %d: %w", tick, err)
			}
			agent.Act(outputs)
		}
		return agent.Fitness(), nil
	}
}
