package neat

import (
	"fmt"
	"io"

	"gopkg.in/ini.v1"
)

// NetworkType selects how genomes are evaluated and which edges mutation may add.
type NetworkType string

const (
	NetworkFeedForward NetworkType = "feedforward"
	NetworkRecurrent   NetworkType = "recurrent"
)

// InitialConnection selects how first-generation genomes are wired.
type InitialConnection string

const (
	// InitRegular connects every input (bias included) to every output,
	// or through a single hidden node when start_with_hidden is set.
	InitRegular InitialConnection = "regular"
	// InitMinimalRandom starts with one random input to output edge (FS-NEAT).
	InitMinimalRandom InitialConnection = "minimal_random"
)

// Config stores the configuration parameters for the NEAT algorithm.
type Config struct {
	Neat         NeatConfig
	Genome       GenomeConfig
	Reproduction ReproductionConfig
	SpeciesSet   SpeciesSetConfig
	Stagnation   StagnationConfig
}

// NeatConfig holds parameters of the generation loop itself.
type NeatConfig struct {
	PopSize              int     `ini:"pop_size"`
	MaxGenerations       int     `ini:"max_generations"` // 0 means no limit
	FitnessThreshold     float64 `ini:"fitness_threshold"`
	NoFitnessTermination bool    `ini:"no_fitness_termination"`
	Seed                 int64   `ini:"seed"` // 0 seeds from the clock
}

// GenomeConfig holds parameters for genome structure, evaluation and mutation.
type GenomeConfig struct {
	NumInputs         int               `ini:"num_inputs"`
	NumOutputs        int               `ini:"num_outputs"`
	NetworkType       NetworkType       `ini:"network_type"`
	InitialConnection InitialConnection `ini:"initial_connection"`
	StartWithHidden   bool              `ini:"start_with_hidden"`
	Activation        string            `ini:"activation"`
	SoftmaxOutput     bool              `ini:"softmax_output"`

	ConnAddProb         float64 `ini:"conn_add_prob"`
	NodeAddProb         float64 `ini:"node_add_prob"`
	WeightMutateRate    float64 `ini:"weight_mutate_rate"`
	WeightPerturbRate   float64 `ini:"weight_perturb_rate"` // Share of weight mutations that perturb instead of reset
	WeightMutatePower   float64 `ini:"weight_mutate_power"` // Stddev of the perturbation
	EnabledMutateRate   float64 `ini:"enabled_mutate_rate"`
	DisabledInheritRate float64 `ini:"disabled_inherit_rate"`

	CompatibilityExcessCoefficient   float64 `ini:"compatibility_excess_coefficient"`
	CompatibilityDisjointCoefficient float64 `ini:"compatibility_disjoint_coefficient"`
	CompatibilityWeightCoefficient   float64 `ini:"compatibility_weight_coefficient"`
}

// ReproductionConfig holds parameters related to reproduction.
type ReproductionConfig struct {
	ElitismEnabled    bool    `ini:"elitism_enabled"`
	Elitism           int     `ini:"elitism"`
	SurvivalThreshold float64 `ini:"survival_threshold"`
}

// SpeciesSetConfig holds parameters related to speciation.
type SpeciesSetConfig struct {
	SpeciationEnabled      bool    `ini:"speciation_enabled"`
	TargetSpecies          int     `ini:"target_species"`
	CompatibilityThreshold float64 `ini:"compatibility_threshold"`
	ThresholdStep          float64 `ini:"compatibility_threshold_step"`
}

// StagnationConfig holds parameters related to species stagnation.
type StagnationConfig struct {
	MaxStagnation int `ini:"max_stagnation"`
}

// sections lists the INI section names in file order.
func (c *Config) sections() []struct {
	name string
	ptr  any
} {
	return []struct {
		name string
		ptr  any
	}{
		{"NEAT", &c.Neat},
		{"DefaultGenome", &c.Genome},
		{"DefaultReproduction", &c.Reproduction},
		{"DefaultSpeciesSet", &c.SpeciesSet},
		{"DefaultStagnation", &c.Stagnation},
	}
}

// DefaultConfig returns the built-in parameter set. Keys missing from a
// configuration file keep these values.
func DefaultConfig() *Config {
	return &Config{
		Neat: NeatConfig{
			PopSize:              20,
			MaxGenerations:       100,
			NoFitnessTermination: true,
		},
		Genome: GenomeConfig{
			NumInputs:                        3,
			NumOutputs:                       2,
			NetworkType:                      NetworkFeedForward,
			InitialConnection:                InitRegular,
			Activation:                       "sigmoid",
			ConnAddProb:                      0.05,
			NodeAddProb:                      0.03,
			WeightMutateRate:                 0.8,
			WeightPerturbRate:                0.9,
			WeightMutatePower:                0.5,
			EnabledMutateRate:                0.05,
			DisabledInheritRate:              0.75,
			CompatibilityExcessCoefficient:   1,
			CompatibilityDisjointCoefficient: 1,
			CompatibilityWeightCoefficient:   1,
		},
		Reproduction: ReproductionConfig{
			ElitismEnabled:    true,
			Elitism:           1,
			SurvivalThreshold: 0.2,
		},
		SpeciesSet: SpeciesSetConfig{
			SpeciationEnabled:      true,
			TargetSpecies:          5,
			CompatibilityThreshold: 3,
			ThresholdStep:          0.5,
		},
		Stagnation: StagnationConfig{
			MaxStagnation: 10,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file.
func LoadConfig(filePath string) (*Config, error) {
	config, err := loadConfig(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}
	return config, nil
}

// ParseConfig parses configuration parameters from INI data.
func ParseConfig(data []byte) (*Config, error) {
	return loadConfig(data)
}

func loadConfig(source any) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{}, source)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	for _, s := range config.sections() {
		if !file.HasSection(s.name) {
			continue
		}
		if err := file.Section(s.name).MapTo(s.ptr); err != nil {
			return nil, fmt.Errorf("failed to map [%s] section: %w", s.name, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WriteTo writes the configuration in INI form. The output can be read back with ParseConfig.
func (c *Config) WriteTo(w io.Writer) (int64, error) {
	file := ini.Empty()
	for _, s := range c.sections() {
		if err := file.Section(s.name).ReflectFrom(s.ptr); err != nil {
			return 0, fmt.Errorf("failed to reflect [%s] section: %w", s.name, err)
		}
	}
	return file.WriteTo(w)
}

// Validate checks value ranges and enum settings.
func (c *Config) Validate() error {
	g := &c.Genome
	if c.Neat.PopSize <= 0 {
		return fmt.Errorf("config error: pop_size must be positive")
	}
	if c.Neat.MaxGenerations < 0 {
		return fmt.Errorf("config error: max_generations cannot be negative")
	}
	if g.NumInputs <= 0 {
		return fmt.Errorf("config error: num_inputs must be positive")
	}
	if g.NumOutputs <= 0 {
		return fmt.Errorf("config error: num_outputs must be positive")
	}
	switch g.NetworkType {
	case NetworkFeedForward, NetworkRecurrent:
	default:
		return fmt.Errorf("config error: invalid network_type '%s', must be one of 'feedforward', 'recurrent'", g.NetworkType)
	}
	switch g.InitialConnection {
	case InitRegular:
	case InitMinimalRandom:
		if g.StartWithHidden {
			return fmt.Errorf("config error: initial_connection 'minimal_random' cannot start with a hidden node")
		}
	default:
		return fmt.Errorf("config error: invalid initial_connection '%s', must be one of 'regular', 'minimal_random'", g.InitialConnection)
	}
	if _, err := GetActivation(g.Activation); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	rates := []struct {
		name  string
		value float64
	}{
		{"conn_add_prob", g.ConnAddProb},
		{"node_add_prob", g.NodeAddProb},
		{"weight_mutate_rate", g.WeightMutateRate},
		{"weight_perturb_rate", g.WeightPerturbRate},
		{"enabled_mutate_rate", g.EnabledMutateRate},
		{"disabled_inherit_rate", g.DisabledInheritRate},
		{"survival_threshold", c.Reproduction.SurvivalThreshold},
	}
	for _, r := range rates {
		if r.value < 0 || r.value > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", r.name)
		}
	}
	if g.ConnAddProb+g.NodeAddProb+g.WeightMutateRate+g.EnabledMutateRate == 0 {
		return fmt.Errorf("config error: at least one mutation rate must be above 0")
	}
	if g.WeightMutatePower < 0 {
		return fmt.Errorf("config error: weight_mutate_power cannot be negative")
	}
	if g.CompatibilityExcessCoefficient < 0 || g.CompatibilityDisjointCoefficient < 0 || g.CompatibilityWeightCoefficient < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}

	if c.Reproduction.SurvivalThreshold == 0 {
		return fmt.Errorf("config error: survival_threshold must be above 0")
	}
	if c.Reproduction.Elitism < 0 {
		return fmt.Errorf("config error: elitism cannot be negative")
	}
	if c.Reproduction.ElitismEnabled && c.Reproduction.Elitism >= c.Neat.PopSize {
		return fmt.Errorf("config error: elitism must be smaller than pop_size")
	}

	if c.SpeciesSet.TargetSpecies <= 0 {
		return fmt.Errorf("config error: target_species must be positive")
	}
	if c.SpeciesSet.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.SpeciesSet.ThresholdStep < 0 {
		return fmt.Errorf("config error: compatibility_threshold_step cannot be negative")
	}
	if c.Stagnation.MaxStagnation <= 0 {
		return fmt.Errorf("config error: max_stagnation must be positive")
	}
	return nil
}

// EliteCount returns the number of genomes copied unchanged into the next generation.
func (rc *ReproductionConfig) EliteCount() int {
	if !rc.ElitismEnabled {
		return 0
	}
	return rc.Elitism
}
