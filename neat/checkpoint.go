package neat

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// checkpointData holds the parts of a Population needed to continue a run.
// Genomes and species reference each other, so both are flattened to records
// keyed by genome id. The configuration is not saved; it is supplied again on load.
type checkpointData struct {
	Generation     int
	NextGenomeID   int
	Threshold      float64
	SpeciesIndexer int
	Registry       RegistryState
	Genomes        []genomeRecord
	Species        []speciesRecord
	BestGenome     *genomeRecord
}

type genomeRecord struct {
	ID              int
	Data            GenomeData
	Fitness         float64
	AdjustedFitness float64
	Outputs         map[int]float64
}

type speciesRecord struct {
	ID                          int
	Created                     int
	RepresentativeID            int // -1 without a representative.
	MemberIDs                   []int
	AverageFitness              float64
	MaxAverageFitness           float64
	GenerationsSinceImprovement int
	AllowedOffspring            int
}

func newGenomeRecord(g *Genome) genomeRecord {
	outputs := make(map[int]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		outputs[n.ID] = n.Output
	}
	return genomeRecord{
		ID:              g.ID,
		Data:            g.Data(),
		Fitness:         g.Fitness,
		AdjustedFitness: g.AdjustedFitness,
		Outputs:         outputs,
	}
}

func (rec genomeRecord) restore(rt *Runtime) (*Genome, error) {
	g, err := rt.GenomeFromData(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("genome %d: %w", rec.ID, err)
	}
	g.ID = rec.ID
	g.Fitness = rec.Fitness
	g.AdjustedFitness = rec.AdjustedFitness
	for _, n := range g.Nodes {
		if out, ok := rec.Outputs[n.ID]; ok {
			n.Output = out
		}
	}
	return g, nil
}

// SaveCheckpoint writes a gzip compressed snapshot of the population to w.
// The random source is not part of the snapshot.
func (p *Population) SaveCheckpoint(w io.Writer) error {
	rt := p.Runtime
	data := checkpointData{
		Generation:     p.Generation,
		NextGenomeID:   rt.nextGenomeID,
		Threshold:      p.SpeciesSet.Threshold,
		SpeciesIndexer: p.SpeciesSet.Indexer,
		Registry:       rt.Innovations.State(),
		Genomes:        make([]genomeRecord, 0, len(p.Genomes)),
	}
	for _, g := range p.Genomes {
		data.Genomes = append(data.Genomes, newGenomeRecord(g))
	}
	for _, s := range p.SpeciesSet.Species {
		rec := speciesRecord{
			ID:                          s.ID,
			Created:                     s.Created,
			RepresentativeID:            -1,
			AverageFitness:              s.AverageFitness,
			MaxAverageFitness:           s.MaxAverageFitness,
			GenerationsSinceImprovement: s.GenerationsSinceImprovement,
			AllowedOffspring:            s.AllowedOffspring,
		}
		if s.Representative != nil {
			rec.RepresentativeID = s.Representative.ID
		}
		for _, m := range s.Members {
			rec.MemberIDs = append(rec.MemberIDs, m.ID)
		}
		data.Species = append(data.Species, rec)
	}
	if p.BestGenome != nil {
		best := newGenomeRecord(p.BestGenome)
		data.BestGenome = &best
	}

	gzWriter := gzip.NewWriter(w)
	if err := gob.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode population data: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint restores a population saved by SaveCheckpoint. config must
// be the configuration the run was started with; opts are applied to the new
// Runtime as in NewRuntime.
func LoadCheckpoint(r io.Reader, config *Config, opts ...RuntimeOption) (*Population, error) {
	gzReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader for checkpoint: %w", err)
	}
	defer gzReader.Close()

	var data checkpointData
	if err := gob.NewDecoder(gzReader).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode population data from checkpoint: %w", err)
	}

	rt, err := NewRuntime(config, opts...)
	if err != nil {
		return nil, err
	}
	rt.Innovations.Restore(data.Registry)

	p := &Population{
		Runtime:      rt,
		Genomes:      make([]*Genome, 0, len(data.Genomes)),
		SpeciesSet:   NewSpeciesSet(&config.SpeciesSet),
		Reproduction: NewReproduction(rt),
		Generation:   data.Generation,
	}
	p.SpeciesSet.Threshold = data.Threshold
	p.SpeciesSet.Indexer = data.SpeciesIndexer

	byID := make(map[int]*Genome, len(data.Genomes))
	for _, rec := range data.Genomes {
		g, err := rec.restore(rt)
		if err != nil {
			return nil, fmt.Errorf("failed to restore checkpoint: %w", err)
		}
		p.Genomes = append(p.Genomes, g)
		byID[g.ID] = g
	}

	for _, rec := range data.Species {
		s := &Species{
			ID:                          rec.ID,
			Created:                     rec.Created,
			AverageFitness:              rec.AverageFitness,
			MaxAverageFitness:           rec.MaxAverageFitness,
			GenerationsSinceImprovement: rec.GenerationsSinceImprovement,
			AllowedOffspring:            rec.AllowedOffspring,
		}
		for _, id := range rec.MemberIDs {
			g, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("failed to restore checkpoint: species %d references unknown genome %d", rec.ID, id)
			}
			s.AddGenome(g)
			if id == rec.RepresentativeID {
				s.Representative = g
			}
		}
		p.SpeciesSet.Species = append(p.SpeciesSet.Species, s)
	}

	if data.BestGenome != nil {
		if g, ok := byID[data.BestGenome.ID]; ok {
			p.BestGenome = g
		} else if p.BestGenome, err = data.BestGenome.restore(rt); err != nil {
			return nil, fmt.Errorf("failed to restore checkpoint: best %w", err)
		}
	}

	rt.nextGenomeID = data.NextGenomeID
	return p, nil
}

// SaveCheckpointFile writes a checkpoint to filePath.
func (p *Population) SaveCheckpointFile(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint file '%s': %w", filePath, err)
	}
	if err := p.SaveCheckpoint(file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close checkpoint file '%s': %w", filePath, err)
	}
	p.Runtime.Logger.Info("checkpoint saved", "path", filePath, "generation", p.Generation)
	return nil
}

// LoadCheckpointFile restores a population from a checkpoint file.
func LoadCheckpointFile(filePath string, config *Config, opts ...RuntimeOption) (*Population, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint file '%s': %w", filePath, err)
	}
	defer file.Close()

	p, err := LoadCheckpoint(file, config, opts...)
	if err != nil {
		return nil, err
	}
	p.Runtime.Logger.Info("checkpoint loaded", "path", filePath, "generation", p.Generation)
	return p, nil
}
