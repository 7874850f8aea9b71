package neat

import (
	"fmt"
	"sort"
)

// InnovationRegistry hands out run-wide innovation numbers. The first genome
// that creates an edge between two node ids mints its number; every later
// genome creating the same edge receives the same number. The registry also
// records every node id seen during the run so new hidden nodes never collide.
//
// A registry is owned by one run and is not safe for concurrent use.
type InnovationRegistry struct {
	next        int
	connections map[ConnectionKey]int
	nodes       map[int]Layer
	maxNodeID   int
}

// NewInnovationRegistry creates an empty registry.
func NewInnovationRegistry() *InnovationRegistry {
	r := &InnovationRegistry{}
	r.Reset()
	return r
}

// Reset forgets all records. Use it between independent runs.
func (r *InnovationRegistry) Reset() {
	r.next = 0
	r.connections = make(map[ConnectionKey]int)
	r.nodes = make(map[int]Layer)
	r.maxNodeID = -1
}

// Innovation returns the innovation number for key, minting a new one the
// first time the key is seen.
func (r *InnovationRegistry) Innovation(key ConnectionKey) int {
	if innov, ok := r.connections[key]; ok {
		return innov
	}
	innov := r.next
	r.next++
	r.connections[key] = innov
	return innov
}

// Adopt records innov as the innovation number of key, as when loading a
// genome persisted by another run. Adopting a number the registry already
// agrees with is a no-op; a conflicting record is an error.
func (r *InnovationRegistry) Adopt(key ConnectionKey, innov int) error {
	if known, ok := r.connections[key]; ok {
		if known != innov {
			return fmt.Errorf("connection %s: registered as innovation %d, not %d: %w", key, known, innov, ErrDuplicateConnection)
		}
		return nil
	}
	for other, n := range r.connections {
		if n == innov {
			return fmt.Errorf("innovation %d: already held by %s, not %s: %w", innov, other, key, ErrDuplicateConnection)
		}
	}
	r.connections[key] = innov
	if innov >= r.next {
		r.next = innov + 1
	}
	return nil
}

// Lookup returns the innovation number for a key that must already be registered.
func (r *InnovationRegistry) Lookup(key ConnectionKey) (int, error) {
	innov, ok := r.connections[key]
	if !ok {
		return 0, fmt.Errorf("connection %s: %w", key, ErrMissingInnovation)
	}
	return innov, nil
}

// RegisterNode records a node id. It reports whether the id was new.
func (r *InnovationRegistry) RegisterNode(id int, layer Layer) bool {
	if _, ok := r.nodes[id]; ok {
		return false
	}
	r.nodes[id] = layer
	if id > r.maxNodeID {
		r.maxNodeID = id
	}
	return true
}

// NodeLayer returns the layer a node id was first registered with.
func (r *InnovationRegistry) NodeLayer(id int) (Layer, bool) {
	layer, ok := r.nodes[id]
	return layer, ok
}

// NewNodeID reserves and returns an id one past the highest id ever seen.
func (r *InnovationRegistry) NewNodeID() int {
	r.maxNodeID++
	return r.maxNodeID
}

// ConnectionCount returns the number of distinct edges registered so far.
func (r *InnovationRegistry) ConnectionCount() int {
	return len(r.connections)
}

// InnovationRecord is one registered edge.
type InnovationRecord struct {
	Key     ConnectionKey
	InnovNr int
}

// RegistryState is a serializable snapshot of an InnovationRegistry.
type RegistryState struct {
	Next        int
	MaxNodeID   int
	Connections []InnovationRecord
	Nodes       map[int]Layer
}

// State captures the registry contents, connections sorted by innovation number.
func (r *InnovationRegistry) State() RegistryState {
	records := make([]InnovationRecord, 0, len(r.connections))
	for key, innov := range r.connections {
		records = append(records, InnovationRecord{Key: key, InnovNr: innov})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].InnovNr < records[j].InnovNr })

	nodes := make(map[int]Layer, len(r.nodes))
	for id, layer := range r.nodes {
		nodes[id] = layer
	}
	return RegistryState{
		Next:        r.next,
		MaxNodeID:   r.maxNodeID,
		Connections: records,
		Nodes:       nodes,
	}
}

// Restore replaces the registry contents with a snapshot taken by State.
func (r *InnovationRegistry) Restore(state RegistryState) {
	r.Reset()
	r.next = state.Next
	r.maxNodeID = state.MaxNodeID
	for _, rec := range state.Connections {
		r.connections[rec.Key] = rec.InnovNr
	}
	for id, layer := range state.Nodes {
		r.nodes[id] = layer
	}
}
