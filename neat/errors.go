package neat

import "errors"

// Structural and evaluation failures. Callers match them with errors.Is;
// operations wrap them with the ids involved.
var (
	// ErrDuplicateNodeID is returned when a node id is already present in a genome.
	ErrDuplicateNodeID = errors.New("duplicate node id")
	// ErrDuplicateConnection is returned when a genome already holds a connection
	// with the same node pair or the same innovation number.
	ErrDuplicateConnection = errors.New("duplicate connection")
	// ErrInputSizeMismatch is returned when an input vector does not match the configured input count.
	ErrInputSizeMismatch = errors.New("input size mismatch")
	// ErrNoSelectableParent is returned by roulette wheel selection over an empty or zero-weight set.
	ErrNoSelectableParent = errors.New("no selectable parent")
	// ErrMissingInnovation is returned when the registry has no record of a connection.
	ErrMissingInnovation = errors.New("missing innovation record")
	// ErrStopRun is returned by a Reporter to end Population.Run early without failure.
	ErrStopRun = errors.New("run stopped by reporter")
)
