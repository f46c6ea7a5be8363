package pipeline

import "fmt"

// ErrorKind is the stable taxonomy tag every pipeline error carries.
type ErrorKind string

const (
	// Configuration tags a bad run setup: a missing input file, or a stage
	// working directory that cannot be read.
	Configuration ErrorKind = "configuration"
	// DependencyMissing fires when a stage's required file or data key is absent.
	DependencyMissing ErrorKind = "dependency_missing"
	// Parse fires on a malformed SVO line.
	Parse ErrorKind = "parse"
	// Arithmetic is the tag for every other stage failure, e.g. a negative
	// matrix row sum. All-zero matrix rows are not an error: they stay zero.
	Arithmetic ErrorKind = "arithmetic"
	// Cache fires when a produced artifact cannot be linked into the cache.
	// A broken cache symlink is not an error: Lookup removes it and misses.
	Cache ErrorKind = "cache"
)

// StageError wraps a failure with the stage that produced it and a taxonomy tag.
type StageError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func newStageError(stage string, kind ErrorKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
