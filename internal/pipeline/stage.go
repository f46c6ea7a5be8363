package pipeline

// StateBag is the pipeline's shared, typed key-value state. Stages read from
// and publish to both maps; nothing else mutates it. Per spec, the bag is
// mutated only by stage Apply calls, strictly in sequence.
type StateBag struct {
	Files map[string]string
	Data  map[string]any
}

// NewStateBag returns an empty bag.
func NewStateBag() *StateBag {
	return &StateBag{
		Files: make(map[string]string),
		Data:  make(map[string]any),
	}
}

// Stage is one step of the dataflow engine. Identity must be stable across
// runs: it is embedded verbatim in cache filenames, so renaming a stage
// (or changing the parameters baked into its Identity) invalidates every
// cache entry downstream of it.
type Stage interface {
	// Identity is the stage's printable, stable name, e.g.
	// "Filter_sentences_by_occurrence_5".
	Identity() string

	// RequiredFiles lists logical file-artifact names this stage reads from the bag.
	RequiredFiles() []string
	// RequiredData lists in-memory keys this stage reads from the bag.
	RequiredData() []string

	// Creates lists file artifacts this stage writes into its working directory.
	Creates() []string
	// Returns lists in-memory keys this stage publishes back to the bag.
	Returns() []string

	// CanCache reports whether this stage's file artifacts may be symlinked
	// into the shared cache directory.
	CanCache() bool

	// Apply runs the stage. workDir is the stage's dedicated working
	// directory; bag carries every required file and data entry already
	// validated present. Apply returns the data entries to publish (may be
	// nil) or an error, which the engine wraps as a StageError.
	Apply(workDir string, bag *StateBag) (map[string]any, error)
}
