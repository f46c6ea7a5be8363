// Package pipeline implements the staged dataflow engine (C9): sequential
// stage execution over a shared typed state bag, per-stage working
// directories, and execution-prefix cache reuse.
package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ontext/internal/cache"
	"ontext/internal/svo"
)

// StageState tracks one stage's lifecycle within a run.
type StageState int

const (
	Pending StageState = iota
	Running
	Skipped
	Done
	Failed
)

func (s StageState) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Running:
		return "RUNNING"
	case Skipped:
		return "SKIPPED"
	case Done:
		return "DONE"
	case Failed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Pipeline sequences a fixed list of stages over one shared StateBag.
type Pipeline struct {
	OutputDir string
	Cache     *cache.Cache
	Stages    []Stage
	Bag       *StateBag

	runID    string
	states   []StageState
	executed []string // identities of stages that have completed (DONE or SKIPPED)
}

// New builds a pipeline over the given stages. outputDir is the root under
// which per-stage working directories are created; cacheDir is the shared
// artifact cache (empty disables caching).
func New(outputDir, cacheDir string, stages []Stage) *Pipeline {
	return &Pipeline{
		OutputDir: outputDir,
		Cache:     cache.New(cacheDir),
		Stages:    stages,
		Bag:       NewStateBag(),
		runID:     uuid.NewString(),
		states:    make([]StageState, len(stages)),
	}
}

// AddFile seeds the state bag with an externally-supplied file artifact
// (e.g. the raw SVO corpus, or cat1/cat2 instance files).
func (p *Pipeline) AddFile(name, path string) {
	p.Bag.Files[name] = path
}

// AddData seeds the state bag with an externally-supplied in-memory value.
func (p *Pipeline) AddData(key string, value any) {
	p.Bag.Data[key] = value
}

// Prepare creates a fresh working directory for every stage and, for any
// artifact already present in the cache under the prefix that running this
// exact stage sequence up to and including that stage would produce, links
// it in ahead of execution. It must be called before ExecuteAll/ExecuteStep.
func (p *Pipeline) Prepare() error {
	if err := os.MkdirAll(p.OutputDir, 0o755); err != nil {
		return fmt.Errorf("pipeline: create output dir %s: %w", p.OutputDir, err)
	}

	for name, path := range p.Bag.Files {
		changed, err := p.Cache.CheckInput(name, path)
		if err != nil {
			return fmt.Errorf("pipeline: check input %s: %w", name, err)
		}
		if changed {
			log.Printf("[CACHE_INPUT_CHANGED] %s content differs from a prior run; artifacts cached under an unchanged stage chain may be stale", name)
		}
	}

	executionPrefix := ""
	for _, stage := range p.Stages {
		dir := p.stageDir(stage)
		if _, err := os.Stat(dir); err == nil {
			log.Printf("[STAGE_DIR_RESET] removing pre-existing contents of %s", dir)
			if err := os.RemoveAll(dir); err != nil {
				return fmt.Errorf("pipeline: reset %s: %w", dir, err)
			}
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("pipeline: create stage dir %s: %w", dir, err)
		}

		executionPrefix += stage.Identity()
		for _, artifact := range stage.Creates() {
			if cached, ok := p.Cache.Lookup(executionPrefix, artifact); ok {
				linkPath := filepath.Join(dir, artifact)
				if err := os.Symlink(cached, linkPath); err != nil && !os.IsExist(err) {
					return fmt.Errorf("pipeline: link cache entry %s: %w", linkPath, err)
				}
				log.Printf("[CACHE_LINK] %s <- %s", linkPath, cached)
			}
		}
		executionPrefix += "."
	}
	return nil
}

// StepsPending returns the number of stages not yet DONE or SKIPPED.
func (p *Pipeline) StepsPending() int {
	n := 0
	for _, s := range p.states {
		if s != Done && s != Skipped {
			n++
		}
	}
	return n
}

// ExecutedString returns the concatenated identities of completed stages,
// the execution-prefix cache filenames are keyed on.
func (p *Pipeline) ExecutedString() string {
	prefix := ""
	for _, id := range p.executed {
		prefix += id + "."
	}
	if len(prefix) > 0 {
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}

func (p *Pipeline) stageDir(stage Stage) string {
	return filepath.Join(p.OutputDir, stage.Identity())
}

// ExecuteStep runs the stage at index. On failure the pipeline does not
// re-queue the stage: the caller must treat a returned error as fatal for
// the whole run (spec §4.1's abort-and-surface policy).
func (p *Pipeline) ExecuteStep(index int) error {
	stage := p.Stages[index]
	p.states[index] = Running
	log.Printf("[STAGE_START %s] %s", p.runID, stage.Identity())

	dir := p.stageDir(stage)
	entries, err := os.ReadDir(dir)
	if err != nil {
		p.states[index] = Failed
		return newStageError(stage.Identity(), Configuration, fmt.Errorf("read stage dir: %w", err))
	}

	skip := len(stage.Creates()) > 0 && len(stage.Returns()) == 0 && len(entries) >= len(stage.Creates())

	if !skip {
		for _, f := range stage.RequiredFiles() {
			if _, ok := p.Bag.Files[f]; !ok {
				p.states[index] = Failed
				return newStageError(stage.Identity(), DependencyMissing,
					fmt.Errorf("missing required file %q", f))
			}
		}
		for _, d := range stage.RequiredData() {
			if _, ok := p.Bag.Data[d]; !ok {
				p.states[index] = Failed
				return newStageError(stage.Identity(), DependencyMissing,
					fmt.Errorf("missing required data %q", d))
			}
		}

		newData, err := stage.Apply(dir, p.Bag)
		if err != nil {
			p.states[index] = Failed
			log.Printf("[STAGE_FAILED %s] %s: %v", p.runID, stage.Identity(), err)
			return newStageError(stage.Identity(), classify(err), err)
		}
		for k, v := range newData {
			p.Bag.Data[k] = v
		}
	} else {
		log.Printf("[STAGE_SKIP %s] %s", p.runID, stage.Identity())
	}

	p.executed = append(p.executed, stage.Identity())
	executionPrefix := p.ExecutedString()

	for _, artifact := range stage.Creates() {
		path := filepath.Join(dir, artifact)
		p.Bag.Files[artifact] = path
		if stage.CanCache() {
			if err := p.Cache.Store(executionPrefix, artifact, path); err != nil {
				return newStageError(stage.Identity(), Cache, err)
			}
		}
	}

	if skip {
		p.states[index] = Skipped
	} else {
		p.states[index] = Done
	}
	log.Printf("[STAGE_DONE %s] %s (%s)", p.runID, stage.Identity(), p.states[index])
	return nil
}

// ExecuteAll runs every stage in order, aborting on the first failure.
func (p *Pipeline) ExecuteAll() error {
	for i := range p.Stages {
		if err := p.ExecuteStep(i); err != nil {
			return err
		}
	}
	return nil
}

// States returns a snapshot of every stage's current state, aligned with Stages.
func (p *Pipeline) States() []StageState {
	out := make([]StageState, len(p.states))
	copy(out, p.states)
	return out
}

func classify(err error) ErrorKind {
	var parseErr *svo.ParseError
	if errors.As(err, &parseErr) {
		return Parse
	}
	if errors.Is(err, fs.ErrNotExist) {
		return Configuration
	}
	return Arithmetic
}
