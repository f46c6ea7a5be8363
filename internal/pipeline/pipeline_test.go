package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fileStage writes one fixed-content file artifact and nothing else; it
// never publishes data, so it is the only shape ExecuteStep can skip-cache.
type fileStage struct {
	id      string
	content string
	calls   *int
}

func (s fileStage) Identity() string      { return s.id }
func (s fileStage) RequiredFiles() []string { return nil }
func (s fileStage) RequiredData() []string  { return nil }
func (s fileStage) Creates() []string       { return []string{"out.txt"} }
func (s fileStage) Returns() []string       { return nil }
func (s fileStage) CanCache() bool          { return true }
func (s fileStage) Apply(workDir string, bag *StateBag) (map[string]any, error) {
	if s.calls != nil {
		*s.calls++
	}
	path := filepath.Join(workDir, "out.txt")
	if err := os.WriteFile(path, []byte(s.content), 0o644); err != nil {
		return nil, err
	}
	return nil, nil
}

// dataStage publishes a data key and never creates a file artifact, so it is
// never skip-cacheable (Creates() is empty).
type dataStage struct {
	id    string
	key   string
	value any
}

func (s dataStage) Identity() string        { return s.id }
func (s dataStage) RequiredFiles() []string { return nil }
func (s dataStage) RequiredData() []string  { return nil }
func (s dataStage) Creates() []string       { return nil }
func (s dataStage) Returns() []string       { return []string{s.key} }
func (s dataStage) CanCache() bool          { return false }
func (s dataStage) Apply(workDir string, bag *StateBag) (map[string]any, error) {
	return map[string]any{s.key: s.value}, nil
}

// failingStage always errors, to exercise abort-and-surface.
type failingStage struct{}

func (failingStage) Identity() string        { return "Failing" }
func (failingStage) RequiredFiles() []string { return nil }
func (failingStage) RequiredData() []string  { return nil }
func (failingStage) Creates() []string       { return nil }
func (failingStage) Returns() []string       { return []string{"never"} }
func (failingStage) CanCache() bool          { return false }
func (failingStage) Apply(workDir string, bag *StateBag) (map[string]any, error) {
	return nil, fmt.Errorf("boom")
}

// requiringStage demands a file and a data key from the bag.
type requiringStage struct {
	file, data string
}

func (s requiringStage) Identity() string        { return "Requiring" }
func (s requiringStage) RequiredFiles() []string { return []string{s.file} }
func (s requiringStage) RequiredData() []string  { return []string{s.data} }
func (s requiringStage) Creates() []string       { return nil }
func (s requiringStage) Returns() []string       { return nil }
func (s requiringStage) CanCache() bool          { return false }
func (s requiringStage) Apply(workDir string, bag *StateBag) (map[string]any, error) {
	return nil, nil
}

func TestExecuteAllRunsEveryStageInOrder(t *testing.T) {
	calls := 0
	stages := []Stage{
		fileStage{id: "A", content: "a", calls: &calls},
		dataStage{id: "B", key: "k", value: 42},
	}
	p := New(t.TempDir(), "", stages)
	if err := p.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fileStage ran %d times, want 1", calls)
	}
	if v, _ := p.Bag.Data["k"].(int); v != 42 {
		t.Fatalf("bag key k = %v, want 42", p.Bag.Data["k"])
	}
	for i, s := range p.States() {
		if s != Done {
			t.Fatalf("stage %d state = %v, want Done", i, s)
		}
	}
}

func TestExecuteAllAbortsOnFirstFailure(t *testing.T) {
	stages := []Stage{
		dataStage{id: "B", key: "k", value: 1},
		failingStage{},
		dataStage{id: "C", key: "never-reached", value: 1},
	}
	p := New(t.TempDir(), "", stages)
	if err := p.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := p.ExecuteAll()
	if err == nil {
		t.Fatal("expected ExecuteAll to surface the failing stage's error")
	}
	if _, ok := p.Bag.Data["never-reached"]; ok {
		t.Fatal("a stage after the failure should never have run")
	}
}

func TestExecuteStepFailsOnMissingDependency(t *testing.T) {
	stages := []Stage{requiringStage{file: "missing_file", data: "missing_data"}}
	p := New(t.TempDir(), "", stages)
	if err := p.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	err := p.ExecuteStep(0)
	if err == nil {
		t.Fatal("expected a dependency-missing error")
	}
	stageErr, ok := err.(*StageError)
	if !ok {
		t.Fatalf("expected *StageError, got %T", err)
	}
	if stageErr.Kind != DependencyMissing {
		t.Fatalf("kind = %v, want DependencyMissing", stageErr.Kind)
	}
}

func TestSecondRunReusesCachedFileArtifactAndSkips(t *testing.T) {
	cacheDir := t.TempDir()
	calls := 0

	run := func() *Pipeline {
		stages := []Stage{fileStage{id: "A", content: "fixed", calls: &calls}}
		p := New(t.TempDir(), cacheDir, stages)
		if err := p.Prepare(); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		if err := p.ExecuteAll(); err != nil {
			t.Fatalf("ExecuteAll: %v", err)
		}
		return p
	}

	first := run()
	if calls != 1 {
		t.Fatalf("first run: Apply called %d times, want 1", calls)
	}
	if first.States()[0] != Done {
		t.Fatalf("first run state = %v, want Done", first.States()[0])
	}

	second := run()
	if calls != 1 {
		t.Fatalf("second run should reuse the cached artifact without calling Apply again, got %d total calls", calls)
	}
	if second.States()[0] != Skipped {
		t.Fatalf("second run state = %v, want Skipped", second.States()[0])
	}
}

func TestPrepareDetectsChangedSeededFileContent(t *testing.T) {
	cacheDir := t.TempDir()
	inputDir := t.TempDir()
	input := filepath.Join(inputDir, "raw_svo")
	if err := os.WriteFile(input, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	run := func() *Pipeline {
		p := New(t.TempDir(), cacheDir, nil)
		p.AddFile("raw_svo", input)
		if err := p.Prepare(); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		return p
	}

	run() // first sighting: just records the content id

	if err := os.WriteFile(input, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite input: %v", err)
	}
	changed, err := run().Cache.CheckInput("raw_svo", input)
	if err != nil {
		t.Fatalf("CheckInput: %v", err)
	}
	if changed {
		t.Fatal("CheckInput immediately after Prepare re-recorded the id, so it should report no further change")
	}
}

func TestExecutedStringIsDotJoinedIdentities(t *testing.T) {
	stages := []Stage{
		dataStage{id: "A", key: "a", value: 1},
		dataStage{id: "B", key: "b", value: 2},
	}
	p := New(t.TempDir(), "", stages)
	if err := p.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := p.ExecuteAll(); err != nil {
		t.Fatalf("ExecuteAll: %v", err)
	}
	if got := p.ExecutedString(); got != "A.B" {
		t.Fatalf("ExecutedString() = %q, want %q", got, "A.B")
	}
}
