package stages

import (
	"fmt"
	"path/filepath"

	"ontext/internal/pipeline"
	"ontext/internal/svo"
)

// FilterMinOccurrenceStage keeps SVO lines whose count is at least Min (C2).
// It is always the first filter in the chain, reading the raw corpus and
// writing the first "svo" working artifact.
type FilterMinOccurrenceStage struct {
	Min      int
	Compress bool
}

func (s FilterMinOccurrenceStage) Identity() string {
	return fmt.Sprintf("Filter_sentences_by_occurrence_%d", s.Min)
}
func (s FilterMinOccurrenceStage) RequiredFiles() []string { return []string{"raw_svo"} }
func (s FilterMinOccurrenceStage) RequiredData() []string  { return nil }
func (s FilterMinOccurrenceStage) Creates() []string       { return []string{"svo"} }
func (s FilterMinOccurrenceStage) Returns() []string       { return nil }
func (s FilterMinOccurrenceStage) CanCache() bool          { return true }

func (s FilterMinOccurrenceStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	in, out, err := openFilterStream(bag.Files["raw_svo"], filepath.Join(workDir, "svo"), s.Compress)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	defer out.Close()
	return nil, svo.FilterMinOccurrence(in, out, s.Min)
}

// FilterMinContextOccurrenceStage keeps lines whose verb appears in at
// least Min distinct lines (C2).
type FilterMinContextOccurrenceStage struct {
	Min      int
	Compress bool
}

func (s FilterMinContextOccurrenceStage) Identity() string {
	return fmt.Sprintf("Filter_sentences_by_context_occurrence_%d", s.Min)
}
func (s FilterMinContextOccurrenceStage) RequiredFiles() []string { return []string{"svo"} }
func (s FilterMinContextOccurrenceStage) RequiredData() []string  { return nil }
func (s FilterMinContextOccurrenceStage) Creates() []string       { return []string{"svo"} }
func (s FilterMinContextOccurrenceStage) Returns() []string       { return nil }
func (s FilterMinContextOccurrenceStage) CanCache() bool          { return true }

func (s FilterMinContextOccurrenceStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	in, out, err := openFilterStream(bag.Files["svo"], filepath.Join(workDir, "svo"), s.Compress)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	defer out.Close()
	return nil, svo.FilterMinContextOccurrence(in, out, s.Min)
}

// FilterMinPairOccurrenceStage keeps lines whose canonical (S,O) pair
// appears in at least Min distinct lines (C2). Min must be >= 2.
type FilterMinPairOccurrenceStage struct {
	Min      int
	Compress bool
}

func (s FilterMinPairOccurrenceStage) Identity() string {
	return fmt.Sprintf("Filter_sentences_by_pair_occurrence_%d", s.Min)
}
func (s FilterMinPairOccurrenceStage) RequiredFiles() []string { return []string{"svo"} }
func (s FilterMinPairOccurrenceStage) RequiredData() []string  { return nil }
func (s FilterMinPairOccurrenceStage) Creates() []string       { return []string{"svo"} }
func (s FilterMinPairOccurrenceStage) Returns() []string       { return nil }
func (s FilterMinPairOccurrenceStage) CanCache() bool          { return true }

func (s FilterMinPairOccurrenceStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	in, out, err := openFilterStream(bag.Files["svo"], filepath.Join(workDir, "svo"), s.Compress)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	defer out.Close()
	return nil, svo.FilterMinPairOccurrence(in, out, s.Min)
}

// ReadCategoriesStage loads the cat1/cat2 instance files into in-memory sets.
type ReadCategoriesStage struct{}

func (s ReadCategoriesStage) Identity() string        { return "Read_categories" }
func (s ReadCategoriesStage) RequiredFiles() []string  { return []string{"cat1_file", "cat2_file"} }
func (s ReadCategoriesStage) RequiredData() []string   { return nil }
func (s ReadCategoriesStage) Creates() []string        { return nil }
func (s ReadCategoriesStage) Returns() []string        { return []string{"cat1", "cat2"} }
func (s ReadCategoriesStage) CanCache() bool           { return false }

func (s ReadCategoriesStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	cat1Names, err := readCategoryFile(bag.Files["cat1_file"])
	if err != nil {
		return nil, err
	}
	cat2Names, err := readCategoryFile(bag.Files["cat2_file"])
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"cat1": svo.NewCategorySet(cat1Names),
		"cat2": svo.NewCategorySet(cat2Names),
	}, nil
}

// FilterInstanceInCategoryStage keeps only lines whose instances fall in
// the two target categories, optionally allowing the reversed orientation.
// Its Identity preserves the reference driver's own naming quirk: the
// one-way (reverse-disallowed) variant gets the plain name, and allowing
// the reverse orientation is what earns the "_oneway" suffix.
type FilterInstanceInCategoryStage struct {
	Reverse  bool
	Compress bool
}

func (s FilterInstanceInCategoryStage) Identity() string {
	if s.Reverse {
		return "Filter_instance_in_category_oneway"
	}
	return "Filter_instance_in_category"
}
func (s FilterInstanceInCategoryStage) RequiredFiles() []string { return []string{"svo"} }
func (s FilterInstanceInCategoryStage) RequiredData() []string  { return []string{"cat1", "cat2"} }
func (s FilterInstanceInCategoryStage) Creates() []string       { return []string{"svo"} }
func (s FilterInstanceInCategoryStage) Returns() []string       { return nil }
func (s FilterInstanceInCategoryStage) CanCache() bool          { return true }

func (s FilterInstanceInCategoryStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	cat1, ok := bag.Data["cat1"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat1 missing or wrong type")
	}
	cat2, ok := bag.Data["cat2"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat2 missing or wrong type")
	}
	in, out, err := openFilterStream(bag.Files["svo"], filepath.Join(workDir, "svo"), s.Compress)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	defer out.Close()
	return nil, svo.FilterInstanceInCategory(in, out, cat1, cat2, s.Reverse)
}

// SvoToMemoryStage reads the final filtered corpus into the pair/context
// indices every downstream clustering stage consumes (C1). A run whose
// distinct-verb count would exceed MaxContexts fails clearly here rather
// than building a dense matrix or graph that does not fit memory.
type SvoToMemoryStage struct {
	MaxContexts int
}

func (s SvoToMemoryStage) Identity() string       { return "Svo_to_memory" }
func (s SvoToMemoryStage) RequiredFiles() []string { return []string{"svo"} }
func (s SvoToMemoryStage) RequiredData() []string  { return nil }
func (s SvoToMemoryStage) Creates() []string       { return nil }
func (s SvoToMemoryStage) CanCache() bool          { return false }
func (s SvoToMemoryStage) Returns() []string {
	return []string{"pair_to_contexts", "contexts_to_pairs", "unique_contexts"}
}

func (s SvoToMemoryStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	f, err := svo.OpenArtifact(bag.Files["svo"])
	if err != nil {
		return nil, err
	}
	defer f.Close()

	idx, err := svo.BuildIndex(f)
	if err != nil {
		return nil, err
	}
	if s.MaxContexts > 0 && len(idx.UniqueContexts) > s.MaxContexts {
		return nil, fmt.Errorf("stages: %d unique contexts exceeds max_contexts %d", len(idx.UniqueContexts), s.MaxContexts)
	}
	return map[string]any{
		"pair_to_contexts":  idx.PairToContexts,
		"contexts_to_pairs": idx.ContextToPairs,
		"unique_contexts":   idx.UniqueContexts,
	}, nil
}
