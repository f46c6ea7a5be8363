package stages

import (
	"os"
	"path/filepath"
	"testing"

	"ontext/internal/pipeline"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestFilterMinOccurrenceStageWritesFilteredArtifact(t *testing.T) {
	dir := t.TempDir()
	rawSVO := writeTempFile(t, dir, "raw_svo", "alice\tlikes\tbob\t5\nalice\thates\tbob\t1\n")

	bag := pipeline.NewStateBag()
	bag.Files["raw_svo"] = rawSVO

	stage := FilterMinOccurrenceStage{Min: 3}
	if stage.Identity() != "Filter_sentences_by_occurrence_3" {
		t.Fatalf("Identity() = %q", stage.Identity())
	}

	workDir := t.TempDir()
	if _, err := stage.Apply(workDir, bag); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(workDir, "svo"))
	if err != nil {
		t.Fatalf("read output artifact: %v", err)
	}
	if string(out) != "alice\tlikes\tbob\t5\n" {
		t.Fatalf("got %q", out)
	}
}

func TestFilterInstanceInCategoryStageIdentityNamingQuirk(t *testing.T) {
	if (FilterInstanceInCategoryStage{Reverse: false}).Identity() != "Filter_instance_in_category" {
		t.Fatal("one-way (reverse-disallowed) variant should get the plain name")
	}
	if (FilterInstanceInCategoryStage{Reverse: true}).Identity() != "Filter_instance_in_category_oneway" {
		t.Fatal("reverse-allowed variant should get the _oneway suffix")
	}
}

func TestReadCategoriesStagePublishesCategorySets(t *testing.T) {
	dir := t.TempDir()
	cat1 := writeTempFile(t, dir, "cat1.txt", "alice\ncarol\n")
	cat2 := writeTempFile(t, dir, "cat2.txt", "bob\n")

	bag := pipeline.NewStateBag()
	bag.Files["cat1_file"] = cat1
	bag.Files["cat2_file"] = cat2

	data, err := ReadCategoriesStage{}.Apply(t.TempDir(), bag)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := data["cat1"]; !ok {
		t.Fatal("expected cat1 to be published")
	}
	if _, ok := data["cat2"]; !ok {
		t.Fatal("expected cat2 to be published")
	}
}

func TestSvoToMemoryStageRejectsCorpusOverMaxContexts(t *testing.T) {
	dir := t.TempDir()
	svoFile := writeTempFile(t, dir, "svo", "alice\tlikes\tbob\t1\nalice\thates\tbob\t1\n")

	bag := pipeline.NewStateBag()
	bag.Files["svo"] = svoFile

	stage := SvoToMemoryStage{MaxContexts: 1}
	if _, err := stage.Apply(t.TempDir(), bag); err == nil {
		t.Fatal("expected an error when unique contexts exceed max_contexts")
	}
}

func TestSvoToMemoryStagePublishesIndexEntries(t *testing.T) {
	dir := t.TempDir()
	svoFile := writeTempFile(t, dir, "svo", "alice\tlikes\tbob\t1\n")

	bag := pipeline.NewStateBag()
	bag.Files["svo"] = svoFile

	stage := SvoToMemoryStage{}
	data, err := stage.Apply(t.TempDir(), bag)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, key := range stage.Returns() {
		if _, ok := data[key]; !ok {
			t.Fatalf("expected %q to be published, got keys %v", key, data)
		}
	}
}
