package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ontext/internal/relation"
	"ontext/internal/svo"
)

func TestWriteRelationsIncludesReconstructedExamples(t *testing.T) {
	pair := svo.Pair{A: "alice", B: "bob"}
	idx := svo.Index{
		PairToContexts: map[svo.Pair][]svo.Observation{
			pair: {{Context: "likes", N: 3, IsForward: true}},
		},
		UniqueContexts: []string{"likes"},
	}
	result := relation.Result{
		Groups:        []int{0},
		RelationNames: []string{"likes"},
		RelationCount: 1,
	}
	promotion := relation.Promotion{
		PromotedPairs: [][]relation.PromotedPair{{{Pair: pair, Score: 3}}},
	}

	path := filepath.Join(t.TempDir(), "relations.csv")
	if err := WriteRelations(path, "people", "people", idx, result, promotion); err != nil {
		t.Fatalf("WriteRelations: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read relations.csv: %v", err)
	}
	if !strings.Contains(string(data), "alice likes bob") {
		t.Fatalf("expected a reconstructed example sentence, got:\n%s", data)
	}
	if !strings.Contains(string(data), "\"1\"") && !strings.Contains(string(data), ",1,") {
		t.Fatalf("expected cluster_size 1 somewhere in the row, got:\n%s", data)
	}
}

func TestWriteContextsNamesEachVerbsRelation(t *testing.T) {
	idx := svo.Index{UniqueContexts: []string{"likes", "hates"}}
	result := relation.Result{
		Groups:        []int{0, -1},
		RelationNames: []string{"likes"},
		RelationCount: 1,
	}

	path := filepath.Join(t.TempDir(), "contexts.csv")
	if err := WriteContexts(path, "people", "things", idx, result); err != nil {
		t.Fatalf("WriteContexts: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read contexts.csv: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 { // header + 2 verbs
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[1], "likes") {
		t.Fatalf("row for 'likes' should name its own relation: %s", lines[1])
	}
	// "hates" was assigned group -1 (pruned), so its relation column is empty.
	fields := strings.Split(lines[2], ",")
	if fields[2] != "" {
		t.Fatalf("pruned context should have an empty relation column, got %q", fields[2])
	}
}
