package comatrix

import (
	"math"
	"strings"
	"testing"

	"ontext/internal/svo"
)

func buildTestIndex(t *testing.T) svo.Index {
	t.Helper()
	idx, err := svo.BuildIndex(strings.NewReader(
		"alice\tlikes\tbob\t3\n" +
			"alice\tadmires\tbob\t2\n" +
			"carol\tlikes\tdave\t1\n",
	))
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	return idx
}

func TestBuildIsSymmetric(t *testing.T) {
	idx := buildTestIndex(t)
	m := Build(idx)

	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			if m.At(i, j) != m.At(j, i) {
				t.Fatalf("matrix not symmetric at (%d,%d): %v != %v", i, j, m.At(i, j), m.At(j, i))
			}
		}
	}
}

func TestNormalizeRowsSumToOne(t *testing.T) {
	idx := buildTestIndex(t)
	m := Build(idx)
	norm, err := Normalize(m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	for i := 0; i < norm.N; i++ {
		var sum float64
		row := norm.Row(i)
		for _, v := range row {
			sum += v
		}
		if sum == 0 {
			continue // an all-zero row stays zero
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("row %d sums to %v, want 1", i, sum)
		}
	}
}

func TestClusterAssignsEveryRow(t *testing.T) {
	idx := buildTestIndex(t)
	m := Build(idx)
	norm, err := Normalize(m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	cr := Cluster(norm, idx.UniqueContexts, 2, 42)
	if len(cr.Groups) != norm.N {
		t.Fatalf("got %d groups, want %d", len(cr.Groups), norm.N)
	}
	for i, g := range cr.Groups {
		if g < 0 || g >= cr.RelationCount {
			t.Fatalf("row %d assigned out-of-range cluster %d", i, g)
		}
	}
	if len(cr.RelationNames) != cr.RelationCount {
		t.Fatalf("got %d relation names, want %d", len(cr.RelationNames), cr.RelationCount)
	}
}

func TestClusterHandlesKLargerThanN(t *testing.T) {
	idx := buildTestIndex(t)
	m := Build(idx)
	norm, err := Normalize(m)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	cr := Cluster(norm, idx.UniqueContexts, 1000, 1)
	if cr.RelationCount != norm.N {
		t.Fatalf("got %d clusters, want %d (clamped to n)", cr.RelationCount, norm.N)
	}
}

func TestClusterEmptyMatrix(t *testing.T) {
	m := NewMatrix(0)
	cr := Cluster(m, nil, 5, 1)
	if cr.RelationCount != 0 {
		t.Fatalf("got %d clusters for an empty matrix, want 0", cr.RelationCount)
	}
}
