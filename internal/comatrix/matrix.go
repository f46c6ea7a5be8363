// Package comatrix builds the dense verb×verb co-occurrence matrix (C3a)
// and clusters it with K-means++ (C4), the matrix variant of the relation
// engine.
package comatrix

import (
	"fmt"

	"ontext/internal/svo"
)

// Matrix is a dense n×n non-negative matrix over UniqueContexts, stored
// row-major.
type Matrix struct {
	N    int
	Data []float64
}

// NewMatrix allocates a zeroed n×n matrix.
func NewMatrix(n int) *Matrix {
	return &Matrix{N: n, Data: make([]float64, n*n)}
}

// At returns M[i,j].
func (m *Matrix) At(i, j int) float64 { return m.Data[i*m.N+j] }

// Add increments M[i,j] by delta.
func (m *Matrix) Add(i, j int, delta float64) { m.Data[i*m.N+j] += delta }

// Row returns a view (not a copy) of row i.
func (m *Matrix) Row(i int) []float64 { return m.Data[i*m.N : (i+1)*m.N] }

// Build constructs the co-occurrence matrix: for each pair, every
// combination-with-replacement of its observed contexts increments both
// M[v1,v2] and M[v2,v1] (spec §4.3), so the diagonal accumulates twice per
// self-combination and the matrix is symmetric by construction.
func Build(idx svo.Index) *Matrix {
	n := len(idx.UniqueContexts)
	indexOf := make(map[string]int, n)
	for i, v := range idx.UniqueContexts {
		indexOf[v] = i
	}

	m := NewMatrix(n)
	for _, observations := range idx.PairToContexts {
		contexts := make([]string, len(observations))
		for i, obs := range observations {
			contexts[i] = obs.Context
		}

		for i := 0; i < len(contexts); i++ {
			for j := i; j < len(contexts); j++ {
				v1, v2 := indexOf[contexts[i]], indexOf[contexts[j]]
				m.Add(v1, v2, 1)
				m.Add(v2, v1, 1)
			}
		}
	}
	return m
}

// Normalize row-normalizes M so each non-zero row sums to 1; all-zero rows
// are left as zero (spec requires upstream filtering to avoid them, but a
// defensive zero-row is tolerated rather than dividing by zero).
func Normalize(m *Matrix) (*Matrix, error) {
	out := NewMatrix(m.N)
	for i := 0; i < m.N; i++ {
		var sum float64
		row := m.Row(i)
		for _, v := range row {
			sum += v
		}
		if sum == 0 {
			continue
		}
		if sum < 0 {
			return nil, fmt.Errorf("comatrix: negative row sum at row %d", i)
		}
		outRow := out.Row(i)
		for j, v := range row {
			outRow[j] = v / sum
		}
	}
	return out, nil
}
