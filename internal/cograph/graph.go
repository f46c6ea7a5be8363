// Package cograph builds the weighted verb co-occurrence graph (C3b) and
// clusters it with weighted Highly Connected Subgraphs via recursive
// Stoer-Wagner minimum cut (C5), the graph variant of the relation engine.
package cograph

import "ontext/internal/svo"

// Graph is an undirected weighted graph over UniqueContexts. Nodes are
// addressed by their index into that slice. Self-loops are permitted.
type Graph struct {
	NumNodes int
	adj      []map[int]float64
}

// NewGraph allocates an empty graph over n nodes, all isolated.
func NewGraph(n int) *Graph {
	adj := make([]map[int]float64, n)
	for i := range adj {
		adj[i] = make(map[int]float64)
	}
	return &Graph{NumNodes: n, adj: adj}
}

// AddWeight adds delta to the weight of edge (i,j) (i may equal j for a
// self-loop), creating it if absent.
func (g *Graph) AddWeight(i, j int, delta float64) {
	g.adj[i][j] += delta
	if i != j {
		g.adj[j][i] += delta
	}
}

// Weight returns the weight of edge (i,j), or 0 if absent.
func (g *Graph) Weight(i, j int) float64 { return g.adj[i][j] }

// Neighbors returns node i's neighbor weights, including a self-loop entry
// at key i if present. Callers must not mutate the returned map.
func (g *Graph) Neighbors(i int) map[int]float64 { return g.adj[i] }

// Degree returns the number of distinct neighbors of i, with a self-loop
// counting twice, matching networkx's unweighted degree used for centrality.
func (g *Graph) Degree(i int) int {
	d := 0
	for j := range g.adj[i] {
		if j == i {
			d += 2 // networkx counts a self-loop twice toward degree
		} else {
			d++
		}
	}
	return d
}

// Build constructs the weighted co-occurrence graph: every context is seeded
// as a node even if isolated, and every combination-with-replacement of a
// pair's observed contexts adds 1 to the corresponding edge weight (spec §4.3).
func Build(idx svo.Index) *Graph {
	n := len(idx.UniqueContexts)
	indexOf := make(map[string]int, n)
	for i, v := range idx.UniqueContexts {
		indexOf[v] = i
	}

	g := NewGraph(n)
	for _, observations := range idx.PairToContexts {
		contexts := make([]string, len(observations))
		for i, obs := range observations {
			contexts[i] = obs.Context
		}

		for i := 0; i < len(contexts); i++ {
			for j := i; j < len(contexts); j++ {
				v1, v2 := indexOf[contexts[i]], indexOf[contexts[j]]
				g.AddWeight(v1, v2, 1)
			}
		}
	}
	return g
}

// DegreeCentrality computes networkx-style unweighted degree centrality for
// every node: degree(i) / (n-1). A single-node graph has every centrality 0.
func DegreeCentrality(g *Graph) []float64 {
	n := g.NumNodes
	out := make([]float64, n)
	if n <= 1 {
		return out
	}
	for i := 0; i < n; i++ {
		out[i] = float64(g.Degree(i)) / float64(n-1)
	}
	return out
}
