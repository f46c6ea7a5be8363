package comatrix

import (
	"math"
	"math/rand"
)

// maxIterations is the deterministic iteration cap for Lloyd's algorithm.
const maxIterations = 300

// ClusterResult is the output of the K-means clustering path (C4/C6).
type ClusterResult struct {
	Groups        []int // groups[i] is the cluster id of unique_contexts[i]
	Centroids     [][]float64
	Medoids       []int // medoids[k] is the row index nearest centroid k
	RelationNames []string
	RelationCount int
}

// Cluster runs K-means++ over M's rows into k clusters, picks the medoid row
// nearest each centroid by Euclidean distance, and names each cluster's
// relation after its medoid's context (spec §4.4).
//
// seed pins the random source so results are reproducible across runs, as
// required by the design notes on deterministic clustering.
func Cluster(m *Matrix, uniqueContexts []string, k int, seed int64) ClusterResult {
	n := m.N
	if n == 0 {
		return ClusterResult{RelationCount: 0}
	}
	if k > n {
		k = n
	}
	if k < 1 {
		k = 1
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := kmeansPlusPlusInit(m, k, rng)
	groups := make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			best, bestDist := 0, math.Inf(1)
			row := m.Row(i)
			for c := 0; c < k; c++ {
				d := sqDist(row, centroids[c])
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if groups[i] != best {
				groups[i] = best
				changed = true
			}
		}

		newCentroids := make([][]float64, k)
		counts := make([]int, k)
		for c := range newCentroids {
			newCentroids[c] = make([]float64, n)
		}
		for i := 0; i < n; i++ {
			c := groups[i]
			counts[c]++
			row := m.Row(i)
			for j, v := range row {
				newCentroids[c][j] += v
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				newCentroids[c] = centroids[c] // empty cluster keeps its centroid
				continue
			}
			for j := range newCentroids[c] {
				newCentroids[c][j] /= float64(counts[c])
			}
		}
		centroids = newCentroids

		if !changed && iter > 0 {
			break
		}
	}

	// Medoid search is global, matching spec §4.4 and the original's
	// pairwise_distances_argmin_min(centroids, comatrix): the nearest row to
	// centroid c may belong to a different cluster at a non-degenerate fixed
	// point, and the spec does not restrict the search to cluster members.
	medoids := make([]int, k)
	relationNames := make([]string, k)
	for c := 0; c < k; c++ {
		best, bestDist := 0, math.Inf(1)
		for i := 0; i < n; i++ {
			d := sqDist(m.Row(i), centroids[c])
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		medoids[c] = best
		relationNames[c] = uniqueContexts[best]
	}

	return ClusterResult{
		Groups:        groups,
		Centroids:     centroids,
		Medoids:       medoids,
		RelationNames: relationNames,
		RelationCount: k,
	}
}

func kmeansPlusPlusInit(m *Matrix, k int, rng *rand.Rand) [][]float64 {
	n := m.N
	centroids := make([][]float64, 0, k)

	first := rng.Intn(n)
	centroids = append(centroids, append([]float64(nil), m.Row(first)...))

	dist := make([]float64, n)
	for len(centroids) < k {
		var total float64
		for i := 0; i < n; i++ {
			best := math.Inf(1)
			row := m.Row(i)
			for _, c := range centroids {
				d := sqDist(row, c)
				if d < best {
					best = d
				}
			}
			dist[i] = best
			total += best
		}

		if total == 0 {
			// all remaining rows coincide with an existing centroid
			idx := rng.Intn(n)
			centroids = append(centroids, append([]float64(nil), m.Row(idx)...))
			continue
		}

		target := rng.Float64() * total
		var cum float64
		chosen := n - 1
		for i := 0; i < n; i++ {
			cum += dist[i]
			if cum >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, append([]float64(nil), m.Row(chosen)...))
	}
	return centroids
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
