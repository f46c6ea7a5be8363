package cograph

import "sort"

// connectedComponents partitions the graph's nodes into connected
// components, ignoring self-loops (they never affect connectivity).
// Components are returned with their nodes sorted ascending.
func connectedComponents(g *Graph) [][]int {
	visited := make([]bool, g.NumNodes)
	var components [][]int

	for start := 0; start < g.NumNodes; start++ {
		if visited[start] {
			continue
		}
		var component []int
		queue := []int{start}
		visited[start] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			component = append(component, node)
			for neighbor, weight := range g.Neighbors(node) {
				if neighbor == node || weight == 0 || visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
		sort.Ints(component)
		components = append(components, component)
	}
	return components
}

// highlyConnected reports whether a subgraph is highly connected after a cut
// of weight cutWeight: t*cutWeight > |V(G)| (spec §4.5).
func highlyConnected(numNodes int, cutWeight, multiplier float64) bool {
	return multiplier*cutWeight > float64(numNodes)
}

// HCSCluster partitions g into Highly Connected Subgraphs via recursive
// weighted Stoer-Wagner min-cut, re-expressed as an explicit work queue
// (design notes §9) instead of direct recursion. It returns one cluster ID
// per node, and the list of clusters as original node-index slices, ordered
// by each cluster's smallest node id (for deterministic labeling).
func HCSCluster(g *Graph, multiplier float64) (groups []int, clusters [][]int) {
	var pending [][]int
	pending = append(pending, connectedComponents(g)...)

	var finalClusters [][]int
	for len(pending) > 0 {
		nodes := pending[0]
		pending = pending[1:]

		if len(nodes) < 2 {
			finalClusters = append(finalClusters, nodes)
			continue
		}

		cutWeight, sideA := StoerWagnerMinCut(g, nodes)
		if highlyConnected(len(nodes), cutWeight, multiplier) {
			finalClusters = append(finalClusters, nodes)
			continue
		}

		sideASet := make(map[int]bool, len(sideA))
		for _, n := range sideA {
			sideASet[n] = true
		}
		var sideB []int
		for _, n := range nodes {
			if !sideASet[n] {
				sideB = append(sideB, n)
			}
		}

		sort.Ints(sideA)
		sort.Ints(sideB)
		pending = append(pending, sideA, sideB)
	}

	sort.Slice(finalClusters, func(i, j int) bool {
		return finalClusters[i][0] < finalClusters[j][0]
	})

	groups = make([]int, g.NumNodes)
	for i := range groups {
		groups[i] = -1
	}
	for clusterID, nodes := range finalClusters {
		for _, n := range nodes {
			groups[n] = clusterID
		}
	}

	return groups, finalClusters
}
