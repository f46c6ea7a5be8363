package relation

import (
	"fmt"

	"ontext/internal/cograph"
	"ontext/internal/svo"
)

// GraphEngine is the HCS graph clustering path: weighted co-occurrence
// graph, recursive weighted Stoer-Wagner min-cut bipartitioning,
// degree-centrality medoid, per-cluster dominance-score promotion (spec §4.5).
type GraphEngine struct {
	Multiplier float64
}

type graphState struct {
	graph    *cograph.Graph
	clusters [][]int
}

func (e GraphEngine) Cluster(idx svo.Index) (Result, error) {
	g := cograph.Build(idx)
	groups, clusters := cograph.HCSCluster(g, e.Multiplier)
	centrality := cograph.DegreeCentrality(g)

	relationNames := make([]string, len(clusters))
	for k, nodes := range clusters {
		best := nodes[0]
		for _, n := range nodes[1:] {
			if centrality[n] > centrality[best] {
				best = n
			}
		}
		relationNames[k] = idx.UniqueContexts[best]
	}

	return Result{
		Groups:        groups,
		RelationNames: relationNames,
		RelationCount: len(clusters),
		state:         graphState{graph: g, clusters: clusters},
	}, nil
}

func (e GraphEngine) Promote(idx svo.Index, result Result, cfg PromotionConfig) (Promotion, error) {
	if _, ok := result.state.(graphState); !ok {
		return Promotion{}, fmt.Errorf("relation: graph promote called on a non-graph Result")
	}
	return PromoteGraphPairs(idx, result.Groups, result.RelationCount, cfg.P, cfg.OnlyCommonest), nil
}

// PromoteGraphPairs implements the graph variant's per-cluster dominance
// score (spec §4.5): for each pair, sum its observation counts N per cluster
// via a pair×cluster occurrence matrix, score its best cluster as
// max/(sum-max+1), optionally discard pairs scoring below 1, then sort and
// keep the top p per cluster. Exported so both GraphEngine and a literal
// stage-by-stage pipeline chain can share one implementation.
func PromoteGraphPairs(idx svo.Index, groups []int, relationCount, p int, onlyCommonest bool) Promotion {
	indexOfContext := make(map[string]int, len(idx.UniqueContexts))
	for i, v := range idx.UniqueContexts {
		indexOfContext[v] = i
	}

	byGroup := make([][]PromotedPair, relationCount)

	for pair, observations := range idx.PairToContexts {
		occurrence := make([]float64, relationCount)
		for _, obs := range observations {
			ci, ok := indexOfContext[obs.Context]
			if !ok {
				continue
			}
			group := groups[ci]
			if group < 0 {
				continue
			}
			occurrence[group] += float64(obs.N)
		}

		maxIdx, maxVal, sum := argmax(occurrence)
		if sum == 0 {
			continue
		}
		score := maxVal / (sum - maxVal + 1)

		if onlyCommonest && score < 1 {
			continue
		}

		byGroup[maxIdx] = append(byGroup[maxIdx], PromotedPair{Pair: pair, Score: score})
	}

	promotion := Promotion{
		GroupPairs:    make([][]PromotedPair, relationCount),
		PromotedPairs: make([][]PromotedPair, relationCount),
	}
	for g, pairs := range byGroup {
		sortPromoted(pairs)
		promotion.GroupPairs[g] = pairs
		promotion.PromotedPairs[g] = topP(pairs, p)
		if len(pairs) == 0 {
			promotion.GroupsToPrune = append(promotion.GroupsToPrune, g)
		}
	}

	return promotion
}

// argmax returns the first index attaining the maximum value (ties favor
// the lowest index, matching numpy argmax), the maximum value itself, and
// the vector's sum.
func argmax(v []float64) (index int, max float64, sum float64) {
	for i, x := range v {
		sum += x
		if i == 0 || x > max {
			max = x
			index = i
		}
	}
	return index, max, sum
}
