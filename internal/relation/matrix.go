package relation

import (
	"fmt"
	"math"

	"ontext/internal/comatrix"
	"ontext/internal/svo"
)

// MatrixEngine is the matrix clustering path: row-normalized co-occurrence
// matrix, K-means++, nearest-to-centroid medoid, population-stdev-weighted
// instance ranking (spec §4.4).
type MatrixEngine struct {
	K    int
	Seed int64
}

type matrixState struct {
	matrix         *comatrix.Matrix
	centroids      [][]float64
	uniqueContexts []string
	indexOf        map[string]int
}

func (e MatrixEngine) Cluster(idx svo.Index) (Result, error) {
	m := comatrix.Build(idx)
	norm, err := comatrix.Normalize(m)
	if err != nil {
		return Result{}, fmt.Errorf("relation: normalize matrix: %w", err)
	}

	cr := comatrix.Cluster(norm, idx.UniqueContexts, e.K, e.Seed)

	indexOf := make(map[string]int, len(idx.UniqueContexts))
	for i, v := range idx.UniqueContexts {
		indexOf[v] = i
	}

	return Result{
		Groups:        cr.Groups,
		RelationNames: cr.RelationNames,
		RelationCount: cr.RelationCount,
		state: matrixState{
			matrix:         norm,
			centroids:      cr.Centroids,
			uniqueContexts: idx.UniqueContexts,
			indexOf:        indexOf,
		},
	}, nil
}

func (e MatrixEngine) Promote(idx svo.Index, result Result, cfg PromotionConfig) (Promotion, error) {
	st, ok := result.state.(matrixState)
	if !ok {
		return Promotion{}, fmt.Errorf("relation: matrix promote called on a non-matrix Result")
	}

	scores := RankMatrixInstances(idx, st.uniqueContexts, st.matrix, result.Groups, st.centroids, result.RelationCount)
	return PromoteFromScores(scores, cfg.P), nil
}

// RankMatrixInstances scores every (S,O) pair per cluster (C7, matrix
// variant): for each context in a cluster, weight its pairs by
// n/(1+population-stdev-of-row-minus-centroid) and accumulate (spec §4.4).
// It is exported so both MatrixEngine and a literal stage-by-stage pipeline
// chain can share one implementation.
func RankMatrixInstances(idx svo.Index, uniqueContexts []string, matrix *comatrix.Matrix, groups []int, centroids [][]float64, relationCount int) []map[svo.Pair]float64 {
	scores := make([]map[svo.Pair]float64, relationCount)
	for k := range scores {
		scores[k] = make(map[svo.Pair]float64)
	}

	for i, context := range uniqueContexts {
		k := groups[i]
		if k < 0 || k >= relationCount {
			continue
		}
		row := matrix.Row(i)
		sigma := popStd(diff(row, centroids[k]))

		for _, obs := range idx.ContextToPairs[context] {
			scores[k][obs.Pair] += float64(obs.N) / (1 + sigma)
		}
	}
	return scores
}

// PromoteFromScores sorts each cluster's scored pairs (descending score,
// ascending-pair tiebreak) and keeps the top p as promoted evidence.
func PromoteFromScores(scores []map[svo.Pair]float64, p int) Promotion {
	promotion := Promotion{
		GroupPairs:    make([][]PromotedPair, len(scores)),
		PromotedPairs: make([][]PromotedPair, len(scores)),
	}
	for k, byPair := range scores {
		pairs := make([]PromotedPair, 0, len(byPair))
		for pair, score := range byPair {
			pairs = append(pairs, PromotedPair{Pair: pair, Score: score})
		}
		sortPromoted(pairs)
		promotion.GroupPairs[k] = pairs
		promotion.PromotedPairs[k] = topP(pairs, p)
		if len(pairs) == 0 {
			promotion.GroupsToPrune = append(promotion.GroupsToPrune, k)
		}
	}
	return promotion
}

func diff(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

// popStd is the population (not sample) standard deviation, per the design
// notes' explicit numeric-semantics requirement.
func popStd(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}
