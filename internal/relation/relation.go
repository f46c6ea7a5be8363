// Package relation unifies the two clustering engine variants (matrix and
// graph) behind one interface, and implements the shared promotion contract:
// medoid/relation naming (C6) and instance ranking/promotion (C7).
package relation

import (
	"sort"

	"ontext/internal/svo"
)

// Result is a clustering engine's output: cluster assignment per unique
// context, plus the medoid-derived relation name per cluster.
type Result struct {
	Groups        []int
	RelationNames []string
	RelationCount int

	// state carries whatever intermediate artifacts the engine that produced
	// this Result needs again during Promote (e.g. centroids, the graph).
	// Only the engine that set it ever type-asserts it back out.
	state any
}

// PromotionConfig controls how many pairs are kept per cluster and whether
// the graph path's dominance-score floor is applied.
type PromotionConfig struct {
	P             int
	OnlyCommonest bool
}

// PromotedPair is one (S,O) instance pair ranked as evidence for a relation.
type PromotedPair struct {
	Pair  svo.Pair
	Score float64
}

// Promotion is the per-cluster ranked-pairs output of C7.
type Promotion struct {
	// GroupPairs[k] is every surviving pair for cluster k, sorted descending
	// by score (ties broken ascending by pair). PromotedPairs[k] is its
	// length-P prefix.
	GroupPairs    [][]PromotedPair
	PromotedPairs [][]PromotedPair
	GroupsToPrune []int
}

// Engine is the common surface both clustering variants implement.
type Engine interface {
	// Cluster partitions idx's unique contexts into relation clusters and
	// names each with a medoid.
	Cluster(idx svo.Index) (Result, error)
	// Promote ranks and selects evidence (S,O) pairs per cluster from a
	// Result produced by this same engine's Cluster call.
	Promote(idx svo.Index, result Result, cfg PromotionConfig) (Promotion, error)
}

// sortPromoted sorts pairs descending by score, ties broken ascending by
// pair (lexicographic on (A,B)) — the spec's resolution of the two
// inconsistent promotion-order definitions in the original sources.
func sortPromoted(pairs []PromotedPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Score != pairs[j].Score {
			return pairs[i].Score > pairs[j].Score
		}
		if pairs[i].Pair.A != pairs[j].Pair.A {
			return pairs[i].Pair.A < pairs[j].Pair.A
		}
		return pairs[i].Pair.B < pairs[j].Pair.B
	})
}

func topP(pairs []PromotedPair, p int) []PromotedPair {
	if p >= len(pairs) {
		return pairs
	}
	return pairs[:p]
}
