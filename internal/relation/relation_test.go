package relation

import (
	"testing"

	"ontext/internal/svo"
)

func TestSortPromotedOrdersByScoreThenPair(t *testing.T) {
	pairs := []PromotedPair{
		{Pair: svo.Pair{A: "bob", B: "carol"}, Score: 5},
		{Pair: svo.Pair{A: "alice", B: "bob"}, Score: 5},
		{Pair: svo.Pair{A: "dave", B: "eve"}, Score: 9},
	}
	sortPromoted(pairs)

	if pairs[0].Pair.A != "dave" {
		t.Fatalf("highest score should sort first, got %+v", pairs[0])
	}
	if pairs[1].Pair.A != "alice" || pairs[2].Pair.A != "bob" {
		t.Fatalf("tied scores should break ascending by pair, got %+v then %+v", pairs[1], pairs[2])
	}
}

func TestTopPIsAPrefixOfTheFullSortedList(t *testing.T) {
	scores := []map[svo.Pair]float64{
		{
			{A: "alice", B: "bob"}:  3,
			{A: "carol", B: "dave"}: 1,
			{A: "erin", B: "frank"}: 2,
		},
	}
	promotion := PromoteFromScores(scores, 2)

	if len(promotion.GroupPairs[0]) != 3 {
		t.Fatalf("got %d group pairs, want 3", len(promotion.GroupPairs[0]))
	}
	if len(promotion.PromotedPairs[0]) != 2 {
		t.Fatalf("got %d promoted pairs, want 2", len(promotion.PromotedPairs[0]))
	}
	for i, p := range promotion.PromotedPairs[0] {
		if p != promotion.GroupPairs[0][i] {
			t.Fatalf("promoted[%d] = %+v, not a prefix of group pairs %+v", i, p, promotion.GroupPairs[0])
		}
	}
}

func TestPromoteFromScoresMarksEmptyGroupsForPruning(t *testing.T) {
	scores := []map[svo.Pair]float64{
		{{A: "alice", B: "bob"}: 1},
		{},
	}
	promotion := PromoteFromScores(scores, 5)

	if len(promotion.GroupsToPrune) != 1 || promotion.GroupsToPrune[0] != 1 {
		t.Fatalf("expected group 1 marked for pruning, got %v", promotion.GroupsToPrune)
	}
}

func TestArgmaxBreaksTiesTowardLowestIndex(t *testing.T) {
	idx, max, sum := argmax([]float64{2, 2, 1})
	if idx != 0 {
		t.Fatalf("tie should favor the lowest index, got %d", idx)
	}
	if max != 2 {
		t.Fatalf("max = %v, want 2", max)
	}
	if sum != 5 {
		t.Fatalf("sum = %v, want 5", sum)
	}
}

func buildPromotionIndex(t *testing.T) svo.Index {
	t.Helper()
	pair := svo.Pair{A: "alice", B: "bob"}
	return svo.Index{
		UniqueContexts: []string{"admires", "likes"},
		PairToContexts: map[svo.Pair][]svo.Observation{
			pair: {
				{Context: "likes", N: 5, IsForward: true},
				{Context: "admires", N: 1, IsForward: true},
			},
		},
	}
}

func TestPromoteGraphPairsAssignsPairToDominantCluster(t *testing.T) {
	idx := buildPromotionIndex(t)
	groups := []int{0, 1} // admires -> cluster 0, likes -> cluster 1

	promotion := PromoteGraphPairs(idx, groups, 2, 5, false)

	if len(promotion.GroupPairs[1]) != 1 {
		t.Fatalf("expected the pair to land in cluster 1 (dominated by 'likes'), got group pairs %+v", promotion.GroupPairs)
	}
	if len(promotion.GroupPairs[0]) != 0 {
		t.Fatalf("cluster 0 should have no surviving pairs, got %+v", promotion.GroupPairs[0])
	}
}

func TestPromoteGraphPairsOnlyCommonestDropsLowScorePairs(t *testing.T) {
	// Evenly split occurrence across two clusters: score = max/(sum-max+1) = 1/(2-1+1) < 1.
	idx := svo.Index{
		UniqueContexts: []string{"a", "b"},
		PairToContexts: map[svo.Pair][]svo.Observation{
			{A: "alice", B: "bob"}: {
				{Context: "a", N: 1, IsForward: true},
				{Context: "b", N: 1, IsForward: true},
			},
		},
	}
	groups := []int{0, 1}

	promotion := PromoteGraphPairs(idx, groups, 2, 5, true)
	for k, pairs := range promotion.GroupPairs {
		if len(pairs) != 0 {
			t.Fatalf("onlyCommonest should drop the evenly-split pair, but group %d kept %+v", k, pairs)
		}
	}
}
