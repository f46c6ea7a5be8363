package stages

import (
	"fmt"

	"ontext/internal/comatrix"
	"ontext/internal/pipeline"
	"ontext/internal/relation"
	"ontext/internal/svo"
)

// BuildCooccurrenceMatrixStage builds the dense verb×verb co-occurrence
// matrix (C3a). The matrix is kept in memory only: it is cheap to rebuild
// and does not benefit from the file-artifact cache the way filtered
// corpora do.
type BuildCooccurrenceMatrixStage struct{}

func (s BuildCooccurrenceMatrixStage) Identity() string { return "Build_cooccurrence_matrix" }
func (s BuildCooccurrenceMatrixStage) RequiredFiles() []string { return nil }
func (s BuildCooccurrenceMatrixStage) RequiredData() []string {
	return []string{"pair_to_contexts", "unique_contexts"}
}
func (s BuildCooccurrenceMatrixStage) Creates() []string { return nil }
func (s BuildCooccurrenceMatrixStage) Returns() []string { return []string{"comatrix"} }
func (s BuildCooccurrenceMatrixStage) CanCache() bool    { return false }

func (s BuildCooccurrenceMatrixStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	pairToContexts, err := wantPairToContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	uniqueContexts, err := wantUniqueContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	idx := svo.Index{PairToContexts: pairToContexts, UniqueContexts: uniqueContexts}
	return map[string]any{"comatrix": comatrix.Build(idx)}, nil
}

// NormalizeMatrixStage row-normalizes the co-occurrence matrix so each
// non-zero row sums to 1 (C3a).
type NormalizeMatrixStage struct{}

func (s NormalizeMatrixStage) Identity() string       { return "Normalize_matrix" }
func (s NormalizeMatrixStage) RequiredFiles() []string { return nil }
func (s NormalizeMatrixStage) RequiredData() []string  { return []string{"comatrix"} }
func (s NormalizeMatrixStage) Creates() []string       { return nil }
func (s NormalizeMatrixStage) Returns() []string       { return []string{"comatrix"} }
func (s NormalizeMatrixStage) CanCache() bool          { return false }

func (s NormalizeMatrixStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	m, ok := bag.Data["comatrix"].(*comatrix.Matrix)
	if !ok {
		return nil, fmt.Errorf("stages: comatrix missing or wrong type")
	}
	norm, err := comatrix.Normalize(m)
	if err != nil {
		return nil, fmt.Errorf("stages: normalize matrix: %w", err)
	}
	return map[string]any{"comatrix": norm}, nil
}

// OntextKmeansStage runs K-means++ over the normalized matrix into K
// clusters and names each by its medoid (C4/C6, matrix variant).
type OntextKmeansStage struct {
	K    int
	Seed int64
}

func (s OntextKmeansStage) Identity() string       { return fmt.Sprintf("Ontext_kmeans_%d", s.K) }
func (s OntextKmeansStage) RequiredFiles() []string { return nil }
func (s OntextKmeansStage) RequiredData() []string {
	return []string{"comatrix", "unique_contexts"}
}
func (s OntextKmeansStage) Creates() []string { return nil }
func (s OntextKmeansStage) Returns() []string {
	return []string{"groups", "centroids", "medoids", "relation_names", "relation_count"}
}
func (s OntextKmeansStage) CanCache() bool { return false }

func (s OntextKmeansStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	m, ok := bag.Data["comatrix"].(*comatrix.Matrix)
	if !ok {
		return nil, fmt.Errorf("stages: comatrix missing or wrong type")
	}
	uniqueContexts, err := wantUniqueContexts(bag.Data)
	if err != nil {
		return nil, err
	}

	cr := comatrix.Cluster(m, uniqueContexts, s.K, s.Seed)
	return map[string]any{
		"groups":         cr.Groups,
		"centroids":      cr.Centroids,
		"medoids":        cr.Medoids,
		"relation_names": cr.RelationNames,
		"relation_count": cr.RelationCount,
	}, nil
}

// InstanceRankerStage scores every (S,O) instance pair per cluster by its
// contexts' inverse population-stdev-weighted occurrence (C7, matrix variant).
type InstanceRankerStage struct{}

func (s InstanceRankerStage) Identity() string       { return "Instance_ranker" }
func (s InstanceRankerStage) RequiredFiles() []string { return nil }
func (s InstanceRankerStage) RequiredData() []string {
	return []string{"pair_to_contexts", "contexts_to_pairs", "unique_contexts", "comatrix", "groups", "centroids", "relation_count"}
}
func (s InstanceRankerStage) Creates() []string { return nil }
func (s InstanceRankerStage) Returns() []string { return []string{"instances_scores"} }
func (s InstanceRankerStage) CanCache() bool    { return false }

func (s InstanceRankerStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	pairToContexts, err := wantPairToContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	contextToPairs, err := wantContextToPairs(bag.Data)
	if err != nil {
		return nil, err
	}
	uniqueContexts, err := wantUniqueContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	m, ok := bag.Data["comatrix"].(*comatrix.Matrix)
	if !ok {
		return nil, fmt.Errorf("stages: comatrix missing or wrong type")
	}
	groups, ok := bag.Data["groups"].([]int)
	if !ok {
		return nil, fmt.Errorf("stages: groups missing or wrong type")
	}
	centroids, ok := bag.Data["centroids"].([][]float64)
	if !ok {
		return nil, fmt.Errorf("stages: centroids missing or wrong type")
	}
	relationCount, ok := bag.Data["relation_count"].(int)
	if !ok {
		return nil, fmt.Errorf("stages: relation_count missing or wrong type")
	}

	idx := buildIndex(pairToContexts, contextToPairs, uniqueContexts)
	scores := relation.RankMatrixInstances(idx, uniqueContexts, m, groups, centroids, relationCount)
	return map[string]any{"instances_scores": scores}, nil
}

// EvidenceForPromotionStage sorts each cluster's scored pairs and keeps the
// top P as promoted evidence (C7, matrix variant).
type EvidenceForPromotionStage struct {
	P int
}

func (s EvidenceForPromotionStage) Identity() string {
	return fmt.Sprintf("Evidence_for_promotion_%d", s.P)
}
func (s EvidenceForPromotionStage) RequiredFiles() []string { return nil }
func (s EvidenceForPromotionStage) RequiredData() []string  { return []string{"instances_scores"} }
func (s EvidenceForPromotionStage) Creates() []string       { return nil }
func (s EvidenceForPromotionStage) Returns() []string {
	return []string{"promoted_pairs", "group_pairs", "groups_to_prune"}
}
func (s EvidenceForPromotionStage) CanCache() bool { return false }

func (s EvidenceForPromotionStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	scores, ok := bag.Data["instances_scores"].([]map[svo.Pair]float64)
	if !ok {
		return nil, fmt.Errorf("stages: instances_scores missing or wrong type")
	}

	promotion := relation.PromoteFromScores(scores, s.P)
	return map[string]any{
		"promoted_pairs":  promotion.PromotedPairs,
		"group_pairs":     promotion.GroupPairs,
		"groups_to_prune": promotion.GroupsToPrune,
	}, nil
}
