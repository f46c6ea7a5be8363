package stages

import (
	"fmt"

	"ontext/internal/cograph"
	"ontext/internal/pipeline"
	"ontext/internal/relation"
)

// BuildCooccurrenceGraphStage builds the weighted verb co-occurrence graph
// (C3b, graph variant).
type BuildCooccurrenceGraphStage struct{}

func (s BuildCooccurrenceGraphStage) Identity() string        { return "Build_cooccurrence_graph" }
func (s BuildCooccurrenceGraphStage) RequiredFiles() []string { return nil }
func (s BuildCooccurrenceGraphStage) RequiredData() []string {
	return []string{"pair_to_contexts", "unique_contexts"}
}
func (s BuildCooccurrenceGraphStage) Creates() []string { return nil }
func (s BuildCooccurrenceGraphStage) Returns() []string { return []string{"cograph"} }
func (s BuildCooccurrenceGraphStage) CanCache() bool    { return false }

func (s BuildCooccurrenceGraphStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	pairToContexts, err := wantPairToContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	uniqueContexts, err := wantUniqueContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	idx := buildIndex(pairToContexts, nil, uniqueContexts)
	return map[string]any{"cograph": cograph.Build(idx)}, nil
}

// NcmHcswStage partitions the co-occurrence graph into Highly Connected
// Subgraphs via recursive weighted Stoer-Wagner min-cut (C5).
type NcmHcswStage struct {
	Multiplier float64
}

func (s NcmHcswStage) Identity() string {
	return fmt.Sprintf("Ncm_hcsw_%s", trimFloat(s.Multiplier))
}
func (s NcmHcswStage) RequiredFiles() []string { return nil }
func (s NcmHcswStage) RequiredData() []string  { return []string{"cograph"} }
func (s NcmHcswStage) Creates() []string       { return nil }
func (s NcmHcswStage) Returns() []string {
	return []string{"groups", "clusters", "relation_count"}
}
func (s NcmHcswStage) CanCache() bool { return false }

func (s NcmHcswStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	g, ok := bag.Data["cograph"].(*cograph.Graph)
	if !ok {
		return nil, fmt.Errorf("stages: cograph missing or wrong type")
	}

	groups, clusters := cograph.HCSCluster(g, s.Multiplier)
	return map[string]any{
		"groups":         groups,
		"clusters":       clusters,
		"relation_count": len(clusters),
	}, nil
}

// NcmMedoidsStage names each cluster after its degree-centrality medoid (C6,
// graph variant).
type NcmMedoidsStage struct{}

func (s NcmMedoidsStage) Identity() string        { return "Ncm_medoids" }
func (s NcmMedoidsStage) RequiredFiles() []string { return nil }
func (s NcmMedoidsStage) RequiredData() []string {
	return []string{"cograph", "clusters", "unique_contexts"}
}
func (s NcmMedoidsStage) Creates() []string { return nil }
func (s NcmMedoidsStage) Returns() []string { return []string{"relation_names", "medoids"} }
func (s NcmMedoidsStage) CanCache() bool    { return false }

func (s NcmMedoidsStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	g, ok := bag.Data["cograph"].(*cograph.Graph)
	if !ok {
		return nil, fmt.Errorf("stages: cograph missing or wrong type")
	}
	clusters, ok := bag.Data["clusters"].([][]int)
	if !ok {
		return nil, fmt.Errorf("stages: clusters missing or wrong type")
	}
	uniqueContexts, err := wantUniqueContexts(bag.Data)
	if err != nil {
		return nil, err
	}

	centrality := cograph.DegreeCentrality(g)
	relationNames := make([]string, len(clusters))
	medoids := make([]int, len(clusters))
	for k, nodes := range clusters {
		best := nodes[0]
		for _, n := range nodes[1:] {
			if centrality[n] > centrality[best] {
				best = n
			}
		}
		medoids[k] = best
		relationNames[k] = uniqueContexts[best]
	}

	return map[string]any{
		"relation_names": relationNames,
		"medoids":        medoids,
	}, nil
}

// NcmPromotePairsStage scores every (S,O) pair by its per-cluster dominance
// and keeps the top P per cluster (C7, graph variant).
type NcmPromotePairsStage struct {
	P             int
	OnlyCommonest bool
}

func (s NcmPromotePairsStage) Identity() string {
	return fmt.Sprintf("Ncm_promote_pairs_%d_%t", s.P, s.OnlyCommonest)
}
func (s NcmPromotePairsStage) RequiredFiles() []string { return nil }
func (s NcmPromotePairsStage) RequiredData() []string {
	return []string{"pair_to_contexts", "unique_contexts", "groups", "relation_count"}
}
func (s NcmPromotePairsStage) Creates() []string { return nil }
func (s NcmPromotePairsStage) Returns() []string {
	return []string{"promoted_pairs", "group_pairs", "groups_to_prune"}
}
func (s NcmPromotePairsStage) CanCache() bool { return false }

func (s NcmPromotePairsStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	pairToContexts, err := wantPairToContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	uniqueContexts, err := wantUniqueContexts(bag.Data)
	if err != nil {
		return nil, err
	}
	groups, ok := bag.Data["groups"].([]int)
	if !ok {
		return nil, fmt.Errorf("stages: groups missing or wrong type")
	}
	relationCount, ok := bag.Data["relation_count"].(int)
	if !ok {
		return nil, fmt.Errorf("stages: relation_count missing or wrong type")
	}

	idx := buildIndex(pairToContexts, nil, uniqueContexts)
	promotion := relation.PromoteGraphPairs(idx, groups, relationCount, s.P, s.OnlyCommonest)
	return map[string]any{
		"promoted_pairs":  promotion.PromotedPairs,
		"group_pairs":     promotion.GroupPairs,
		"groups_to_prune": promotion.GroupsToPrune,
	}, nil
}
