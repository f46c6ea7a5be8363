package stages

import (
	"fmt"

	"ontext/internal/features"
	"ontext/internal/pipeline"
	"ontext/internal/relation"
	"ontext/internal/svo"
)

// InstanceFrequencyCountStage streams the raw corpus and tallies per-instance
// occurrence counts, normalized by category max (C8).
type InstanceFrequencyCountStage struct{}

func (s InstanceFrequencyCountStage) Identity() string { return "Instance_frequency_count" }
func (s InstanceFrequencyCountStage) RequiredFiles() []string {
	return []string{"raw_svo"}
}
func (s InstanceFrequencyCountStage) RequiredData() []string { return []string{"cat1", "cat2"} }
func (s InstanceFrequencyCountStage) Creates() []string {
	return []string{"instance_frequency_cat1", "instance_frequency_cat2"}
}
func (s InstanceFrequencyCountStage) Returns() []string {
	return []string{"freq1", "freq2", "freq1_mean", "freq2_mean"}
}
func (s InstanceFrequencyCountStage) CanCache() bool { return true }

func (s InstanceFrequencyCountStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	cat1, ok := bag.Data["cat1"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat1 missing or wrong type")
	}
	cat2, ok := bag.Data["cat2"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat2 missing or wrong type")
	}

	raw, err := svo.OpenArtifact(bag.Files["raw_svo"])
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	freq1, freq2, mean1, mean2, err := features.InstanceFrequencyCount(raw, cat1, cat2, workDir)
	if err != nil {
		return nil, fmt.Errorf("stages: instance frequency count: %w", err)
	}
	return map[string]any{
		"freq1":      freq1,
		"freq2":      freq2,
		"freq1_mean": mean1,
		"freq2_mean": mean2,
	}, nil
}

// SpecificityStage classifies each raw SVO line whose verb is a relation
// name by category membership of its instances (C8).
type SpecificityStage struct{}

func (s SpecificityStage) Identity() string        { return "Specificity" }
func (s SpecificityStage) RequiredFiles() []string { return []string{"raw_svo"} }
func (s SpecificityStage) RequiredData() []string {
	return []string{"cat1", "cat2", "relation_names"}
}
func (s SpecificityStage) Creates() []string { return nil }
func (s SpecificityStage) Returns() []string { return []string{"specificity"} }
func (s SpecificityStage) CanCache() bool    { return false }

func (s SpecificityStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	cat1, ok := bag.Data["cat1"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat1 missing or wrong type")
	}
	cat2, ok := bag.Data["cat2"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat2 missing or wrong type")
	}
	relationNames, ok := bag.Data["relation_names"].([]string)
	if !ok {
		return nil, fmt.Errorf("stages: relation_names missing or wrong type")
	}

	raw, err := svo.OpenArtifact(bag.Files["raw_svo"])
	if err != nil {
		return nil, err
	}
	defer raw.Close()

	rows, err := features.Specificity(raw, cat1, cat2, relationNames)
	if err != nil {
		return nil, fmt.Errorf("stages: specificity: %w", err)
	}
	return map[string]any{"specificity": rows}, nil
}

// PatternContextSizeStage counts how many unique contexts fall in each
// cluster (C8).
type PatternContextSizeStage struct{}

func (s PatternContextSizeStage) Identity() string        { return "Pattern_context_size" }
func (s PatternContextSizeStage) RequiredFiles() []string { return nil }
func (s PatternContextSizeStage) RequiredData() []string  { return []string{"relation_names", "groups"} }
func (s PatternContextSizeStage) Creates() []string       { return nil }
func (s PatternContextSizeStage) Returns() []string       { return []string{"pattern_context_size"} }
func (s PatternContextSizeStage) CanCache() bool          { return false }

func (s PatternContextSizeStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	relationNames, ok := bag.Data["relation_names"].([]string)
	if !ok {
		return nil, fmt.Errorf("stages: relation_names missing or wrong type")
	}
	groups, ok := bag.Data["groups"].([]int)
	if !ok {
		return nil, fmt.Errorf("stages: groups missing or wrong type")
	}

	rows := features.PatternContextSize(relationNames, groups)
	return map[string]any{"pattern_context_size": rows}, nil
}

// RelationshipCharacteristicsStage finds, per cluster, the most frequently
// co-occurring instance of each category among all its surviving pairs
// (group_pairs, not only the promoted top P) (C8).
type RelationshipCharacteristicsStage struct{}

func (s RelationshipCharacteristicsStage) Identity() string { return "Relationship_characteristics" }
func (s RelationshipCharacteristicsStage) RequiredFiles() []string { return nil }
func (s RelationshipCharacteristicsStage) RequiredData() []string {
	return []string{"group_pairs", "cat1", "cat2", "relation_names", "freq1", "freq2"}
}
func (s RelationshipCharacteristicsStage) Creates() []string { return nil }
func (s RelationshipCharacteristicsStage) Returns() []string { return []string{"relationship"} }
func (s RelationshipCharacteristicsStage) CanCache() bool    { return false }

func (s RelationshipCharacteristicsStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	groupPairs, ok := bag.Data["group_pairs"].([][]relation.PromotedPair)
	if !ok {
		return nil, fmt.Errorf("stages: group_pairs missing or wrong type")
	}
	cat1, ok := bag.Data["cat1"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat1 missing or wrong type")
	}
	cat2, ok := bag.Data["cat2"].(svo.CategorySet)
	if !ok {
		return nil, fmt.Errorf("stages: cat2 missing or wrong type")
	}
	relationNames, ok := bag.Data["relation_names"].([]string)
	if !ok {
		return nil, fmt.Errorf("stages: relation_names missing or wrong type")
	}
	freq1, ok := bag.Data["freq1"].([]features.FrequencyRow)
	if !ok {
		return nil, fmt.Errorf("stages: freq1 missing or wrong type")
	}
	freq2, ok := bag.Data["freq2"].([]features.FrequencyRow)
	if !ok {
		return nil, fmt.Errorf("stages: freq2 missing or wrong type")
	}

	rows := features.RelationshipCharacteristics(groupPairs, cat1, cat2, relationNames, freq1, freq2)
	return map[string]any{"relationship": rows}, nil
}

// FeatureAggregatorStage joins the pattern-context-size, specificity and
// relationship tables into one ordered classifier table, persisted as both
// CSV and a JSON sidecar (C8).
type FeatureAggregatorStage struct{}

func (s FeatureAggregatorStage) Identity() string        { return "Feature_aggregator" }
func (s FeatureAggregatorStage) RequiredFiles() []string  { return nil }
func (s FeatureAggregatorStage) RequiredData() []string {
	return []string{"relation_names", "pattern_context_size", "specificity", "relationship"}
}
func (s FeatureAggregatorStage) Creates() []string {
	return []string{"classifier_data", "classifier_data.json"}
}
func (s FeatureAggregatorStage) Returns() []string { return nil }
func (s FeatureAggregatorStage) CanCache() bool    { return true }

func (s FeatureAggregatorStage) Apply(workDir string, bag *pipeline.StateBag) (map[string]any, error) {
	relationNames, ok := bag.Data["relation_names"].([]string)
	if !ok {
		return nil, fmt.Errorf("stages: relation_names missing or wrong type")
	}
	sizes, ok := bag.Data["pattern_context_size"].([]features.PatternContextSizeRow)
	if !ok {
		return nil, fmt.Errorf("stages: pattern_context_size missing or wrong type")
	}
	spec, ok := bag.Data["specificity"].([]features.SpecificityRow)
	if !ok {
		return nil, fmt.Errorf("stages: specificity missing or wrong type")
	}
	rel, ok := bag.Data["relationship"].([]features.RelationshipRow)
	if !ok {
		return nil, fmt.Errorf("stages: relationship missing or wrong type")
	}

	rows := features.Aggregate(relationNames, sizes, spec, rel)
	if err := features.WriteCSV(workDir, rows); err != nil {
		return nil, err
	}
	if err := features.WriteJSON(workDir, rows); err != nil {
		return nil, err
	}
	return nil, nil
}
