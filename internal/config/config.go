// Package config holds the run-wide tunables for a relation-discovery run:
// cluster count, promotion size, HCS multiplier and the preprocessing
// floors, loaded from YAML with a defaults overlay.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig controls one category-pair run of the pipeline.
type RunConfig struct {
	// CacheDir is the shared on-disk artifact cache. Empty disables caching.
	CacheDir string `yaml:"cache_dir"`
	// OutputDir is the root under which per-stage working directories are created.
	OutputDir string `yaml:"output_dir"`

	// MinOccurrence is the floor applied to each SVO line's count N.
	MinOccurrence int `yaml:"min_occurrence"`
	// MinContextOccurrence is the floor on distinct-line count per verb.
	MinContextOccurrence int `yaml:"min_context_occurrence"`
	// MinPairOccurrence is the floor on distinct-line count per (S,O) pair; must be >= 2.
	MinPairOccurrence int `yaml:"min_pair_occurrence"`
	// ReverseCategory allows O in Cat1 and S in Cat2 (see FilterInstanceInCategory).
	ReverseCategory bool `yaml:"reverse_category"`

	// K is the number of clusters for the matrix (K-means) path.
	K int `yaml:"k"`
	// HCSMultiplier is the t in the "highly connected" predicate t*w > |V|.
	HCSMultiplier float64 `yaml:"hcs_multiplier"`
	// UseGraphEngine selects the HCS graph path instead of the K-means matrix path.
	UseGraphEngine bool `yaml:"use_graph_engine"`

	// PromotionCount is P, the number of top pairs kept per cluster.
	PromotionCount int `yaml:"promotion_count"`
	// OnlyCommonest discards graph-path pairs whose dominance score is below 1.
	OnlyCommonest bool `yaml:"only_commonest"`

	// MaxContexts caps |UniqueContexts|; a run that would exceed it fails clearly
	// rather than building a dense matrix that does not fit memory.
	MaxContexts int `yaml:"max_contexts"`

	// CompressArtifacts writes filtered SVO artifacts xz-compressed.
	CompressArtifacts bool `yaml:"compress_artifacts"`
}

// DefaultRunConfig returns the baseline configuration mirrored from the
// reference driver's stage chain (occurrence floor 5, context floor 3, pair
// floor 5, k=5, P=50).
func DefaultRunConfig() RunConfig {
	return RunConfig{
		CacheDir:             "",
		OutputDir:            ".",
		MinOccurrence:        5,
		MinContextOccurrence: 3,
		MinPairOccurrence:    5,
		ReverseCategory:      true,
		K:                    5,
		HCSMultiplier:        2,
		UseGraphEngine:       false,
		PromotionCount:       50,
		OnlyCommonest:        true,
		MaxContexts:          20000,
		CompressArtifacts:    false,
	}
}

// LoadRunConfig reads a YAML file and overlays it onto DefaultRunConfig. A
// missing path is not an error: the defaults are returned unchanged.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.MinPairOccurrence < 2 {
		return cfg, fmt.Errorf("config: min_pair_occurrence must be >= 2, got %d", cfg.MinPairOccurrence)
	}

	return cfg, nil
}
