// Command ontext runs one category-pair relation-discovery pass: it filters
// a raw SVO corpus, clusters the verbs that co-occur between two instance
// categories, and writes the relations/contexts/classifier-feature tables.
package main

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"ontext/internal/config"
	"ontext/internal/pipeline"
	"ontext/internal/relation"
	"ontext/internal/report"
	"ontext/internal/stages"
	"ontext/internal/svo"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRootCmd() *cobra.Command {
	var (
		rawSVO     string
		cat1File   string
		cat2File   string
		cat1Name   string
		cat2Name   string
		configPath string
		outputDir  string
		cacheDir   string
	)

	cmd := &cobra.Command{
		Use:   "ontext",
		Short: "discover verb relations between two instance categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadRunConfig(configPath)
			if err != nil {
				return err
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}
			if cacheDir != "" {
				cfg.CacheDir = cacheDir
			}
			return run(cfg, rawSVO, cat1File, cat2File, cat1Name, cat2Name)
		},
	}

	cmd.Flags().StringVar(&rawSVO, "svo", "", "path to the raw subject-verb-object-count corpus (required)")
	cmd.Flags().StringVar(&cat1File, "cat1", "", "path to the first category's instance list (required)")
	cmd.Flags().StringVar(&cat2File, "cat2", "", "path to the second category's instance list (required)")
	cmd.Flags().StringVar(&cat1Name, "cat1-name", "cat1", "display name for the first category")
	cmd.Flags().StringVar(&cat2Name, "cat2-name", "cat2", "display name for the second category")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML run configuration (optional)")
	cmd.Flags().StringVar(&outputDir, "out", "", "output directory, overriding the config's output_dir")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "artifact cache directory, overriding the config's cache_dir")
	cmd.MarkFlagRequired("svo")
	cmd.MarkFlagRequired("cat1")
	cmd.MarkFlagRequired("cat2")

	return cmd
}

// run builds the stage chain for cfg's clustering path, executes it, and
// writes the final report tables once every stage has completed.
func run(cfg config.RunConfig, rawSVO, cat1File, cat2File, cat1Name, cat2Name string) error {
	chain := buildChain(cfg)

	p := pipeline.New(cfg.OutputDir, cfg.CacheDir, chain)
	p.AddFile("raw_svo", rawSVO)
	p.AddFile("cat1_file", cat1File)
	p.AddFile("cat2_file", cat2File)

	if err := p.Prepare(); err != nil {
		return fmt.Errorf("ontext: prepare: %w", err)
	}
	if err := p.ExecuteAll(); err != nil {
		return fmt.Errorf("ontext: %w", err)
	}

	hits, misses := p.Cache.Stats()
	log.Printf("cache hits=%d misses=%d", hits, misses)

	return writeReports(cfg, p, cat1Name, cat2Name)
}

// buildChain assembles the literal stage sequence: shared preprocessing
// (C1/C2), then the configured clustering path (C3-C7), then the classifier
// feature stages (C8).
func buildChain(cfg config.RunConfig) []pipeline.Stage {
	chain := []pipeline.Stage{
		stages.FilterMinOccurrenceStage{Min: cfg.MinOccurrence, Compress: cfg.CompressArtifacts},
		stages.FilterMinContextOccurrenceStage{Min: cfg.MinContextOccurrence, Compress: cfg.CompressArtifacts},
		stages.FilterMinPairOccurrenceStage{Min: cfg.MinPairOccurrence, Compress: cfg.CompressArtifacts},
		stages.ReadCategoriesStage{},
		stages.FilterInstanceInCategoryStage{Reverse: cfg.ReverseCategory, Compress: cfg.CompressArtifacts},
		stages.SvoToMemoryStage{MaxContexts: cfg.MaxContexts},
	}

	if cfg.UseGraphEngine {
		chain = append(chain,
			stages.BuildCooccurrenceGraphStage{},
			stages.NcmHcswStage{Multiplier: cfg.HCSMultiplier},
			stages.NcmMedoidsStage{},
			stages.NcmPromotePairsStage{P: cfg.PromotionCount, OnlyCommonest: cfg.OnlyCommonest},
		)
	} else {
		chain = append(chain,
			stages.BuildCooccurrenceMatrixStage{},
			stages.NormalizeMatrixStage{},
			stages.OntextKmeansStage{K: cfg.K},
			stages.InstanceRankerStage{},
			stages.EvidenceForPromotionStage{P: cfg.PromotionCount},
		)
	}

	chain = append(chain,
		stages.InstanceFrequencyCountStage{},
		stages.SpecificityStage{},
		stages.PatternContextSizeStage{},
		stages.RelationshipCharacteristicsStage{},
		stages.FeatureAggregatorStage{},
	)

	return chain
}

// writeReports reassembles the typed Result/Promotion/Index values the
// stage chain scattered across the bag and renders the final CSV tables.
func writeReports(cfg config.RunConfig, p *pipeline.Pipeline, cat1Name, cat2Name string) error {
	bag := p.Bag.Data

	relationNames, _ := bag["relation_names"].([]string)
	groups, _ := bag["groups"].([]int)
	relationCount, _ := bag["relation_count"].(int)
	promotedPairs, _ := bag["promoted_pairs"].([][]relation.PromotedPair)
	pairToContexts, _ := bag["pair_to_contexts"].(map[svo.Pair][]svo.Observation)
	uniqueContexts, _ := bag["unique_contexts"].([]string)

	result := relation.Result{
		Groups:        groups,
		RelationNames: relationNames,
		RelationCount: relationCount,
	}
	promotion := relation.Promotion{PromotedPairs: promotedPairs}
	idx := svo.Index{PairToContexts: pairToContexts, UniqueContexts: uniqueContexts}

	if err := report.WriteRelations(filepath.Join(cfg.OutputDir, "relations.csv"), cat1Name, cat2Name, idx, result, promotion); err != nil {
		return fmt.Errorf("ontext: write relations report: %w", err)
	}
	if err := report.WriteContexts(filepath.Join(cfg.OutputDir, "contexts.csv"), cat1Name, cat2Name, idx, result); err != nil {
		return fmt.Errorf("ontext: write contexts report: %w", err)
	}

	log.Printf("wrote %d relations to %s", relationCount, cfg.OutputDir)
	return nil
}
