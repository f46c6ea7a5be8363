// Package report renders final run artifacts: the relations table (one row
// per discovered relation, with evidence examples) and the contexts table
// (one row per verb, naming the relation it was assigned to).
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"ontext/internal/relation"
	"ontext/internal/svo"
)

// WriteRelations writes relations.csv: cat1,cat2,name,cluster_size,examples.
// examples is a semicolon-joined list of reconstructed evidence sentences
// for that cluster's promoted pairs, across every stored observation of
// each pair (spec §4.4's Evidence for promotion).
func WriteRelations(path, cat1Name, cat2Name string, idx svo.Index, result relation.Result, promotion relation.Promotion) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"cat1", "cat2", "name", "cluster_size", "examples"}); err != nil {
		return err
	}

	sizes := make([]int, result.RelationCount)
	for _, g := range result.Groups {
		if g >= 0 && g < len(sizes) {
			sizes[g]++
		}
	}

	for k, name := range result.RelationNames {
		var examples []string
		if k < len(promotion.PromotedPairs) {
			for _, pp := range promotion.PromotedPairs[k] {
				for _, obs := range idx.PairToContexts[pp.Pair] {
					examples = append(examples, svo.Reconstruct(pp.Pair, obs.Context, obs.IsForward))
				}
			}
		}
		record := []string{
			cat1Name, cat2Name, name,
			fmt.Sprintf("%d", sizes[k]),
			strings.Join(examples, "; "),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteContexts writes contexts.csv: cat1,cat2,relation,context — one row
// per unique verb, naming the relation (medoid) its cluster was assigned.
func WriteContexts(path, cat1Name, cat2Name string, idx svo.Index, result relation.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"cat1", "cat2", "relation", "context"}); err != nil {
		return err
	}

	for i, context := range idx.UniqueContexts {
		relationName := ""
		if g := result.Groups[i]; g >= 0 && g < len(result.RelationNames) {
			relationName = result.RelationNames[g]
		}
		if err := w.Write([]string{cat1Name, cat2Name, relationName, context}); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
