package features

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ohler55/ojg/oj"
)

// AggregatedRow is one relation's full feature record, joined from every
// available feature table.
type AggregatedRow struct {
	Relation           string
	PatternContextSize int
	Specificity        *SpecificityRow
	Relationship       *RelationshipRow
}

// Aggregate joins the pattern-context-size, specificity and relationship
// tables by relation name into one ordered table (C8's FeatureAggregator).
// Any table may be nil if its stage was skipped.
func Aggregate(relationNames []string, sizes []PatternContextSizeRow, spec []SpecificityRow, rel []RelationshipRow) []AggregatedRow {
	sizeByName := make(map[string]int, len(sizes))
	for _, s := range sizes {
		sizeByName[s.Relation] = s.Size
	}
	specByName := make(map[string]SpecificityRow, len(spec))
	for _, s := range spec {
		specByName[s.Relation] = s
	}
	relByName := make(map[string]RelationshipRow, len(rel))
	for _, r := range rel {
		relByName[r.Relation] = r
	}

	rows := make([]AggregatedRow, len(relationNames))
	for i, name := range relationNames {
		row := AggregatedRow{Relation: name, PatternContextSize: sizeByName[name]}
		if s, ok := specByName[name]; ok {
			row.Specificity = &s
		}
		if r, ok := relByName[name]; ok {
			row.Relationship = &r
		}
		rows[i] = row
	}
	return rows
}

// WriteCSV persists the aggregated table as classifier_data with a header row.
func WriteCSV(outDir string, rows []AggregatedRow) error {
	path := filepath.Join(outDir, "classifier_data")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("features: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"relation", "pattern_context_size",
		"cooccurrence_count", "cat1_unspecific", "cat2_unspecific", "cooccurrence_count_question",
		"commonest_cat1_instance", "commonest_cat1_count", "commonest_cat1_normalized", "commonest_cat1_frequency",
		"commonest_cat2_instance", "commonest_cat2_count", "commonest_cat2_normalized", "commonest_cat2_frequency",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.Relation, strconv.Itoa(row.PatternContextSize)}
		if row.Specificity != nil {
			s := row.Specificity
			record = append(record,
				strconv.Itoa(s.CooccurrenceCount), strconv.Itoa(s.Cat1Unspecific),
				strconv.Itoa(s.Cat2Unspecific), strconv.Itoa(s.CooccurrenceCountQuestion))
		} else {
			record = append(record, "", "", "", "")
		}
		if row.Relationship != nil {
			r := row.Relationship
			record = append(record,
				r.CommonestCat1Instance, strconv.Itoa(r.CommonestCat1Count),
				strconv.FormatFloat(r.CommonestCat1Normalized, 'f', -1, 64), strconv.Itoa(r.CommonestCat1Frequency),
				r.CommonestCat2Instance, strconv.Itoa(r.CommonestCat2Count),
				strconv.FormatFloat(r.CommonestCat2Normalized, 'f', -1, 64), strconv.Itoa(r.CommonestCat2Frequency))
		} else {
			record = append(record, "", "", "", "", "", "", "", "")
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteJSON persists the same aggregated table as a JSON sidecar alongside
// the CSV, using ojg for marshaling nested per-relation records.
func WriteJSON(outDir string, rows []AggregatedRow) error {
	type jsonRow struct {
		Relation           string `json:"relation"`
		PatternContextSize int    `json:"pattern_context_size"`
		Specificity        any    `json:"specificity,omitempty"`
		Relationship       any    `json:"relationship,omitempty"`
	}

	out := make([]jsonRow, len(rows))
	for i, row := range rows {
		out[i] = jsonRow{Relation: row.Relation, PatternContextSize: row.PatternContextSize}
		if row.Specificity != nil {
			out[i].Specificity = row.Specificity
		}
		if row.Relationship != nil {
			out[i].Relationship = row.Relationship
		}
	}

	path := filepath.Join(outDir, "classifier_data.json")
	data, err := oj.Marshal(out)
	if err != nil {
		return fmt.Errorf("features: marshal classifier_data.json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("features: write %s: %w", path, err)
	}
	return nil
}
