// Package stages implements the literal, named pipeline.Stage wrappers that
// drive a category-pair run end to end: the shared preprocessing filters
// (C1/C2), both clustering engine variants (C3-C7, matrix and graph), and
// the classifier feature extraction stages (C8). Each stage's Identity is
// the stable, printable name embedded in cache filenames; renaming one or
// changing the parameters baked into it invalidates every cached artifact
// downstream of it.
package stages

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"ontext/internal/svo"
)

// trimFloat renders a float64 as compactly as possible for embedding in a
// stage identity string, e.g. 2 -> "2", 2.5 -> "2.5".
func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// openFilterStream opens the input artifact (transparently decompressing
// xz-compressed ones) and creates the output artifact, optionally
// xz-compressing it. Both filter stage families share this shape: stream
// in, stream filtered lines out.
func openFilterStream(inPath, outPath string, compress bool) (io.ReadCloser, io.WriteCloser, error) {
	in, err := svo.OpenArtifact(inPath)
	if err != nil {
		return nil, nil, err
	}
	out, err := svo.CreateArtifact(outPath, compress)
	if err != nil {
		in.Close()
		return nil, nil, err
	}
	return in, out, nil
}

func readCategoryFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stages: open category file %s: %w", path, err)
	}
	defer f.Close()
	return svo.ReadCategoryFile(f)
}

// buildIndex reconstructs an svo.Index from the three typed entries the
// pipeline's in-memory ingestion stage publishes, so later stages can keep
// calling the existing Index-shaped APIs (comatrix.Build, cograph.Build,
// relation.RankMatrixInstances, ...) without re-deriving them.
func buildIndex(pairToContexts map[svo.Pair][]svo.Observation, contextToPairs map[string][]svo.PairObservation, uniqueContexts []string) svo.Index {
	return svo.Index{
		PairToContexts: pairToContexts,
		ContextToPairs: contextToPairs,
		UniqueContexts: uniqueContexts,
	}
}

func wantPairToContexts(bag map[string]any) (map[svo.Pair][]svo.Observation, error) {
	v, ok := bag["pair_to_contexts"].(map[svo.Pair][]svo.Observation)
	if !ok {
		return nil, fmt.Errorf("stages: pair_to_contexts missing or wrong type")
	}
	return v, nil
}

func wantContextToPairs(bag map[string]any) (map[string][]svo.PairObservation, error) {
	v, ok := bag["contexts_to_pairs"].(map[string][]svo.PairObservation)
	if !ok {
		return nil, fmt.Errorf("stages: contexts_to_pairs missing or wrong type")
	}
	return v, nil
}

func wantUniqueContexts(bag map[string]any) ([]string, error) {
	v, ok := bag["unique_contexts"].([]string)
	if !ok {
		return nil, fmt.Errorf("stages: unique_contexts missing or wrong type")
	}
	return v, nil
}
