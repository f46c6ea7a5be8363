package svo

import (
	"bufio"
	"fmt"
	"io"
)

// CategorySet is a finite set of instance identifiers (Cat1 or Cat2).
type CategorySet map[string]struct{}

// NewCategorySet builds a CategorySet from a slice of instance names.
func NewCategorySet(instances []string) CategorySet {
	set := make(CategorySet, len(instances))
	for _, i := range instances {
		set[i] = struct{}{}
	}
	return set
}

// ReadCategoryFile reads one instance identifier per line, trailing
// whitespace stripped, per spec's cat1/cat2 input format.
func ReadCategoryFile(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := trimTrailingSpace(scanner.Text())
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("svo: read category file: %w", err)
	}
	return out, nil
}

func trimTrailingSpace(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == '\t' || s[end-1] == '\r' || s[end-1] == '\n') {
		end--
	}
	return s[:end]
}

// FilterMinOccurrence keeps lines whose count N is >= min. A single streaming pass.
func FilterMinOccurrence(r io.Reader, w io.Writer, min int) error {
	if min <= 0 {
		return fmt.Errorf("svo: min_occurrence must be positive, got %d", min)
	}
	return ReadAll(r, func(t Triple) error {
		if t.N >= min {
			return writeTriple(w, t)
		}
		return nil
	})
}

// FilterMinContextOccurrence keeps lines whose context v appears in at least
// min distinct lines. Two passes: count, then filter.
func FilterMinContextOccurrence(r io.Reader, w io.Writer, min int) error {
	var lines []Triple
	counts := make(map[string]int)

	err := ReadAll(r, func(t Triple) error {
		lines = append(lines, t)
		counts[t.V]++
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range lines {
		if counts[t.V] >= min {
			if err := writeTriple(w, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// FilterMinPairOccurrence keeps lines whose unordered (S,O) pair appears in
// at least min distinct lines. min must be >= 2.
func FilterMinPairOccurrence(r io.Reader, w io.Writer, min int) error {
	if min < 2 {
		return fmt.Errorf("svo: min_pair_occurrence must be >= 2, got %d", min)
	}

	var lines []Triple
	counts := make(map[Pair]int)

	err := ReadAll(r, func(t Triple) error {
		lines = append(lines, t)
		pair, _ := CanonicalPair(t.S, t.O)
		counts[pair]++
		return nil
	})
	if err != nil {
		return err
	}

	for _, t := range lines {
		pair, _ := CanonicalPair(t.S, t.O)
		if counts[pair] >= min {
			if err := writeTriple(w, t); err != nil {
				return err
			}
		}
	}
	return nil
}

// FilterInstanceInCategory keeps a line iff (s in cat1 and o in cat2), or,
// when reverse is set, (o in cat1 and s in cat2).
func FilterInstanceInCategory(r io.Reader, w io.Writer, cat1, cat2 CategorySet, reverse bool) error {
	return ReadAll(r, func(t Triple) error {
		_, inS1 := cat1[t.S]
		_, inO2 := cat2[t.O]
		leftToRight := inS1 && inO2

		var rightToLeft bool
		if reverse {
			_, inO1 := cat1[t.O]
			_, inS2 := cat2[t.S]
			rightToLeft = inO1 && inS2
		}

		if leftToRight || rightToLeft {
			return writeTriple(w, t)
		}
		return nil
	})
}

func writeTriple(w io.Writer, t Triple) error {
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.S, t.V, t.O, t.N)
	return err
}
