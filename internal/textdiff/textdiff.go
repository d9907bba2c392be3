// Package textdiff renders line diffs between two versions of a file.
package textdiff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines around each hunk.
const ContextLines = 3

// Unified returns a unified diff of from and to, labelled
// "from/{filename}" and "to/{filename}".
func Unified(filename, from, to string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(from),
		B:        difflib.SplitLines(to),
		FromFile: "from/" + filename,
		ToFile:   "to/" + filename,
		Context:  ContextLines,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("textdiff: %s: %w", filename, err)
	}
	return out, nil
}

// Count returns how many lines were added and removed going from from to to.
func Count(from, to string) (added, removed int) {
	if from == to {
		return 0, 0
	}
	m := difflib.NewMatcher(lines(from), lines(to))
	for _, op := range m.GetOpCodes() {
		switch op.Tag {
		case 'i':
			added += op.J2 - op.J1
		case 'd':
			removed += op.I2 - op.I1
		case 'r':
			added += op.J2 - op.J1
			removed += op.I2 - op.I1
		}
	}
	return added, removed
}

// Similarity returns the line-level similarity ratio of a and b in [0,1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	return difflib.NewMatcher(lines(a), lines(b)).Ratio()
}

func lines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(s)
}

// Differ adapts Unified to the content-diff capability interface.
type Differ struct{}

func (Differ) Diff(filename, from, to string) (string, error) {
	return Unified(filename, from, to)
}
