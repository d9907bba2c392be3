// Package treediff compares two extracted archives and produces a nested
// tree of per-path change statuses.
//
// Files present at the same path on both sides are unchanged or modified.
// Files only on the "to" side are paired with files only on the "from"
// side when their line similarity reaches the threshold; such pairs are
// reported as renamed. Whatever stays unpaired is added or removed.
// Directory statuses follow from their children.
package treediff

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"path"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/aweris/pkgdiff/internal/archive"
	"github.com/aweris/pkgdiff/internal/textdiff"
)

var ErrThreshold = errors.New("treediff: similarity threshold must be within [0, 1]")

type Status string

const (
	Added     Status = "added"
	Removed   Status = "removed"
	Modified  Status = "modified"
	Unchanged Status = "unchanged"
	Renamed   Status = "renamed"
)

// Entry is one node of the diff tree. Directory entries carry the summed
// line counts of their descendants.
type Entry struct {
	Path     string            `json:"path"`
	OldPath  string            `json:"oldPath,omitempty"`
	Type     archive.EntryType `json:"type"`
	Status   Status            `json:"status"`
	Added    int               `json:"added,omitempty"`
	Removed  int               `json:"removed,omitempty"`
	Children []Entry           `json:"children,omitempty"`
}

func (e Entry) IsDir() bool { return e.Type == archive.Directory }

// Builder is the default tree-diff capability.
type Builder struct{}

func (Builder) BuildTree(from, to archive.Files, threshold float64) ([]Entry, error) {
	return BuildTree(from, to, threshold)
}

// BuildTree diffs two file maps. The result lists top-level entries,
// directories first, then by name, recursively.
func BuildTree(from, to archive.Files, threshold float64) ([]Entry, error) {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrThreshold, threshold)
	}

	b := newBuilder()
	for p, e := range from {
		if e.IsDir() {
			b.dir(p, inFrom)
		}
	}
	for p, e := range to {
		if e.IsDir() {
			b.dir(p, inTo)
		}
	}

	var onlyFrom, onlyTo []string
	for p, e := range from {
		if e.IsDir() {
			continue
		}
		next, ok := to[p]
		if !ok || next.IsDir() {
			onlyFrom = append(onlyFrom, p)
			continue
		}
		entry := Entry{Path: p, Type: archive.File, Status: Unchanged}
		if e.Content != next.Content {
			entry.Status = Modified
			entry.Added, entry.Removed = textdiff.Count(e.Content, next.Content)
		}
		b.file(entry, inFrom|inTo)
	}
	for p, e := range to {
		if prev, ok := from[p]; !e.IsDir() && (!ok || prev.IsDir()) {
			onlyTo = append(onlyTo, p)
		}
	}
	slices.Sort(onlyFrom)
	slices.Sort(onlyTo)

	paired := make(map[string]bool)
	for _, p := range onlyTo {
		content := to[p].Content
		if old, ok := bestMatch(content, onlyFrom, from, paired, threshold); ok {
			paired[old] = true
			entry := Entry{Path: p, OldPath: old, Type: archive.File, Status: Renamed}
			entry.Added, entry.Removed = textdiff.Count(from[old].Content, content)
			b.file(entry, inTo)
			continue
		}
		added, _ := textdiff.Count("", content)
		b.file(Entry{Path: p, Type: archive.File, Status: Added, Added: added}, inTo)
	}
	for _, p := range onlyFrom {
		if paired[p] {
			continue
		}
		_, removed := textdiff.Count(from[p].Content, "")
		b.file(Entry{Path: p, Type: archive.File, Status: Removed, Removed: removed}, inFrom)
	}

	return b.root.build().Children, nil
}

// bestMatch finds the most similar unpaired candidate. Empty files never
// pair; ties go to the lexically first path.
func bestMatch(content string, candidates []string, from archive.Files, paired map[string]bool, threshold float64) (string, bool) {
	if content == "" {
		return "", false
	}
	target := difflib.SplitLines(content)

	var best string
	var bestScore float64
	found := false
	for _, p := range candidates {
		if paired[p] {
			continue
		}
		old := from[p].Content
		if old == "" {
			continue
		}
		score := 1.0
		if old != content {
			m := difflib.NewMatcher(difflib.SplitLines(old), target)
			if m.RealQuickRatio() < threshold || m.QuickRatio() < threshold {
				continue
			}
			score = m.Ratio()
		}
		if score < threshold {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = p, score, true
		}
	}
	return best, found
}

type side uint8

const (
	inFrom side = 1 << iota
	inTo
)

type nodeKey struct {
	path string
	dir  bool
}

type node struct {
	entry Entry
	sides side
	kids  map[nodeKey]*node
}

type builder struct {
	root *node
}

func newBuilder() *builder {
	return &builder{root: &node{kids: make(map[nodeKey]*node)}}
}

// dir returns the directory node for p, creating it and its ancestors,
// and marks the whole chain as present on side s.
func (b *builder) dir(p string, s side) *node {
	p = strings.Trim(p, "/")
	if p == "" {
		return b.root
	}
	parent := b.dir(parentOf(p), s)
	key := nodeKey{path: p, dir: true}
	n, ok := parent.kids[key]
	if !ok {
		n = &node{
			entry: Entry{Path: p, Type: archive.Directory},
			kids:  make(map[nodeKey]*node),
		}
		parent.kids[key] = n
	}
	n.sides |= s
	return n
}

func (b *builder) file(e Entry, s side) {
	parent := b.dir(parentOf(e.Path), s)
	parent.kids[nodeKey{path: e.Path}] = &node{entry: e, sides: s}
}

func (n *node) build() Entry {
	e := n.entry
	if n.kids == nil {
		return e
	}

	changed := false
	e.Children = make([]Entry, 0, len(n.kids))
	for _, kid := range n.kids {
		child := kid.build()
		e.Added += child.Added
		e.Removed += child.Removed
		if child.Status != Unchanged {
			changed = true
		}
		e.Children = append(e.Children, child)
	}
	slices.SortFunc(e.Children, compareEntries)

	switch {
	case n.sides == inTo:
		e.Status = Added
	case n.sides == inFrom:
		e.Status = Removed
	case changed:
		e.Status = Modified
	default:
		e.Status = Unchanged
	}
	return e
}

func compareEntries(a, b Entry) int {
	if a.IsDir() != b.IsDir() {
		if a.IsDir() {
			return -1
		}
		return 1
	}
	return cmp.Compare(path.Base(a.Path), path.Base(b.Path))
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// Walk visits every entry depth-first in tree order.
func Walk(entries []Entry, fn func(e Entry, depth int)) {
	walk(entries, 0, fn)
}

func walk(entries []Entry, depth int, fn func(Entry, int)) {
	for _, e := range entries {
		fn(e, depth)
		walk(e.Children, depth+1, fn)
	}
}
