package pkgdiff

import (
	"github.com/aweris/pkgdiff/internal/archive"
	"github.com/aweris/pkgdiff/internal/source"
	"github.com/aweris/pkgdiff/internal/treediff"
)

type (
	// Files maps normalized archive paths to entries.
	Files = archive.Files
	// ArchiveEntry is one file or directory of an extracted archive.
	ArchiveEntry = archive.Entry
	// DiffFileEntry is one node of a diff tree.
	DiffFileEntry = treediff.Entry
	// Source fetches raw package archives.
	Source = source.Source
)

// Decompressor turns a raw registry archive into an uncompressed tar stream.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// TreeDiffer builds a diff tree from two extractions.
type TreeDiffer interface {
	BuildTree(from, to Files, threshold float64) ([]DiffFileEntry, error)
}

// ContentDiffer renders a diff of two differing texts.
type ContentDiffer interface {
	Diff(filename, from, to string) (string, error)
}

// TreeResult is a structural diff plus both extractions it was built from.
type TreeResult struct {
	Tree      []DiffFileEntry `json:"tree"`
	FromFiles Files           `json:"fromFiles"`
	ToFiles   Files           `json:"toFiles"`
}

// ContentResult is the diff of one file. IsDiff is false when Data is a
// message or the unchanged content rather than diff text.
type ContentResult struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	IsDiff   bool   `json:"isDiff"`
}
