// Package archive parses uncompressed tar streams into flat path maps.
//
// The parser is deliberately lenient: it understands only the fields a
// registry tarball needs (name, size, type flag) and never fails on
// malformed octal sizes or trailing garbage. Paths are normalized to
// forward-slash form without leading slashes, every file gets a complete
// chain of ancestor directory entries, and a single wrapping top-level
// directory (for example "package/" in npm tarballs) can be stripped with
// StripCommonRoot.
package archive

import "errors"

// EntryType distinguishes files from directories.
type EntryType string

const (
	File      EntryType = "file"
	Directory EntryType = "directory"
)

// Entry is one extracted archive member. Directories have empty content.
type Entry struct {
	Type    EntryType `json:"type"`
	Content string    `json:"content"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool { return e.Type == Directory }

// Files maps normalized paths to entries.
type Files map[string]Entry

// ErrParse is returned when a header cannot be decoded at all.
var ErrParse = errors.New("archive: malformed tar header")
