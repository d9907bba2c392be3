package archive

import "strings"

// normalizePath strips leading slashes, and trailing slashes for
// directories.
func normalizePath(name string, isDir bool) string {
	p := strings.TrimLeft(name, "/")
	if isDir {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// addParents records a directory entry for every ancestor of every path
// that does not already have an entry.
func addParents(files Files) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	for _, p := range paths {
		parts := strings.Split(p, "/")
		for i := 1; i < len(parts); i++ {
			dir := strings.Join(parts[:i], "/")
			if dir == "" {
				continue
			}
			if _, ok := files[dir]; !ok {
				files[dir] = Entry{Type: Directory}
			}
		}
	}
}

// StripCommonRoot removes a single wrapping top-level directory.
//
// Stripping happens only when every path starts with the same first
// segment and that segment is itself recorded as a directory. The root
// entry is dropped and every other path loses the "root/" prefix. If
// nothing would remain, files is returned unchanged. Only one level is
// stripped per call.
func StripCommonRoot(files Files) Files {
	if len(files) == 0 {
		return files
	}

	var root string
	seen := false
	for p := range files {
		first, _, _ := strings.Cut(p, "/")
		if !seen {
			root, seen = first, true
			continue
		}
		if first != root {
			return files
		}
	}

	if root == "" || !files[root].IsDir() {
		return files
	}

	stripped := make(Files, len(files)-1)
	for p, e := range files {
		if p == root {
			continue
		}
		if rest := p[len(root)+1:]; rest != "" {
			stripped[rest] = e
		}
	}
	if len(stripped) == 0 {
		return files
	}
	return stripped
}
