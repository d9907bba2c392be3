package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// dirExtensions are tried in order when looking up an archive.
var dirExtensions = []string{".tgz", ".tar.gz", ".crate", ".tar.zst", ".tar"}

// Dir serves archives from a directory laid out as {name}-{version}{ext}.
// Scoped names ("@scope/name") map to "scope-name".
type Dir struct {
	fs   afero.Fs
	root string
}

// NewDir creates a source over root on the OS filesystem.
func NewDir(root string) *Dir {
	return NewDirFs(afero.NewOsFs(), root)
}

// NewDirFs creates a source over root on an arbitrary filesystem.
func NewDirFs(fsys afero.Fs, root string) *Dir {
	return &Dir{fs: fsys, root: root}
}

func (d *Dir) Archive(ctx context.Context, pkg, version string) ([]byte, error) {
	if pkg == "" || version == "" {
		return nil, fmt.Errorf("%w: package and version are required", ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base := fileBase(pkg) + "-" + version
	if strings.ContainsAny(base, `/\`) || strings.Contains(base, "..") {
		return nil, fmt.Errorf("%w: invalid name %q", ErrNotFound, base)
	}
	for _, ext := range dirExtensions {
		data, err := afero.ReadFile(d.fs, filepath.Join(d.root, base+ext))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("dir: read %s: %w", base+ext, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrNotFound, base, d.root)
}

func fileBase(pkg string) string {
	return strings.ReplaceAll(strings.TrimPrefix(pkg, "@"), "/", "-")
}
