package pkgdiff

import (
	"time"

	"github.com/aweris/pkgdiff/internal/source"
)

// ErrNotFound is wrapped by fetch errors for unknown packages or versions.
var ErrNotFound = source.ErrNotFound

// NPM returns a source for an npm-compatible registry. An empty registry
// means registry.npmjs.org. Tarballs are checked against their published
// integrity hash.
func NPM(registry string, timeout time.Duration) Source {
	return source.NewNPM(registry, source.WithTimeout(timeout))
}

// Crates returns a source for crates.io or a compatible registry.
func Crates(registry string, timeout time.Duration) Source {
	return source.NewCrates(registry, source.WithTimeout(timeout))
}

// Dir returns a source reading {name}-{version}.tgz (or .tar.gz, .crate,
// .tar.zst, .tar) from a local directory.
func Dir(root string) Source {
	return source.NewDir(root)
}

// OCI returns a source reading archives stored as image layers under
// repository, authenticating through the Docker keychain.
func OCI(repository string) (Source, error) {
	o, err := source.NewOCI(repository)
	if err != nil {
		return nil, err
	}
	return o, nil
}
