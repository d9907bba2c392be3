// Package source fetches raw package archives from registries.
//
// Every source answers the same question: given a package name and a
// version, return the archive bytes exactly as the registry stores them
// (usually a gzip-compressed tarball). Implementations:
//   - NPM: the npm registry JSON API, with SRI integrity checks
//   - Crates: the crates.io download endpoint
//   - OCI: the last layer of an image in any OCI registry
//   - Dir: tarballs in a local directory
package source

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("source: package version not found")
	ErrIntegrity = errors.New("source: integrity check failed")
)

// Source retrieves the raw archive for one package version.
type Source interface {
	Archive(ctx context.Context, pkg, version string) ([]byte, error)
}

// Func adapts a function to Source.
type Func func(ctx context.Context, pkg, version string) ([]byte, error)

func (f Func) Archive(ctx context.Context, pkg, version string) ([]byte, error) {
	return f(ctx, pkg, version)
}
