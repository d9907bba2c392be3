package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const DefaultCratesRegistry = "https://crates.io"

// Crates downloads .crate files (gzip tarballs) from crates.io or a
// compatible registry.
type Crates struct {
	registry string
	http     *httpClient
}

// NewCrates creates a source for the registry at base. An empty base uses
// crates.io.
func NewCrates(base string, opts ...HTTPOption) *Crates {
	if base == "" {
		base = DefaultCratesRegistry
	}
	return &Crates{
		registry: strings.TrimRight(base, "/"),
		http:     newHTTPClient(opts),
	}
}

func (c *Crates) Archive(ctx context.Context, pkg, version string) ([]byte, error) {
	if pkg == "" || version == "" {
		return nil, fmt.Errorf("%w: crate and version are required", ErrNotFound)
	}
	u := fmt.Sprintf("%s/api/v1/crates/%s/%s/download", c.registry, url.PathEscape(pkg), url.PathEscape(version))
	return c.http.get(ctx, u)
}
