package pkgdiff

import (
	"context"
	"fmt"
	"time"

	"github.com/aweris/pkgdiff/internal/archive"
)

// Extract decompresses a raw archive, parses the tar stream and strips a
// single wrapping directory such as npm's "package/".
func Extract(data []byte, d Decompressor) (Files, error) {
	tarball, err := d.Decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
	}
	files, err := archive.Parse(tarball)
	if err != nil {
		return nil, fmt.Errorf("pkgdiff: %w", err)
	}
	return archive.StripCommonRoot(files), nil
}

// load is the cache's LoadFunc: resolve the source, fetch, extract.
func (s *Session) load(ctx context.Context, key Key) (Files, error) {
	src, ok := s.opts.Sources[key.Source]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, key.Source)
	}

	log := s.log.With().Str("key", key.String()).Logger()
	start := time.Now()

	data, err := src.Archive(ctx, key.Package, key.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, key, err)
	}
	log.Debug().Int("bytes", len(data)).Dur("took", time.Since(start)).Msg("fetched archive")

	files, err := Extract(data, s.opts.Decompressor)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	log.Debug().Int("files", len(files)).Dur("took", time.Since(start)).Msg("extracted archive")
	return files, nil
}
