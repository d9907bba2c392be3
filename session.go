package pkgdiff

import (
	"context"
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/pkgdiff/internal/compression"
)

// NotPresentMessage is the content result for a file missing on both sides.
const NotPresentMessage = "File not present in either version."

// Session owns an extraction cache and runs diffs against it. Sessions are
// independent; each one fetches a given package version at most once.
type Session struct {
	opts   *Options
	log    zerolog.Logger
	cache  *Cache
	active atomic.Pointer[activeDiff]
}

type activeDiff struct {
	from, to Files
}

// New creates a session. Without WithDecompressor, gzip, zstd and plain
// tar archives are accepted.
func New(opts ...Option) (*Session, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	t := options.SimilarityThreshold
	if math.IsNaN(t) || t < 0 || t > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, t)
	}
	if options.Decompressor == nil {
		d, err := compression.New()
		if err != nil {
			return nil, fmt.Errorf("pkgdiff: decompressor: %w", err)
		}
		options.Decompressor = d
	}

	s := &Session{opts: options, log: options.Logger}
	s.cache = NewCache(s.load)
	return s, nil
}

// Close releases the decompressor's resources when it holds any.
func (s *Session) Close() error {
	if c, ok := s.opts.Decompressor.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Cache exposes the session's extraction cache.
func (s *Session) Cache() *Cache { return s.cache }

// Sources returns the registered source identifiers, sorted.
func (s *Session) Sources() []string {
	return slices.Sorted(maps.Keys(s.opts.Sources))
}

// Extract returns the cached extraction of one package version.
func (s *Session) Extract(ctx context.Context, src, pkg, version string) (Files, error) {
	return s.cache.Get(ctx, Key{Source: src, Package: pkg, Version: version})
}

// Diff extracts both versions in parallel and builds their diff tree. On
// success the pair becomes the session's active diff for FileDiff.
func (s *Session) Diff(ctx context.Context, src, pkg, from, to string) (*TreeResult, error) {
	fromFiles, toFiles, err := s.extractPair(ctx, src, pkg, from, to)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tree, err := s.opts.TreeDiffer.BuildTree(fromFiles, toFiles, s.opts.SimilarityThreshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDiffCapability, err)
	}
	s.log.Info().
		Str("source", src).
		Str("package", pkg).
		Str("from", from).
		Str("to", to).
		Dur("took", time.Since(start)).
		Msg("built diff tree")

	s.active.Store(&activeDiff{from: fromFiles, to: toFiles})
	return &TreeResult{Tree: tree, FromFiles: fromFiles, ToFiles: toFiles}, nil
}

// Prefetch warms the cache with both versions. Failures are logged only.
func (s *Session) Prefetch(ctx context.Context, src, pkg, from, to string) {
	if _, _, err := s.extractPair(ctx, src, pkg, from, to); err != nil {
		s.log.Warn().Err(err).
			Str("source", src).
			Str("package", pkg).
			Msg("prefetch failed")
	}
}

func (s *Session) extractPair(ctx context.Context, src, pkg, from, to string) (Files, Files, error) {
	var fromFiles, toFiles Files
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		fromFiles, err = s.Extract(ctx, src, pkg, from)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		toFiles, err = s.Extract(ctx, src, pkg, to)
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return fromFiles, toFiles, nil
}

// ContentDiff renders one file's change. A nil side means the file does
// not exist in that version; an empty side next to a non-empty one is
// treated the same way.
func (s *Session) ContentDiff(_ context.Context, filename string, from, to *string) (*ContentResult, error) {
	if from != nil && to != nil {
		switch {
		case *from == "" && *to != "":
			from = nil
		case *to == "" && *from != "":
			to = nil
		}
	}

	res := &ContentResult{Filename: filename, IsDiff: true}
	switch {
	case from == nil && to == nil:
		res.Data, res.IsDiff = NotPresentMessage, false
	case from == nil:
		res.Data = "--- /dev/null\n+++ to/" + filename + "\n" + prefixLines(*to, "+ ")
	case to == nil:
		res.Data = "--- from/" + filename + "\n+++ /dev/null\n" + prefixLines(*from, "- ")
	case *from == *to:
		res.Data, res.IsDiff = *to, false
	default:
		data, err := s.opts.ContentDiffer.Diff(filename, *from, *to)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrDiffCapability, filename, err)
		}
		res.Data = data
	}
	return res, nil
}

// FileDiff diffs path between the two versions of the last successful
// Diff. oldPath names the "from" side of a rename; empty means path.
func (s *Session) FileDiff(ctx context.Context, path, oldPath string) (*ContentResult, error) {
	active := s.active.Load()
	if active == nil {
		return nil, ErrNoActiveDiff
	}
	if oldPath == "" {
		oldPath = path
	}
	return s.ContentDiff(ctx, path, fileContent(active.from, oldPath), fileContent(active.to, path))
}

func fileContent(files Files, path string) *string {
	e, ok := files[path]
	if !ok || e.IsDir() {
		return nil
	}
	return &e.Content
}

func prefixLines(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
