package pkgdiff

import (
	"github.com/rs/zerolog"

	"github.com/aweris/pkgdiff/internal/textdiff"
	"github.com/aweris/pkgdiff/internal/treediff"
)

const (
	DefaultSimilarityThreshold = 0.75
	DefaultWorkers             = 4
)

// Options configures a Session.
type Options struct {
	Sources             map[string]Source
	Decompressor        Decompressor
	TreeDiffer          TreeDiffer
	ContentDiffer       ContentDiffer
	SimilarityThreshold float64
	Workers             int
	Logger              zerolog.Logger
}

// Option is a functional option for configuring New.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Sources:             make(map[string]Source),
		TreeDiffer:          treediff.Builder{},
		ContentDiffer:       textdiff.Differ{},
		SimilarityThreshold: DefaultSimilarityThreshold,
		Workers:             DefaultWorkers,
		Logger:              zerolog.Nop(),
	}
}

// WithSource registers a source under an identifier such as "npm".
func WithSource(id string, src Source) Option {
	return func(o *Options) { o.Sources[id] = src }
}

// WithDecompressor replaces the default gzip/zstd decompressor.
func WithDecompressor(d Decompressor) Option {
	return func(o *Options) { o.Decompressor = d }
}

// WithTreeDiffer replaces the default tree-diff capability.
func WithTreeDiffer(d TreeDiffer) Option {
	return func(o *Options) { o.TreeDiffer = d }
}

// WithContentDiffer replaces the default unified-diff capability.
func WithContentDiffer(d ContentDiffer) Option {
	return func(o *Options) { o.ContentDiffer = d }
}

// WithSimilarityThreshold sets how similar two files must be to count as
// a rename. Must be within [0, 1].
func WithSimilarityThreshold(t float64) Option {
	return func(o *Options) { o.SimilarityThreshold = t }
}

// WithWorkers sets the number of requests Serve handles in parallel.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}
