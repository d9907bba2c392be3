package pkgdiff

import (
	"errors"

	"github.com/aweris/pkgdiff/internal/archive"
)

var (
	ErrUnsupportedSource = errors.New("pkgdiff: unsupported source")
	ErrFetch             = errors.New("pkgdiff: fetch failed")
	ErrDecompression     = errors.New("pkgdiff: decompression failed")
	ErrParse             = archive.ErrParse
	ErrDiffCapability    = errors.New("pkgdiff: diff failed")
	ErrNoActiveDiff      = errors.New("pkgdiff: no active diff")
	ErrInvalidThreshold  = errors.New("pkgdiff: similarity threshold must be within [0, 1]")
	ErrUnknownRequest    = errors.New("pkgdiff: unknown request type")
)
