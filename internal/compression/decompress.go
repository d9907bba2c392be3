// Package compression sniffs and decompresses package archives.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	ErrUnknownFormat = errors.New("compression: unknown archive format")
	ErrTooLarge      = errors.New("compression: decompressed archive too large")
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	tarMagic  = []byte("ustar")
)

const tarMagicOffset = 257

// Format is a detected archive encoding.
type Format string

const (
	FormatGzip    Format = "gzip"
	FormatZstd    Format = "zstd"
	FormatTar     Format = "tar"
	FormatUnknown Format = "unknown"
)

// Detect reports the encoding of data from its magic bytes.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return FormatGzip
	case bytes.HasPrefix(data, zstdMagic):
		return FormatZstd
	case len(data) >= tarMagicOffset+len(tarMagic) &&
		bytes.Equal(data[tarMagicOffset:tarMagicOffset+len(tarMagic)], tarMagic):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Decompressor turns fetched archives into plain tar streams.
type Decompressor struct {
	decoder *zstd.Decoder
	maxSize int64
}

// Option configures a Decompressor.
type Option func(*Decompressor)

// WithMaxSize bounds the decompressed size. Zero means no limit.
func WithMaxSize(n int64) Option {
	return func(d *Decompressor) {
		if n > 0 {
			d.maxSize = n
		}
	}
}

func New(opts ...Option) (*Decompressor, error) {
	d := &Decompressor{}
	for _, opt := range opts {
		opt(d)
	}

	zopts := []zstd.DOption{zstd.WithDecoderConcurrency(0)}
	if d.maxSize > 0 {
		zopts = append(zopts, zstd.WithDecoderMaxMemory(uint64(d.maxSize)))
	}
	decoder, err := zstd.NewReader(nil, zopts...)
	if err != nil {
		return nil, err
	}
	d.decoder = decoder
	return d, nil
}

// Decompress returns the tar stream contained in data. Plain tar input is
// returned as is.
func (d *Decompressor) Decompress(data []byte) ([]byte, error) {
	switch Detect(data) {
	case FormatGzip:
		return d.gunzip(data)
	case FormatZstd:
		out, err := d.decoder.DecodeAll(data, nil)
		if err != nil {
			if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, d.maxSize)
			}
			return nil, fmt.Errorf("zstd: %w", err)
		}
		return out, nil
	case FormatTar:
		return data, nil
	default:
		return nil, ErrUnknownFormat
	}
}

func (d *Decompressor) gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	defer zr.Close()

	var r io.Reader = zr
	if d.maxSize > 0 {
		r = io.LimitReader(zr, d.maxSize+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if d.maxSize > 0 && int64(len(out)) > d.maxSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, d.maxSize)
	}
	return out, nil
}

func (d *Decompressor) Close() error {
	if d.decoder != nil {
		d.decoder.Close()
	}
	return nil
}
