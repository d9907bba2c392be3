package compression

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/pkgdiff/internal/testutil"
)

func newDecompressor(t *testing.T, opts ...Option) *Decompressor {
	t.Helper()
	d, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDetect(t *testing.T) {
	t.Parallel()

	tarball := testutil.Tar(t, testutil.FileMember("a.txt", "a"))

	assert.Equal(t, FormatGzip, Detect(testutil.Gzip(t, tarball)))
	assert.Equal(t, FormatZstd, Detect(testutil.Zstd(t, tarball)))
	assert.Equal(t, FormatTar, Detect(tarball))
	assert.Equal(t, FormatUnknown, Detect([]byte("plain text")))
	assert.Equal(t, FormatUnknown, Detect(nil))
}

func TestDecompress(t *testing.T) {
	t.Parallel()

	tarball := testutil.Tar(t,
		testutil.DirMember("package/"),
		testutil.FileMember("package/index.js", strings.Repeat("console.log(1);\n", 200)),
	)
	d := newDecompressor(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"gzip", testutil.Gzip(t, tarball)},
		{"zstd", testutil.Zstd(t, tarball)},
		{"tar", tarball},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := d.Decompress(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tarball, out)
		})
	}
}

func TestDecompressUnknown(t *testing.T) {
	t.Parallel()

	d := newDecompressor(t)
	_, err := d.Decompress([]byte("definitely not an archive"))
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDecompressCorruptGzip(t *testing.T) {
	t.Parallel()

	d := newDecompressor(t)
	data := testutil.Gzip(t, testutil.Tar(t, testutil.FileMember("a.txt", "a")))
	corrupt := append([]byte{}, data[:len(data)/2]...)

	_, err := d.Decompress(corrupt)
	require.Error(t, err)
}

func TestDecompressMaxSize(t *testing.T) {
	t.Parallel()

	tarball := testutil.Tar(t, testutil.FileMember("big.txt", strings.Repeat("x", 8192)))
	d := newDecompressor(t, WithMaxSize(1024))

	_, err := d.Decompress(testutil.Gzip(t, tarball))
	require.ErrorIs(t, err, ErrTooLarge)

	out, err := newDecompressor(t, WithMaxSize(int64(len(tarball)))).Decompress(testutil.Gzip(t, tarball))
	require.NoError(t, err)
	assert.Len(t, out, len(tarball))
}
