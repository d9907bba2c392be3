// Package testutil builds package archives for tests.
package testutil

import (
	"archive/tar"
	"bytes"
	"maps"
	"slices"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

// Member is one tar member. Directories ignore Content.
type Member struct {
	Name    string
	Content string
	Dir     bool
}

// FileMember returns a regular file member.
func FileMember(name, content string) Member {
	return Member{Name: name, Content: content}
}

// DirMember returns a directory member.
func DirMember(name string) Member {
	return Member{Name: name, Dir: true}
}

// Tar writes members into an uncompressed ustar stream.
func Tar(tb testing.TB, members ...Member) []byte {
	tb.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		hdr := &tar.Header{
			Name:     m.Name,
			Mode:     0o644,
			Size:     int64(len(m.Content)),
			Typeflag: tar.TypeReg,
			Format:   tar.FormatUSTAR,
		}
		if m.Dir {
			hdr.Mode = 0o755
			hdr.Size = 0
			hdr.Typeflag = tar.TypeDir
		}
		require.NoError(tb, tw.WriteHeader(hdr))
		if !m.Dir {
			_, err := tw.Write([]byte(m.Content))
			require.NoError(tb, err)
		}
	}
	require.NoError(tb, tw.Close())
	return buf.Bytes()
}

// Gzip compresses data.
func Gzip(tb testing.TB, data []byte) []byte {
	tb.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, zw.Close())
	return buf.Bytes()
}

// Zstd compresses data.
func Zstd(tb testing.TB, data []byte) []byte {
	tb.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(tb, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// Tgz builds a gzip-compressed tarball.
func Tgz(tb testing.TB, members ...Member) []byte {
	tb.Helper()
	return Gzip(tb, Tar(tb, members...))
}

// NPMTarball builds a tarball wrapped in the conventional "package/"
// directory.
func NPMTarball(tb testing.TB, files map[string]string) []byte {
	tb.Helper()

	members := []Member{DirMember("package/")}
	for _, name := range slices.Sorted(maps.Keys(files)) {
		members = append(members, FileMember("package/"+name, files[name]))
	}
	return Tgz(tb, members...)
}
