package source

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-containerregistry/pkg/registry"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ociSource(t *testing.T) *OCI {
	t.Helper()
	srv := httptest.NewServer(registry.New())
	t.Cleanup(srv.Close)

	host := strings.TrimPrefix(srv.URL, "http://")
	o, err := NewOCI(host+"/pkgs", WithInsecure(), WithOCIRetry(1, time.Millisecond), WithAuth(BasicAuth{}))
	require.NoError(t, err)
	return o
}

func TestOCIPushThenArchive(t *testing.T) {
	o := ociSource(t)
	ctx := context.Background()
	archive := []byte("\x1f\x8b not really gzip")

	ref, err := o.Push(ctx, "@acme/widget", "1.2.0", archive)
	require.NoError(t, err)
	assert.Contains(t, ref.String(), "/pkgs/acme/widget:1.2.0")

	got, err := o.Archive(ctx, "@acme/widget", "1.2.0")
	require.NoError(t, err)
	assert.Equal(t, archive, got)

	img, err := remote.Image(ref, remote.WithContext(ctx))
	require.NoError(t, err)
	manifest, err := img.Manifest()
	require.NoError(t, err)
	assert.Equal(t, "@acme/widget", manifest.Annotations[ocispec.AnnotationTitle])
	assert.Equal(t, "1.2.0", manifest.Annotations[ocispec.AnnotationVersion])
	require.Len(t, manifest.Layers, 1)
	assert.Equal(t, ArchiveMediaType, manifest.Layers[0].MediaType)
}

func TestOCIArchiveMissing(t *testing.T) {
	o := ociSource(t)

	_, err := o.Archive(context.Background(), "nothing", "1.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOCIReference(t *testing.T) {
	o, err := NewOCI("registry.example.com/pkgs")
	require.NoError(t, err)

	ref, err := o.Reference("Left-Pad", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com/pkgs/left-pad:1.0.0", ref.String())

	digest := "sha256:" + strings.Repeat("a", 64)
	ref, err = o.Reference("left-pad", digest)
	require.NoError(t, err)
	assert.Equal(t, "registry.example.com/pkgs/left-pad@"+digest, ref.String())

	_, err = NewOCI("")
	assert.Error(t, err)
}
