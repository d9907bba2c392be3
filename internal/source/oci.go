package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"
	"github.com/google/go-containerregistry/pkg/v1/types"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (
	DefaultConcurrency = 4

	// ArchiveMediaType marks a layer holding a package archive verbatim.
	ArchiveMediaType types.MediaType = "application/vnd.pkgdiff.archive.layer.v1.tar+gzip"

	labelPackage = "dev.pkgdiff.package"
	labelVersion = "dev.pkgdiff.version"
)

// OCI reads package archives stored as image layers. A package "pkg" at
// "version" lives at {repository}/{pkg}:{version}; versions that look
// like digests ("sha256:...") are resolved by digest. The last layer of
// the image is the archive.
type OCI struct {
	repository  string
	auth        Authenticator
	insecure    bool
	concurrency int
	attempts    int
	backoff     time.Duration
}

// OCIOption configures an OCI source.
type OCIOption func(*OCI)

// WithAuth sets the authenticator. Without one the Docker keychain is used.
func WithAuth(auth Authenticator) OCIOption {
	return func(o *OCI) { o.auth = auth }
}

// WithInsecure allows plain HTTP registries.
func WithInsecure() OCIOption {
	return func(o *OCI) { o.insecure = true }
}

// WithConcurrency sets the number of parallel blob uploads for Push.
func WithConcurrency(n int) OCIOption {
	return func(o *OCI) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithOCIRetry sets the number of attempts and the initial backoff.
func WithOCIRetry(attempts int, backoff time.Duration) OCIOption {
	return func(o *OCI) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

// NewOCI creates a source rooted at repository (e.g. "ghcr.io/acme/pkgs").
func NewOCI(repository string, opts ...OCIOption) (*OCI, error) {
	repository = strings.TrimRight(repository, "/")
	if repository == "" {
		return nil, errors.New("oci: repository is required")
	}
	o := &OCI{
		repository:  repository,
		concurrency: DefaultConcurrency,
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	if _, err := name.NewRepository(repository, o.nameOptions()...); err != nil {
		return nil, fmt.Errorf("oci: invalid repository %q: %w", repository, err)
	}
	return o, nil
}

func (o *OCI) String() string { return o.repository }

// Reference returns the image reference for a package version.
func (o *OCI) Reference(pkg, version string) (name.Reference, error) {
	if pkg == "" || version == "" {
		return nil, fmt.Errorf("%w: package and version are required", ErrNotFound)
	}
	repo := o.repository + "/" + repositoryName(pkg)
	sep := ":"
	if strings.Contains(version, ":") {
		sep = "@"
	}
	ref, err := name.ParseReference(repo+sep+version, o.nameOptions()...)
	if err != nil {
		return nil, fmt.Errorf("oci: invalid reference for %s@%s: %w", pkg, version, err)
	}
	return ref, nil
}

// repositoryName maps a package name onto a valid repository path
// component: "@scope/name" becomes "scope/name", upper case is folded.
func repositoryName(pkg string) string {
	return strings.ToLower(strings.TrimPrefix(pkg, "@"))
}

func (o *OCI) Archive(ctx context.Context, pkg, version string) ([]byte, error) {
	ref, err := o.Reference(pkg, version)
	if err != nil {
		return nil, err
	}

	img, err := retry(ctx, o.attempts, o.backoff, func() (v1.Image, error) {
		img, err := remote.Image(ref, o.remoteOptions(ctx)...)
		return img, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("oci: fetch %s: %w", ref, err)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("oci: layers of %s: %w", ref, err)
	}
	if len(layers) == 0 {
		return nil, fmt.Errorf("%w: %s has no layers", ErrNotFound, ref)
	}

	layer := layers[len(layers)-1]
	data, err := retry(ctx, o.attempts, o.backoff, func() ([]byte, error) {
		rc, err := layer.Compressed()
		if err != nil {
			return nil, classify(err)
		}
		data, err := io.ReadAll(rc)
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = cerr
		}
		return data, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("oci: read layer of %s: %w", ref, err)
	}
	return data, nil
}

// Push stores archive as a single-layer image for pkg at version.
func (o *OCI) Push(ctx context.Context, pkg, version string, archive []byte) (name.Reference, error) {
	ref, err := o.Reference(pkg, version)
	if err != nil {
		return nil, err
	}

	img, err := mutate.AppendLayers(empty.Image, newArchiveLayer(archive))
	if err != nil {
		return nil, fmt.Errorf("oci: build image: %w", err)
	}
	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("oci: config: %w", err)
	}
	cfg = cfg.DeepCopy()
	cfg.Config.Labels = map[string]string{
		labelPackage: pkg,
		labelVersion: version,
	}
	if img, err = mutate.ConfigFile(img, cfg); err != nil {
		return nil, fmt.Errorf("oci: config: %w", err)
	}
	img = mutate.Annotations(img, map[string]string{
		ocispec.AnnotationTitle:   pkg,
		ocispec.AnnotationVersion: version,
	}).(v1.Image)

	options := append(o.remoteOptions(ctx), remote.WithJobs(o.concurrency))
	_, err = retry(ctx, o.attempts, o.backoff, func() (struct{}, error) {
		return struct{}{}, classify(remote.Write(ref, img, options...))
	})
	if err != nil {
		return nil, fmt.Errorf("oci: push %s: %w", ref, err)
	}
	return ref, nil
}

// archiveLayer carries an already compressed archive unchanged.
type archiveLayer struct {
	data []byte
}

func newArchiveLayer(data []byte) *archiveLayer {
	return &archiveLayer{data: data}
}

func (l *archiveLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.data))
	return h, err
}

func (l *archiveLayer) DiffID() (v1.Hash, error) { return l.Digest() }

func (l *archiveLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.data)), nil
}

func (l *archiveLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.data)), nil
}

func (l *archiveLayer) Size() (int64, error)                { return int64(len(l.data)), nil }
func (l *archiveLayer) MediaType() (types.MediaType, error) { return ArchiveMediaType, nil }

func (o *OCI) nameOptions() []name.Option {
	opts := []name.Option{name.WithDefaultTag("latest")}
	if o.insecure {
		opts = append(opts, name.Insecure)
	}
	return opts
}

func (o *OCI) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{remote.WithContext(ctx)}
	if o.auth != nil {
		registry := o.registry()
		username, password, err := o.auth.Authenticate(registry)
		if err == nil && username != "" {
			return append(opts, remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			}))
		}
	}
	return append(opts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

func (o *OCI) registry() string {
	repo, err := name.NewRepository(o.repository, o.nameOptions()...)
	if err != nil {
		return ""
	}
	return repo.RegistryStr()
}

// classify maps registry errors onto retry semantics: 404 becomes a
// permanent ErrNotFound, other client errors are permanent too.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var terr *transport.Error
	if errors.As(err, &terr) {
		switch {
		case terr.StatusCode == http.StatusNotFound:
			return permanent(fmt.Errorf("%w: %w", ErrNotFound, err))
		case terr.StatusCode >= 400 && terr.StatusCode < 500:
			return permanent(err)
		}
	}
	return err
}
