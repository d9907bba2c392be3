package source

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sri(data []byte) string {
	sum := sha512.Sum512(data)
	return "sha512-" + base64.StdEncoding.EncodeToString(sum[:])
}

func npmServer(t *testing.T, tarball []byte, integrity string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tarballURL := srv.URL + "/left-pad/-/left-pad-1.3.0.tgz"
		switch r.URL.EscapedPath() {
		case "/left-pad/1.3.0":
			doc := map[string]any{
				"name":    "left-pad",
				"version": "1.3.0",
				"dist":    map[string]string{"tarball": tarballURL, "integrity": integrity},
			}
			_ = json.NewEncoder(w).Encode(doc)
		case "/@types%2Fnode/20.0.0":
			doc := map[string]any{"dist": map[string]string{"tarball": tarballURL}}
			_ = json.NewEncoder(w).Encode(doc)
		case "/left-pad/-/left-pad-1.3.0.tgz":
			_, _ = w.Write(tarball)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNPMArchive(t *testing.T) {
	tarball := []byte("tarball-bytes")
	srv := npmServer(t, tarball, sri(tarball))

	got, err := NewNPM(srv.URL).Archive(context.Background(), "left-pad", "1.3.0")
	require.NoError(t, err)
	assert.Equal(t, tarball, got)
}

func TestNPMScopedPackage(t *testing.T) {
	tarball := []byte("scoped")
	srv := npmServer(t, tarball, "")

	got, err := NewNPM(srv.URL).Archive(context.Background(), "@types/node", "20.0.0")
	require.NoError(t, err)
	assert.Equal(t, tarball, got)
}

func TestNPMIntegrityMismatch(t *testing.T) {
	srv := npmServer(t, []byte("tampered"), sri([]byte("original")))

	_, err := NewNPM(srv.URL).Archive(context.Background(), "left-pad", "1.3.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
}

func TestNPMNotFound(t *testing.T) {
	srv := npmServer(t, nil, "")

	_, err := NewNPM(srv.URL).Archive(context.Background(), "left-pad", "9.9.9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNPMRequiresNameAndVersion(t *testing.T) {
	_, err := NewNPM("http://unused").Archive(context.Background(), "", "1.0.0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	c := newHTTPClient([]HTTPOption{WithRetry(3, time.Millisecond)})
	got, err := c.get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), got)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := newHTTPClient([]HTTPOption{WithRetry(3, time.Millisecond)})
	_, err := c.get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSendsUserAgent(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.UserAgent()
	}))
	t.Cleanup(srv.Close)

	c := newHTTPClient([]HTTPOption{WithUserAgent("pkgdiff-test")})
	_, err := c.get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "pkgdiff-test", ua)
}

func TestVerifyIntegrity(t *testing.T) {
	data := []byte("hello")

	assert.NoError(t, verifyIntegrity(data, ""))
	assert.NoError(t, verifyIntegrity(data, sri(data)))
	assert.NoError(t, verifyIntegrity(data, "md5-abc "+sri(data)))
	assert.ErrorIs(t, verifyIntegrity(data, sri([]byte("other"))), ErrIntegrity)
	assert.ErrorIs(t, verifyIntegrity(data, "sha512-!!!"), ErrIntegrity)
}
