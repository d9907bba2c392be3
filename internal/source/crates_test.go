package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCratesArchive(t *testing.T) {
	var path, ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, ua = r.URL.Path, r.UserAgent()
		if r.URL.Path != "/api/v1/crates/serde/1.0.0/download" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("crate"))
	}))
	t.Cleanup(srv.Close)

	got, err := NewCrates(srv.URL + "/").Archive(context.Background(), "serde", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, []byte("crate"), got)
	assert.Equal(t, "/api/v1/crates/serde/1.0.0/download", path)
	assert.Equal(t, DefaultUserAgent, ua)

	_, err = NewCrates(srv.URL).Archive(context.Background(), "serde", "0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
}
