// pkg/download/download_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: net/http/httptest, temp dirs
// PURPOSE: Test asset download streaming and same-size skip

package download_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/download"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload(t *testing.T) {
	payload := []byte("proton release archive bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "downloads", "GE-Proton10-20.tar.gz")
	dl := download.New(download.WithProgress(false))

	skipped, err := dl.Download(srv.URL, dest, int64(len(payload)))
	require.NoError(t, err)
	assert.False(t, skipped)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownload_SkipsMatchingSize(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "GE-Proton10-20.tar.gz")
	existing := []byte("already downloaded")
	require.NoError(t, os.WriteFile(dest, existing, 0644))

	dl := download.New(download.WithProgress(false))
	skipped, err := dl.Download(srv.URL, dest, int64(len(existing)))
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Zero(t, hits, "matching local copy must not hit the network")
}

func TestDownload_RedownloadsOnSizeMismatch(t *testing.T) {
	payload := []byte("the full archive")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "GE-Proton10-20.tar.gz")
	require.NoError(t, os.WriteFile(dest, []byte("trunc"), 0644))

	dl := download.New(download.WithProgress(false))
	skipped, err := dl.Download(srv.URL, dest, int64(len(payload)))
	require.NoError(t, err)
	assert.False(t, skipped)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "missing.tar.gz")
	dl := download.New(download.WithProgress(false))

	_, err := dl.Download(srv.URL, dest, 0)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "no partial file left behind")
}
