// pkg/fetcher/fetcher_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: net/http/httptest GitHub stub, temp dirs
// PURPOSE: Test the end-to-end fetch, extract and link flow

package fetcher_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/download"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fetcher"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// githubStub serves just enough of github.com and api.github.com for a
// fetch: latest-tag redirect, release-by-tag API, and asset downloads.
type githubStub struct {
	t         *testing.T
	repo      string
	tag       string
	asset     string
	archive   []byte
	downloads int
}

func (g *githubStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/"+g.repo+"/releases/latest":
		w.Header().Set("Location", "/"+g.repo+"/releases/tag/"+g.tag)
		w.WriteHeader(http.StatusFound)

	case r.URL.Path == "/repos/"+g.repo+"/releases/tags/"+g.tag:
		fmt.Fprintf(w, `{"tag_name":%q,"assets":[{"name":%q,"size":%d}]}`,
			g.tag, g.asset, len(g.archive))

	case strings.HasPrefix(r.URL.Path, "/"+g.repo+"/releases/download/"):
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(g.archive)))
			return
		}
		g.downloads++
		_, _ = w.Write(g.archive)

	default:
		g.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func buildArchive(t *testing.T, topDir string) []byte {
	t.Helper()
	var tarBuf bytes.Buffer
	tw := tar.NewWriter(&tarBuf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: topDir + "/", Typeflag: tar.TypeDir, Mode: 0755,
	}))
	body := []byte("#!/usr/bin/env python3")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: topDir + "/proton", Typeflag: tar.TypeReg, Mode: 0755, Size: int64(len(body)),
	}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(tarBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newTestFetcher(t *testing.T, stub *githubStub) *fetcher.Fetcher {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	gh := github.New(github.WithBaseURL(srv.URL), github.WithAPIURL(srv.URL))
	return fetcher.New(5*time.Second, "", false,
		fetcher.WithGitHub(gh),
		fetcher.WithDownloader(download.New(download.WithProgress(false))))
}

func TestFetchAndExtract_LatestRelease(t *testing.T) {
	tag := "GE-Proton10-20"
	stub := &githubStub{
		t:       t,
		repo:    fork.GEProton.Repo(),
		tag:     tag,
		asset:   tag + ".tar.gz",
		archive: buildArchive(t, tag),
	}
	f := newTestFetcher(t, stub)

	base := t.TempDir()
	req := fetcher.Request{
		Fork:       fork.GEProton,
		OutputDir:  filepath.Join(base, "downloads"),
		ExtractDir: filepath.Join(base, "compatibilitytools.d"),
	}

	dir, err := f.FetchAndExtract(req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.ExtractDir, tag), dir)

	_, err = os.Stat(filepath.Join(dir, "proton"))
	assert.NoError(t, err)

	link, err := os.Readlink(filepath.Join(req.ExtractDir, "GE-Proton"))
	require.NoError(t, err)
	assert.Equal(t, tag, link)

	_, err = os.Stat(filepath.Join(req.OutputDir, tag+".tar.gz"))
	assert.NoError(t, err, "archive kept in the output dir")
}

func TestFetchAndExtract_ManualTag(t *testing.T) {
	tag := "GE-Proton9-5"
	stub := &githubStub{
		t:       t,
		repo:    fork.GEProton.Repo(),
		tag:     tag,
		asset:   tag + ".tar.gz",
		archive: buildArchive(t, tag),
	}
	f := newTestFetcher(t, stub)

	base := t.TempDir()
	req := fetcher.Request{
		Fork:       fork.GEProton,
		Tag:        tag,
		OutputDir:  filepath.Join(base, "downloads"),
		ExtractDir: filepath.Join(base, "compatibilitytools.d"),
	}

	dir, err := f.FetchAndExtract(req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.ExtractDir, tag), dir)
}

func TestFetchAndExtract_SkipsWhenUnpacked(t *testing.T) {
	tag := "GE-Proton10-20"
	stub := &githubStub{
		t:       t,
		repo:    fork.GEProton.Repo(),
		tag:     tag,
		asset:   tag + ".tar.gz",
		archive: buildArchive(t, tag),
	}
	f := newTestFetcher(t, stub)

	base := t.TempDir()
	req := fetcher.Request{
		Fork:       fork.GEProton,
		OutputDir:  filepath.Join(base, "downloads"),
		ExtractDir: filepath.Join(base, "compatibilitytools.d"),
	}

	_, err := f.FetchAndExtract(req)
	require.NoError(t, err)
	require.Equal(t, 1, stub.downloads)

	// second fetch finds the unpacked dir and current links
	dir, err := f.FetchAndExtract(req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.ExtractDir, tag), dir)
	assert.Equal(t, 1, stub.downloads, "no re-download once unpacked")
}

func TestFetchAndExtract_ProtonEMPrefix(t *testing.T) {
	tag := "EM-10.0-30"
	stub := &githubStub{
		t:       t,
		repo:    fork.ProtonEM.Repo(),
		tag:     tag,
		asset:   "proton-" + tag + ".tar.xz",
		archive: buildArchive(t, "proton-"+tag),
	}
	// the EM stub serves a gz body under an xz name; rename the asset so
	// the extractor picks the right codec
	stub.asset = "proton-" + tag + ".tar.gz"
	f := newTestFetcher(t, stub)

	base := t.TempDir()
	req := fetcher.Request{
		Fork:       fork.ProtonEM,
		Tag:        tag,
		OutputDir:  filepath.Join(base, "downloads"),
		ExtractDir: filepath.Join(base, "compatibilitytools.d"),
	}

	dir, err := f.FetchAndExtract(req)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(req.ExtractDir, "proton-"+tag), dir)

	link, err := os.Readlink(filepath.Join(req.ExtractDir, "Proton-EM"))
	require.NoError(t, err)
	assert.Equal(t, "proton-"+tag, link)
}

func TestRelink_PassThrough(t *testing.T) {
	stub := &githubStub{t: t, repo: fork.GEProton.Repo()}
	f := newTestFetcher(t, stub)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "GE-Proton10-20"), 0755))

	outcomes, err := f.Relink(root, fork.GEProton)
	require.NoError(t, err)
	require.Empty(t, outcomes.Failed())

	listed := f.ListLinks(root, fork.GEProton)
	assert.Equal(t, "GE-Proton10-20", listed["GE-Proton"])
}
