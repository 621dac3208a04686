// Package fetcher orchestrates the full release flow: resolve a tag,
// download its asset, unpack it, and converge the version symlinks.
package fetcher

import (
	"path/filepath"
	"time"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/download"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/extract"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/filesystem"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/github"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/links"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/types"
	"github.com/rs/zerolog"
)

// Fetcher wires the release resolver, downloader, extractor and link
// manager together behind one façade.
type Fetcher struct {
	gh    *github.Client
	dl    *download.Downloader
	links *links.Manager
	fs    types.FS
	log   zerolog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithGitHub replaces the GitHub client.
func WithGitHub(c *github.Client) Option {
	return func(f *Fetcher) { f.gh = c }
}

// WithDownloader replaces the asset downloader.
func WithDownloader(d *download.Downloader) Option {
	return func(f *Fetcher) { f.dl = d }
}

// WithFS replaces the filesystem.
func WithFS(fsys types.FS) Option {
	return func(f *Fetcher) {
		f.fs = fsys
		f.links = links.NewManager(fsys)
	}
}

func New(timeout time.Duration, cacheDir string, showProgress bool, opts ...Option) *Fetcher {
	fsys := filesystem.NewOS()
	f := &Fetcher{
		gh:    github.New(github.WithTimeout(timeout), github.WithCacheDir(cacheDir)),
		dl:    download.New(download.WithTimeout(timeout), download.WithProgress(showProgress)),
		links: links.NewManager(fsys),
		fs:    fsys,
		log:   logging.GetLogger("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Request describes one fetch.
type Request struct {
	Fork       fork.Fork
	Tag        string // empty means latest
	OutputDir  string // where the archive lands
	ExtractDir string // the compatibility tools directory
}

// FetchAndExtract runs the full flow and returns the unpacked release
// directory. Work already done is skipped: an existing archive of the
// right size is not re-downloaded, an existing release directory is not
// re-extracted, and links already up to date are left alone.
func (f *Fetcher) FetchAndExtract(req Request) (string, error) {
	if err := f.ensureWritableDir(req.OutputDir); err != nil {
		return "", err
	}
	if err := f.ensureWritableDir(req.ExtractDir); err != nil {
		return "", err
	}

	manual := req.Tag != ""
	tag := req.Tag
	if !manual {
		latest, err := f.gh.LatestTag(req.Fork.Repo())
		if err != nil {
			return "", err
		}
		tag = latest
	}

	manualTag := ""
	if manual {
		manualTag = tag
	}

	if dir, ok := f.unpackedDir(req.ExtractDir, tag, req.Fork); ok {
		f.log.Info().Str("dir", dir).Msg("Release already unpacked, skipping download and extraction")
		if f.links.UpToDate(req.ExtractDir, req.Fork, manualTag) {
			f.log.Info().Msg("Links already up to date")
			return dir, nil
		}
		if _, err := f.links.ManageLinks(req.ExtractDir, req.Fork, manualTag); err != nil {
			return "", err
		}
		return dir, nil
	}

	asset, err := f.gh.FindAsset(req.Fork.Repo(), tag, req.Fork)
	if err != nil {
		return "", errors.Wrapf(err, errors.GetErrorCode(err),
			"could not find asset for release %s in %s", tag, req.Fork.Repo())
	}

	// a stale size only costs a redundant download
	size, err := f.gh.AssetSize(req.Fork.Repo(), tag, asset)
	if err != nil {
		f.log.Debug().Err(err).Str("asset", asset).Msg("Could not determine remote asset size")
		size = 0
	}

	archive := filepath.Join(req.OutputDir, asset)
	if _, err := f.dl.Download(f.gh.DownloadURL(req.Fork.Repo(), tag, asset), archive, size); err != nil {
		return "", err
	}

	// another process may have unpacked the release while we downloaded
	if dir, ok := f.unpackedDir(req.ExtractDir, tag, req.Fork); ok {
		f.log.Info().Str("dir", dir).Msg("Release appeared during download, skipping extraction")
		if _, err := f.links.ManageLinks(req.ExtractDir, req.Fork, manualTag); err != nil {
			return "", err
		}
		return dir, nil
	}

	if err := extract.Extract(archive, req.ExtractDir); err != nil {
		return "", err
	}

	dir, ok := f.unpackedDir(req.ExtractDir, tag, req.Fork)
	if !ok {
		return "", errors.Newf(errors.ErrExtract,
			"archive %s did not produce the expected release directory for %s", asset, tag)
	}

	if _, err := f.links.ManageLinks(req.ExtractDir, req.Fork, manualTag); err != nil {
		return "", err
	}
	return dir, nil
}

// RecentReleases lists the latest tags for a fork's repository.
func (f *Fetcher) RecentReleases(fk fork.Fork) ([]string, error) {
	return f.gh.RecentReleases(fk.Repo())
}

// ListLinks reports the fork's link names and their current targets.
func (f *Fetcher) ListLinks(extractDir string, fk fork.Fork) map[string]string {
	return f.links.ListLinks(extractDir, fk)
}

// RemoveRelease deletes an installed release and repoints the links.
func (f *Fetcher) RemoveRelease(extractDir, tag string, fk fork.Fork) (links.Outcomes, error) {
	return f.links.RemoveRelease(extractDir, tag, fk)
}

// Relink rebuilds the fork's links from what is on disk.
func (f *Fetcher) Relink(extractDir string, fk fork.Fork) (links.Outcomes, error) {
	if err := f.ensureWritableDir(extractDir); err != nil {
		return nil, err
	}
	return f.links.Relink(extractDir, fk)
}

// unpackedDir reports where tag is unpacked under extractDir, trying the
// literal tag first and then the fork's on-disk prefix.
func (f *Fetcher) unpackedDir(extractDir, tag string, fk fork.Fork) (string, bool) {
	candidates := []string{filepath.Join(extractDir, tag)}
	if prefix := fk.DirPrefix(); prefix != "" {
		candidates = append(candidates, filepath.Join(extractDir, prefix+tag))
	}
	for _, dir := range candidates {
		if fi, err := f.fs.Stat(dir); err == nil && fi.IsDir() {
			return dir, true
		}
	}
	return "", false
}

func (f *Fetcher) ensureWritableDir(dir string) error {
	if dir == "" {
		return errors.New(errors.ErrInvalidInput, "directory must not be empty")
	}
	if err := f.fs.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrDirCreate, "failed to create directory %s", dir)
	}
	fi, err := f.fs.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", dir)
	}
	if !fi.IsDir() {
		return errors.Newf(errors.ErrInvalidInput, "%s exists but is not a directory", dir)
	}

	probe := filepath.Join(dir, ".write_test")
	if err := f.fs.WriteFile(probe, nil, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrPermission, "directory %s is not writable", dir)
	}
	if err := f.fs.Remove(probe); err != nil {
		f.log.Debug().Err(err).Str("probe", probe).Msg("Failed to remove write probe")
	}
	return nil
}
