// Package download streams release assets to disk, skipping work when a
// complete copy already exists locally.
package download

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Downloader fetches assets over HTTP.
type Downloader struct {
	http         *http.Client
	showProgress bool
	log          zerolog.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(dl *Downloader) { dl.http.Timeout = d }
}

// WithProgress toggles the terminal progress bar.
func WithProgress(show bool) Option {
	return func(dl *Downloader) { dl.showProgress = show }
}

func New(opts ...Option) *Downloader {
	dl := &Downloader{
		http: &http.Client{Timeout: defaultTimeout},
		log:  logging.GetLogger("download"),
	}
	for _, opt := range opts {
		opt(dl)
	}
	return dl
}

// Download fetches url into dest. When dest already exists with size
// expectedSize (and expectedSize is known), the download is skipped and
// skipped is true.
func (dl *Downloader) Download(url, dest string, expectedSize int64) (skipped bool, err error) {
	if fi, statErr := os.Stat(dest); statErr == nil && expectedSize > 0 {
		if fi.Size() == expectedSize {
			dl.log.Info().Str("dest", dest).Int64("size", fi.Size()).
				Msg("Local asset already complete, skipping download")
			return true, nil
		}
		dl.log.Info().Int64("local", fi.Size()).Int64("remote", expectedSize).
			Msg("Local asset size differs, downloading fresh copy")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, errors.Wrapf(err, errors.ErrDirCreate, "failed to create download directory for %s", dest)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrNetwork, "invalid download URL %s", url)
	}
	req.Header.Set("User-Agent", "protonfetcher")

	resp, err := dl.http.Do(req)
	if err != nil {
		return false, errors.Wrapf(err, errors.ErrNetwork, "failed to download %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, errors.Newf(errors.ErrNotFound, "asset not found: %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		return false, errors.Newf(errors.ErrNetwork, "download of %s returned %d", url, resp.StatusCode)
	}

	if err := dl.writeBody(resp, dest); err != nil {
		os.Remove(dest)
		return false, err
	}

	dl.log.Info().Str("dest", dest).Msg("Downloaded asset")
	return false, nil
}

func (dl *Downloader) writeBody(resp *http.Response, dest string) error {
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create %s", dest)
	}
	defer out.Close()

	var src io.Reader = resp.Body
	if dl.showProgress && resp.ContentLength > 0 {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(resp.ContentLength)).
			WithTitle("Downloading " + filepath.Base(dest)).
			WithShowCount(false).
			Start()
		if err == nil {
			defer func() { _, _ = bar.Stop() }()
			src = io.TeeReader(resp.Body, progressWriter{bar})
		}
	}

	if _, err := io.Copy(out, src); err != nil {
		return errors.Wrapf(err, errors.ErrNetwork, "failed while downloading to %s", dest)
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to flush %s", dest)
	}
	return nil
}

type progressWriter struct {
	bar *pterm.ProgressbarPrinter
}

func (p progressWriter) Write(b []byte) (int, error) {
	p.bar.Add(len(b))
	return len(b), nil
}
