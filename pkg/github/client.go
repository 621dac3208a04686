// Package github resolves Proton release tags and assets from GitHub,
// using the releases API where possible and falling back to the public
// release pages when it is unavailable or rate limited.
package github

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/fork"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/logging"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://github.com"
	defaultAPIURL  = "https://api.github.com"

	userAgent      = "protonfetcher"
	releasesLimit  = 20
	sizeCacheTTL   = time.Hour
	defaultTimeout = 30 * time.Second
)

// Client talks to GitHub. The zero value is not usable; construct with New.
type Client struct {
	baseURL  string
	apiURL   string
	http     *http.Client
	headOnly *http.Client
	cacheDir string
	log      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the github.com endpoint.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithAPIURL overrides the api.github.com endpoint.
func WithAPIURL(url string) Option {
	return func(c *Client) { c.apiURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
		c.headOnly.Timeout = d
	}
}

// WithCacheDir enables asset size caching under dir.
func WithCacheDir(dir string) Option {
	return func(c *Client) { c.cacheDir = dir }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiURL:  defaultAPIURL,
		http:    &http.Client{Timeout: defaultTimeout},
		headOnly: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: logging.GetLogger("github"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LatestTag resolves the tag behind <repo>/releases/latest without
// following the redirect; GitHub answers with a Location header of the
// form /releases/tag/<tag>.
func (c *Client) LatestTag(repo string) (string, error) {
	url := fmt.Sprintf("%s/%s/releases/latest", c.baseURL, repo)

	resp, err := c.head(c.headOnly, url)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrNetwork, "failed to fetch latest tag for %s", repo)
	}
	defer resp.Body.Close()

	location := resp.Header.Get("Location")
	idx := strings.Index(location, "/releases/tag/")
	if idx < 0 {
		return "", errors.Newf(errors.ErrNetwork,
			"could not determine latest tag for %s from redirect %q", repo, location)
	}
	tag := path.Base(location[idx:])
	c.log.Info().Str("repo", repo).Str("tag", tag).Msg("Resolved latest release")
	return tag, nil
}

type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// RecentReleases returns the tag names of the most recent releases,
// newest first, capped at 20.
func (c *Client) RecentReleases(repo string) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases", c.apiURL, repo)

	body, err := c.getAPI(url)
	if err != nil {
		return nil, err
	}

	var releases []release
	if err := json.Unmarshal(body, &releases); err != nil {
		return nil, errors.Wrapf(err, errors.ErrNetwork, "failed to parse releases for %s", repo)
	}

	tags := make([]string, 0, len(releases))
	for _, rel := range releases {
		if rel.TagName == "" {
			continue
		}
		tags = append(tags, rel.TagName)
		if len(tags) == releasesLimit {
			break
		}
	}
	return tags, nil
}

// FindAsset picks the release asset to download for a tag. The API is
// tried first; if it fails the public release page is scanned for the
// conventional asset name.
func (c *Client) FindAsset(repo, tag string, f fork.Fork) (string, error) {
	name, apiErr := c.findAssetViaAPI(repo, tag, f)
	if apiErr == nil {
		return name, nil
	}
	c.log.Debug().Err(apiErr).Str("tag", tag).Msg("API asset lookup failed, trying release page")

	return c.findAssetViaPage(repo, tag, f)
}

func (c *Client) findAssetViaAPI(repo, tag string, f fork.Fork) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", c.apiURL, repo, tag)

	body, err := c.getAPI(url)
	if err != nil {
		return "", err
	}

	var rel release
	if err := json.Unmarshal(body, &rel); err != nil {
		return "", errors.Wrap(err, errors.ErrNetwork, "failed to parse release")
	}
	if len(rel.Assets) == 0 {
		return "", errors.Newf(errors.ErrNotFound, "no assets in release %s/%s", repo, tag)
	}

	ext := f.ArchiveExt()
	for _, a := range rel.Assets {
		if strings.HasSuffix(strings.ToLower(a.Name), ext) {
			c.log.Info().Str("asset", a.Name).Msg("Found asset via API")
			return a.Name, nil
		}
	}
	// no asset carries the fork's extension; take whatever is first
	c.log.Info().Str("asset", rel.Assets[0].Name).Msg("Found asset with non-matching extension via API")
	return rel.Assets[0].Name, nil
}

func (c *Client) findAssetViaPage(repo, tag string, f fork.Fork) (string, error) {
	want := f.AssetName(tag)
	url := fmt.Sprintf("%s/%s/releases/tag/%s", c.baseURL, repo, tag)

	resp, err := c.get(url, nil)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrNetwork, "failed to fetch release page for %s/%s", repo, tag)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrNetwork, "failed to read release page")
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrNetwork,
			"release page for %s/%s returned %d", repo, tag, resp.StatusCode)
	}

	if strings.Contains(string(body), want) {
		c.log.Info().Str("asset", want).Msg("Found asset via release page")
		return want, nil
	}
	return "", errors.Newf(errors.ErrNotFound, "asset %q not found in %s/%s", want, repo, tag)
}

// DownloadURL is the direct download location for a release asset.
func (c *Client) DownloadURL(repo, tag, name string) string {
	return fmt.Sprintf("%s/%s/releases/download/%s/%s", c.baseURL, repo, tag, name)
}

// AssetSize reports the byte size of a release asset via a HEAD request
// on the download URL. Results are cached on disk for an hour when the
// client has a cache dir.
func (c *Client) AssetSize(repo, tag, name string) (int64, error) {
	if size, ok := c.cachedSize(repo, tag, name); ok {
		c.log.Debug().Str("asset", name).Int64("size", size).Msg("Using cached asset size")
		return size, nil
	}

	url := c.DownloadURL(repo, tag, name)
	resp, err := c.head(c.http, url)
	if err != nil {
		return 0, errors.Wrapf(err, errors.ErrNetwork, "failed to get size of %s", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, errors.Newf(errors.ErrNotFound, "remote asset not found: %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Newf(errors.ErrNetwork,
			"size request for %s returned %d", name, resp.StatusCode)
	}
	if resp.ContentLength <= 0 {
		return 0, errors.Newf(errors.ErrNetwork, "could not determine size of remote asset %s", name)
	}

	c.storeSize(repo, tag, name, resp.ContentLength)
	return resp.ContentLength, nil
}

func (c *Client) get(url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.http.Do(req)
}

func (c *Client) head(client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return client.Do(req)
}

// getAPI performs an API GET and maps the GitHub failure modes, in
// particular the anonymous rate limit, onto friendly errors.
func (c *Client) getAPI(url string) ([]byte, error) {
	resp, err := c.get(url, map[string]string{"Accept": "application/vnd.github.v3+json"})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNetwork, "GitHub API request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNetwork, "failed to read API response")
	}

	switch {
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0",
		resp.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(string(body)), "rate limit"):
		return nil, errors.New(errors.ErrRateLimit,
			"API rate limit exceeded. Please wait a few minutes before trying again.")
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Newf(errors.ErrNotFound, "not found: %s", url)
	case resp.StatusCode != http.StatusOK:
		return nil, errors.Newf(errors.ErrNetwork, "GitHub API returned %d for %s", resp.StatusCode, url)
	}
	return body, nil
}
