package github

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type sizeEntry struct {
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
	Repo      string    `json:"repo"`
	Tag       string    `json:"tag"`
	AssetName string    `json:"asset_name"`
}

func cacheKey(repo, tag, name string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s_%s_%s_size", repo, tag, name)))
	return hex.EncodeToString(sum[:])
}

func (c *Client) cachePath(repo, tag, name string) string {
	return filepath.Join(c.cacheDir, cacheKey(repo, tag, name))
}

func (c *Client) cachedSize(repo, tag, name string) (int64, bool) {
	if c.cacheDir == "" {
		return 0, false
	}
	path := c.cachePath(repo, tag, name)

	fi, err := os.Stat(path)
	if err != nil || time.Since(fi.ModTime()) >= sizeCacheTTL {
		return 0, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	var entry sizeEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Size <= 0 {
		return 0, false
	}
	return entry.Size, true
}

func (c *Client) storeSize(repo, tag, name string, size int64) {
	if c.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		c.log.Debug().Err(err).Msg("Failed to create cache directory")
		return
	}

	entry := sizeEntry{
		Size:      size,
		Timestamp: time.Now(),
		Repo:      repo,
		Tag:       tag,
		AssetName: name,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := os.WriteFile(c.cachePath(repo, tag, name), data, 0644); err != nil {
		c.log.Debug().Err(err).Msg("Failed to write size cache")
	}
}
