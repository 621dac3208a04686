// Package paths provides centralized path handling for protonfetcher.
// It implements XDG Base Directory specification compliance and provides
// a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
)

// Environment variable names
const (
	// EnvExtractDir overrides where releases are unpacked
	EnvExtractDir = "PROTONFETCHER_EXTRACT_DIR"

	// EnvOutputDir overrides where archives are downloaded
	EnvOutputDir = "PROTONFETCHER_OUTPUT_DIR"

	// EnvCacheDir overrides the XDG cache directory for protonfetcher
	EnvCacheDir = "PROTONFETCHER_CACHE_DIR"

	// EnvConfigDir overrides the XDG config directory for protonfetcher
	EnvConfigDir = "PROTONFETCHER_CONFIG_DIR"
)

// Default directories and files
const (
	// AppDirName is the directory name for protonfetcher-specific files
	AppDirName = "protonfetcher"

	// DefaultExtractDir is where Steam looks for compatibility tools
	DefaultExtractDir = "~/.steam/steam/compatibilitytools.d"

	// DefaultOutputDir is where archives land before extraction
	DefaultOutputDir = "~/Downloads"

	// LogFileName is the name of the log file
	LogFileName = "protonfetcher.log"
)

// Paths provides centralized path management for protonfetcher
type Paths interface {
	ExtractDir() string
	OutputDir() string
	CacheDir() string
	ConfigDir() string
	LogFilePath() string
}

type paths struct {
	extractDir string
	outputDir  string
	xdgCache   string
	xdgConfig  string
	xdgState   string
}

// New creates a new Paths instance. extractDir and outputDir override the
// defaults when non-empty; otherwise environment variables and then the
// built-in defaults apply.
func New(extractDir, outputDir string) (Paths, error) {
	p := &paths{}

	p.extractDir = firstNonEmpty(extractDir, os.Getenv(EnvExtractDir), DefaultExtractDir)
	p.outputDir = firstNonEmpty(outputDir, os.Getenv(EnvOutputDir), DefaultOutputDir)

	var err error
	if p.extractDir, err = normalize(p.extractDir); err != nil {
		return nil, err
	}
	if p.outputDir, err = normalize(p.outputDir); err != nil {
		return nil, err
	}

	p.setupXDGDirs()
	return p, nil
}

// setupXDGDirs initializes XDG directories, respecting environment overrides
func (p *paths) setupXDGDirs() {
	if cacheDir := os.Getenv(EnvCacheDir); cacheDir != "" {
		p.xdgCache = expandHome(cacheDir)
	} else {
		p.xdgCache = filepath.Join(xdg.CacheHome, AppDirName)
	}

	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		p.xdgConfig = expandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	// XDG state home, where the log file lives
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		p.xdgState = filepath.Join(stateDir, AppDirName)
	} else {
		homeDir, _ := os.UserHomeDir()
		p.xdgState = filepath.Join(homeDir, ".local", "state", AppDirName)
	}
}

func (p *paths) ExtractDir() string { return p.extractDir }
func (p *paths) OutputDir() string  { return p.outputDir }
func (p *paths) CacheDir() string   { return p.xdgCache }
func (p *paths) ConfigDir() string  { return p.xdgConfig }

func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}

// normalize expands ~ and makes the path absolute
func normalize(path string) (string, error) {
	expanded := expandHome(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrFileAccess, "failed to get absolute path for %s", path)
	}
	return abs, nil
}

// expandHome expands the ~ prefix to the user's home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
