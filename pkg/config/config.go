// Package config loads protonfetcher configuration via koanf.
//
// Precedence, lowest to highest: embedded defaults, a user config file
// (config.toml or config.yaml in the protonfetcher config directory),
// PROTONFETCHER_* environment variables, explicit overrides (command
// line flags).
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/errors"
)

// Config is the resolved application configuration
type Config struct {
	ExtractDir     string `koanf:"extract_dir"`
	OutputDir      string `koanf:"output_dir"`
	Fork           string `koanf:"fork"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	ReleasesLimit  int    `koanf:"releases_limit"`
	ShowProgress   bool   `koanf:"show_progress"`
}

// Load resolves the configuration. configDir is where user config files are
// looked up (usually paths.ConfigDir()); it may be empty to skip file config.
// overrides take precedence over everything else.
func Load(configDir string, overrides map[string]interface{}) (*Config, error) {
	k, err := load(configDir, overrides)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	return &cfg, nil
}

func load(configDir string, overrides map[string]interface{}) (*koanf.Koanf, error) {
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	// 2. User config file, first match wins
	if configDir != "" {
		for _, candidate := range []string{"config.toml", "config.yaml"} {
			path := filepath.Join(configDir, candidate)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			parser := parserFor(candidate)
			if err := k.Load(file.Provider(path), parser); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", path)
			}
			break
		}
	}

	// 3. Environment overrides: PROTONFETCHER_EXTRACT_DIR -> extract_dir
	if err := k.Load(env.Provider("PROTONFETCHER_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PROTONFETCHER_"))
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	// 4. Explicit overrides, usually command line flags
	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to apply overrides")
		}
	}

	return k, nil
}

func parserFor(name string) koanf.Parser {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return yaml.Parser()
	}
	return toml.Parser()
}
