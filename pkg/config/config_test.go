// pkg/config/config_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: Real filesystem (temp dirs), environment variables
// PURPOSE: Test config precedence: defaults < file < environment

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/WombatFromHell/protonge-fetcher-sub001/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "~/.steam/steam/compatibilitytools.d", cfg.ExtractDir)
	assert.Equal(t, "~/Downloads", cfg.OutputDir)
	assert.Equal(t, "GE-Proton", cfg.Fork)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, 20, cfg.ReleasesLimit)
	assert.True(t, cfg.ShowProgress)
}

func TestLoadTOMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := "fork = \"Proton-EM\"\ntimeout_seconds = 60\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := config.Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "Proton-EM", cfg.Fork)
	assert.Equal(t, 60, cfg.TimeoutSeconds)
	// untouched keys keep their defaults
	assert.Equal(t, "~/Downloads", cfg.OutputDir)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	content := "extract_dir: /opt/proton\nreleases_limit: 5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644))

	cfg, err := config.Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/proton", cfg.ExtractDir)
	assert.Equal(t, 5, cfg.ReleasesLimit)
}

func TestTOMLWinsOverYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("fork = \"Proton-EM\"\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("fork: GE-Proton\n"), 0644))

	cfg, err := config.Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "Proton-EM", cfg.Fork)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("fork = \"Proton-EM\"\n"), 0644))
	t.Setenv("PROTONFETCHER_FORK", "GE-Proton")

	cfg, err := config.Load(dir, nil)
	require.NoError(t, err)

	assert.Equal(t, "GE-Proton", cfg.Fork)
}

func TestOverridesWinOverEnv(t *testing.T) {
	t.Setenv("PROTONFETCHER_FORK", "GE-Proton")

	cfg, err := config.Load("", map[string]interface{}{"fork": "Proton-EM"})
	require.NoError(t, err)

	assert.Equal(t, "Proton-EM", cfg.Fork)
}

func TestInvalidTOMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("fork = [broken\n"), 0644))

	_, err := config.Load(dir, nil)
	require.Error(t, err)
}
