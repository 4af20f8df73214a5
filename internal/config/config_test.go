package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstrand/pokerserver/internal/engine"
)

func TestLoad_DefaultsFromCLIFlags(t *testing.T) {
	cfg, err := Load([]string{"--small-blind=25", "--big-blind=50"})
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.DefaultGame.SmallBlind)
	assert.Equal(t, 50, cfg.DefaultGame.BigBlind)
	assert.Equal(t, engine.NoLimit, cfg.DefaultGame.Structure)
}

func TestLoad_AppliesDataDirEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_DebugEnvRaisesLogLevel(t *testing.T) {
	t.Setenv("DEBUG", "1")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_ReadsGamesHCLWhenPresent(t *testing.T) {
	dir := t.TempDir()
	hclBody := `
game "highstakes" {
  small_blind  = 100
  big_blind    = 200
  structure    = "POT_LIMIT"
  rake_percent = 0.05
  rake_cap_bb  = 3
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "games.hcl"), []byte(hclBody), 0o644))

	cfg, err := Load([]string{"--data-dir=" + dir})
	require.NoError(t, err)

	g, ok := cfg.Games["highstakes"]
	require.True(t, ok)
	assert.Equal(t, 100, g.SmallBlind)
	assert.Equal(t, 200, g.BigBlind)
	assert.Equal(t, engine.PotLimit, g.Structure)
	assert.Equal(t, 0.05, g.Rake.Percentage)
	assert.Equal(t, 3, g.Rake.CapBB)
	assert.Equal(t, 20000, g.StartChips, "defaults to 100 big blinds when unset")
}

func TestLoad_NoGamesFileLeavesGamesEmpty(t *testing.T) {
	cfg, err := Load([]string{"--data-dir=" + t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, cfg.Games)
}
