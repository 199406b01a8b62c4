package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "slidecast.db", cfg.DBPath)
	assert.Equal(t, 300*time.Millisecond, cfg.AutoPlayDelay)
	assert.Equal(t, 1, cfg.AutoPlayCount)
	assert.Equal(t, 1280, cfg.Width)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLIDECAST_DB", "/tmp/x.db")
	t.Setenv("SLIDECAST_AUTOPLAY_DELAY", "1s")
	t.Setenv("SLIDECAST_PLAY_COUNT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, time.Second, cfg.AutoPlayDelay)
	assert.Equal(t, 3, cfg.PlayCount)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("SLIDECAST_PLAY_COUNT", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SLIDECAST_PLAY_COUNT", "3")
	cfg, err := Load()
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-count", "5", "-db", "other.db"}))

	assert.Equal(t, 5, cfg.PlayCount)
	assert.Equal(t, "other.db", cfg.DBPath)
	assert.Equal(t, 1280, cfg.Width)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	cfg.PlayCount = 0
	cfg.DPI = -1

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "play count")
	assert.Contains(t, err.Error(), "dpi")
}
