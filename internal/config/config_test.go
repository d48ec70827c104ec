package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ScrapeTimeout)
	assert.Equal(t, 2*time.Second, cfg.ScrapeDelay)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CATALOG_DATA_DIR=/data\nSCRAPE_DELAY=500ms\nLOG_LEVEL=warn\n"), 0o644))
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CATALOG_DATA_DIR", "")
	os.Unsetenv("CATALOG_DATA_DIR")
	t.Setenv("SCRAPE_DELAY", "")
	os.Unsetenv("SCRAPE_DELAY")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.ScrapeDelay)
}

func TestLoad_RejectsUnknownFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.ErrorContains(t, err, "LOG_FORMAT")
}
