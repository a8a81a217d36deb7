package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "localstore", cfg.Name)
	assert.Equal(t, ".localstore", cfg.Storage.Root)
	assert.True(t, cfg.Storage.SweepStaleTemp)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Storage.Root, cfg.Storage.Root)
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
storage:
  root: /var/lib/stash
  suppression_ttl: 2s
  sweep_stale_temp: false
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/stash", cfg.Storage.Root)
	assert.Equal(t, 2*time.Second, cfg.Storage.SuppressionWindow())
	assert.False(t, cfg.Storage.SweepStaleTemp)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: ["), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOCALSTORE_ROOT", "/tmp/override")
	t.Setenv("LOCALSTORE_LOG_LEVEL", "error")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.Storage.Root)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestSuppressionWindowFallback(t *testing.T) {
	tests := []struct {
		name string
		ttl  string
		want time.Duration
	}{
		{"Empty", "", 5 * time.Second},
		{"Malformed", "soon", 5 * time.Second},
		{"Negative", "-1s", 5 * time.Second},
		{"Valid", "250ms", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := StorageConfig{SuppressionTTL: tt.ttl}
			assert.Equal(t, tt.want, c.SuppressionWindow())
		})
	}
}
