package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("docx-server", 8000, nil)
	require.NoError(t, err)

	assert.Equal(t, "docx-server", cfg.Service)
	assert.Equal(t, 8000, cfg.HTTP.Port)
	assert.Equal(t, ":8000", cfg.Address())
	assert.Equal(t, 5*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, int64(20<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, MissingEmpty, cfg.Templates.Missing)
	assert.Equal(t, "template.docx", cfg.Templates.Default)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.History.Enabled)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
http:
  port: 9100
templates:
  missing: keep
  cache_size: 4
log:
  level: debug
`
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("DOCXPRESS_TEMPLATES_CACHE_SIZE", "8")
	t.Setenv("DOCXPRESS_CACHE_TTL", "90s")

	cfg, err := Load("render-server", 8001, []string{"--config", path, "--log-level", "warn"})
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.HTTP.Port, "file overrides default")
	assert.Equal(t, MissingKeep, cfg.Templates.Missing)
	assert.Equal(t, 8, cfg.Templates.CacheSize, "env overrides file")
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "warn", cfg.Log.Level, "flag overrides file")
}

func TestLoad_RejectsInvalidPolicy(t *testing.T) {
	chdirTemp(t)
	t.Setenv("DOCXPRESS_TEMPLATES_MISSING", "explode")

	_, err := Load("render-server", 8001, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "templates.missing")
}

func TestValidate(t *testing.T) {
	base := Config{
		HTTP:      HTTPConfig{Port: 8000},
		Uploads:   UploadsConfig{MaxBytes: 1},
		Templates: TemplatesConfig{Missing: MissingEmpty, CacheSize: 1},
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.HTTP.Port = 70000
	assert.Error(t, bad.Validate())

	bad = base
	bad.Uploads.MaxBytes = 0
	assert.Error(t, bad.Validate())

	bad = base
	bad.Templates.S3.Endpoint = "localhost:9000"
	assert.Error(t, bad.Validate(), "s3 endpoint without bucket")
}
