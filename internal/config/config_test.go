package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(kv map[string]string) func(string) string {
	return func(k string) string { return kv[k] }
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "banner.hcl")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, BackendLocal, cfg.StorageBackend)
	assert.Equal(t, filepath.Join("data", "banner.db"), cfg.DBPath)
	assert.Equal(t, filepath.Join("data", "uploads"), cfg.UploadDir)
	assert.Equal(t, int64(50<<20), cfg.MaxUploadBytes)
	assert.GreaterOrEqual(t, cfg.RenderWorkers, 1)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
port           = 9000
data_dir       = "/srv/banner"
render_workers = 2

log {
  level  = "debug"
  format = "json"
}

storage "minio" {
  endpoint   = "minio:9000"
  access_key = "file-key"
  bucket     = "exports"
  use_ssl    = true
}
`)
	cfg, err := Load(path, envOf(map[string]string{
		"PORT":             "9100",
		"MINIO_ACCESS_KEY": "env-key",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port, "env wins over file")
	assert.Equal(t, "/srv/banner", cfg.DataDir)
	assert.Equal(t, filepath.Join("/srv/banner", "banner.db"), cfg.DBPath)
	assert.Equal(t, 2, cfg.RenderWorkers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, BackendMinio, cfg.StorageBackend)
	assert.Equal(t, Minio{
		Endpoint:  "minio:9000",
		AccessKey: "env-key",
		Bucket:    "exports",
		UseSSL:    true,
	}, cfg.Minio)
	assert.Equal(t, "minio:9000", cfg.MinioConfig().Endpoint)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"), envOf(nil))
	assert.Error(t, err)

	_, err = Load(writeFile(t, `port = `), envOf(nil))
	assert.ErrorContains(t, err, "parse")

	_, err = Load(writeFile(t, `unknown_key = 1`), envOf(nil))
	assert.ErrorContains(t, err, "decode")

	_, err = Load("", envOf(map[string]string{"PORT": "abc"}))
	assert.ErrorContains(t, err, "PORT")

	_, err = Load("", envOf(map[string]string{"BANNER_STORAGE_BACKEND": "s3"}))
	assert.ErrorContains(t, err, "unknown storage backend")

	_, err = Load("", envOf(map[string]string{"BANNER_STORAGE_BACKEND": "minio"}))
	assert.ErrorContains(t, err, "endpoint")

	_, err = Load("", envOf(map[string]string{"BANNER_RENDER_WORKERS": "0"}))
	assert.ErrorContains(t, err, "render_workers")
}
