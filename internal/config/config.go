// Package config loads the server configuration. Values come from built-in
// defaults, then an optional HCL file, then the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/youruser/bannermaker/internal/storage"
)

const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Config struct {
	Port           int
	DataDir        string
	DBPath         string
	StorageBackend string
	UploadDir      string
	Minio          Minio
	MaxUploadBytes int64
	RenderWorkers  int
	LogLevel       string
	LogFormat      string
	GinMode        string
}

func Default() Config {
	return Config{
		Port:           8080,
		DataDir:        "data",
		StorageBackend: BackendLocal,
		Minio:          Minio{Bucket: "banners"},
		MaxUploadBytes: storage.DefaultMaxUploadBytes,
		RenderWorkers:  runtime.NumCPU(),
		LogLevel:       "info",
		LogFormat:      "text",
		GinMode:        "release",
	}
}

// hclFile mirrors the accepted file layout. Every attribute is optional and
// only overrides the default when present.
type hclFile struct {
	Port           *int      `hcl:"port,optional"`
	DataDir        *string   `hcl:"data_dir,optional"`
	DBPath         *string   `hcl:"db_path,optional"`
	MaxUploadBytes *int64    `hcl:"max_upload_bytes,optional"`
	RenderWorkers  *int      `hcl:"render_workers,optional"`
	GinMode        *string   `hcl:"gin_mode,optional"`
	Log            *hclLog   `hcl:"log,block"`
	Storage        *hclStore `hcl:"storage,block"`
}

type hclLog struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type hclStore struct {
	Backend   string  `hcl:"backend,label"`
	UploadDir *string `hcl:"upload_dir,optional"`
	Endpoint  *string `hcl:"endpoint,optional"`
	AccessKey *string `hcl:"access_key,optional"`
	SecretKey *string `hcl:"secret_key,optional"`
	Bucket    *string `hcl:"bucket,optional"`
	UseSSL    *bool   `hcl:"use_ssl,optional"`
}

// Load builds the configuration. path may be empty to skip the file.
// getenv is usually os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	cfg.fillDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	f, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse config file %s: %w", path, diags)
	}
	var parsed hclFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("failed to decode config file %s: %w", path, diags)
	}

	set(&c.Port, parsed.Port)
	set(&c.DataDir, parsed.DataDir)
	set(&c.DBPath, parsed.DBPath)
	set(&c.MaxUploadBytes, parsed.MaxUploadBytes)
	set(&c.RenderWorkers, parsed.RenderWorkers)
	set(&c.GinMode, parsed.GinMode)
	if l := parsed.Log; l != nil {
		set(&c.LogLevel, l.Level)
		set(&c.LogFormat, l.Format)
	}
	if s := parsed.Storage; s != nil {
		c.StorageBackend = s.Backend
		set(&c.UploadDir, s.UploadDir)
		set(&c.Minio.Endpoint, s.Endpoint)
		set(&c.Minio.AccessKey, s.AccessKey)
		set(&c.Minio.SecretKey, s.SecretKey)
		set(&c.Minio.Bucket, s.Bucket)
		set(&c.Minio.UseSSL, s.UseSSL)
	}
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := map[string]*string{
		"BANNER_DATA_DIR":        &c.DataDir,
		"BANNER_DB_PATH":         &c.DBPath,
		"BANNER_STORAGE_BACKEND": &c.StorageBackend,
		"BANNER_UPLOAD_DIR":      &c.UploadDir,
		"BANNER_LOG_LEVEL":       &c.LogLevel,
		"BANNER_LOG_FORMAT":      &c.LogFormat,
		"GIN_MODE":               &c.GinMode,
		"MINIO_ENDPOINT":         &c.Minio.Endpoint,
		"MINIO_ACCESS_KEY":       &c.Minio.AccessKey,
		"MINIO_SECRET_KEY":       &c.Minio.SecretKey,
		"MINIO_BUCKET":           &c.Minio.Bucket,
	}
	for key, dst := range str {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	var errs []error
	if v := getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("PORT", err))
		c.Port = n
	}
	if v := getenv("BANNER_RENDER_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		errs = append(errs, envErr("BANNER_RENDER_WORKERS", err))
		c.RenderWorkers = n
	}
	if v := getenv("BANNER_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		errs = append(errs, envErr("BANNER_MAX_UPLOAD_BYTES", err))
		c.MaxUploadBytes = n
	}
	if v := getenv("MINIO_USE_SSL"); v != "" {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr("MINIO_USE_SSL", err))
		c.Minio.UseSSL = b
	}
	return errors.Join(errs...)
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("env %s: %w", key, err)
}

func (c *Config) fillDerived() {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "banner.db")
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join(c.DataDir, "uploads")
	}
	c.StorageBackend = strings.ToLower(c.StorageBackend)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.RenderWorkers < 1 {
		errs = append(errs, fmt.Errorf("render_workers must be at least 1, got %d", c.RenderWorkers))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes))
	}
	switch c.StorageBackend {
	case BackendLocal:
	case BackendMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			errs = append(errs, errors.New("minio storage needs an endpoint and a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

func (c *Config) MinioConfig() storage.MinioConfig {
	return storage.MinioConfig(c.Minio)
}
