// Package config loads the viewer configuration from YAML with PV_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pyhub-apps/pdfviewer-golang/internal/logging"
	"github.com/pyhub-apps/pdfviewer-golang/internal/storage"
	"github.com/pyhub-apps/pdfviewer-golang/pkg/engine"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PV_"

// Config represents the overall application configuration
type Config struct {
	Server  ServerConfig   `yaml:"server" json:"server"`
	Engine  engine.Config  `yaml:"engine" json:"engine"`
	Storage storage.Config `yaml:"storage" json:"storage"`
	Logging logging.Config `yaml:"logging" json:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host         string `yaml:"host" json:"host"`
	Port         int    `yaml:"port" json:"port"`
	ReadTimeout  int    `yaml:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" json:"write_timeout"` // seconds
	// MaxUploadMB limits the size of an uploaded document
	MaxUploadMB int `yaml:"max_upload_mb" json:"max_upload_mb"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the upload limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// Load reads the configuration file over the defaults, applies
// environment overrides and validates the result. An empty path loads
// the defaults alone.
func Load(configPath string) (*Config, error) {
	cfg := GetDefault()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d MB", cfg.Server.MaxUploadMB)
	}

	if err := cfg.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := cfg.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	switch cfg.Storage.Adapter {
	case storage.AdapterLocal:
		if cfg.Storage.Local.BasePath == "" {
			return fmt.Errorf("local storage base_path is required")
		}
		if !filepath.IsAbs(cfg.Storage.Local.BasePath) {
			return fmt.Errorf("local storage base_path must be absolute: %s", cfg.Storage.Local.BasePath)
		}
	case storage.AdapterS3:
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("s3 region is required")
		}
	default:
		return fmt.Errorf("invalid storage adapter: %s (must be 'local' or 's3')", cfg.Storage.Adapter)
	}

	return nil
}

// applyEnvOverrides applies PV_* environment variables
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"SERVER_HOST":                  &cfg.Server.Host,
		"ENGINE_TEXT_BACKEND":          &cfg.Engine.TextBackend,
		"ENGINE_PASSWORD":              &cfg.Engine.Password,
		"ENGINE_VALIDATION":            &cfg.Engine.Validation,
		"ENGINE_UNICODE_NORM":          &cfg.Engine.UnicodeNorm,
		"ENGINE_RENDERER":              &cfg.Engine.Renderer,
		"STORAGE_ADAPTER":              &cfg.Storage.Adapter,
		"STORAGE_LOCAL_BASE_PATH":      &cfg.Storage.Local.BasePath,
		"STORAGE_S3_BUCKET":            &cfg.Storage.S3.Bucket,
		"STORAGE_S3_REGION":            &cfg.Storage.S3.Region,
		"STORAGE_S3_ENDPOINT":          &cfg.Storage.S3.Endpoint,
		"STORAGE_S3_PREFIX":            &cfg.Storage.S3.Prefix,
		"STORAGE_S3_ACCESS_KEY_ID":     &cfg.Storage.S3.AccessKeyID,
		"STORAGE_S3_SECRET_ACCESS_KEY": &cfg.Storage.S3.SecretAccessKey,
		"LOG_LEVEL":                    &cfg.Logging.Level,
		"LOG_FORMAT":                   &cfg.Logging.Format,
	}
	for name, field := range strs {
		if val := os.Getenv(EnvPrefix + name); val != "" {
			*field = val
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":          &cfg.Server.Port,
		"SERVER_READ_TIMEOUT":  &cfg.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT": &cfg.Server.WriteTimeout,
		"SERVER_MAX_UPLOAD_MB": &cfg.Server.MaxUploadMB,
		"ENGINE_MAX_PAGES":     &cfg.Engine.MaxPages,
	}
	for name, field := range ints {
		val := os.Getenv(EnvPrefix + name)
		if val == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
		}
		*field = n
	}

	return nil
}

// GetDefault returns a default configuration
func GetDefault() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 60,
			MaxUploadMB:  50,
		},
		Engine: engine.DefaultConfig(),
		Storage: storage.Config{
			Adapter: storage.AdapterLocal,
			Local: storage.LocalConfig{
				BasePath: filepath.Join(os.TempDir(), "pdfviewer"),
			},
		},
		Logging: logging.DefaultConfig(),
	}
}
