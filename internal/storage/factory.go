package storage

import "fmt"

// Config selects and configures the storage adapter
type Config struct {
	Adapter string      `yaml:"adapter" json:"adapter"`
	Local   LocalConfig `yaml:"local" json:"local"`
	S3      S3Options   `yaml:"s3" json:"s3"`
}

// LocalConfig configures the local filesystem adapter
type LocalConfig struct {
	BasePath string `yaml:"base_path" json:"base_path"`
}

// NewAdapter creates a new storage adapter based on the configuration
func NewAdapter(cfg Config) (Adapter, error) {
	switch cfg.Adapter {
	case AdapterLocal:
		return NewLocalAdapter(cfg.Local.BasePath)
	case AdapterS3:
		return NewS3Adapter(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Adapter)
	}
}
