package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

// Config holds the server settings, read from HEMA_* environment variables.
type Config struct {
	Port          string  `split_words:"true" default:"8080"`
	ModelPath     string  `split_words:"true" default:"models/best.onnx"`
	MetadataPath  string  `split_words:"true" default:"models/model_metadata.json"`
	OnnxLibPath   string  `split_words:"true"`
	StaticDir     string  `split_words:"true" default:"static"`
	ConfThreshold float32 `split_words:"true" default:"0.25"`
	IOUThreshold  float32 `split_words:"true" default:"0.7"`
	MaxUploadSize int64   `split_words:"true" default:"10485760"`
	LogLevel      string  `split_words:"true" default:"info"`
}

const prefix = "HEMA"

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	// a bare PORT wins over the default, as on most hosting platforms
	if _, set := os.LookupEnv(prefix + "_PORT"); !set {
		if port := os.Getenv("PORT"); port != "" {
			cfg.Port = port
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if c.ConfThreshold <= 0 || c.ConfThreshold >= 1 {
		return fmt.Errorf("confidence threshold must be in (0, 1), got %v", c.ConfThreshold)
	}
	if c.IOUThreshold <= 0 || c.IOUThreshold > 1 {
		return fmt.Errorf("IoU threshold must be in (0, 1], got %v", c.IOUThreshold)
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadSize)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// OutputDir is where annotated images are written. It lives under the
// static tree so the browser can fetch the result directly.
func (c *Config) OutputDir() string {
	return filepath.Join(c.StaticDir, "output")
}
