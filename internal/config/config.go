package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Download DownloadConfig `yaml:"download"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DownloadConfig holds acquisition settings
type DownloadConfig struct {
	// Dir is the default destination directory for results when a
	// request does not name one.
	Dir string `yaml:"dir"`

	// MediaExt is the expected extension of produced artifacts
	// (including the dot).
	MediaExt string `yaml:"media_ext"`

	// MaxActive bounds the number of simultaneously running jobs.
	MaxActive int `yaml:"max_active"`

	// TempDir is the base for per-job playlist working directories;
	// empty means the OS default.
	TempDir string `yaml:"temp_dir"`
}

// CleanupConfig holds deferred-deletion settings
type CleanupConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// JobsConfig holds job record retention settings. A zero retention
// keeps records for the process lifetime.
type JobsConfig struct {
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Download.Dir == "" {
		return fmt.Errorf("download dir is required")
	}

	if c.Download.MaxActive <= 0 {
		return fmt.Errorf("download max_active must be greater than 0")
	}

	if c.Cleanup.QueueSize <= 0 {
		return fmt.Errorf("cleanup queue_size must be greater than 0")
	}

	if c.Jobs.Retention < 0 {
		return fmt.Errorf("jobs retention must not be negative")
	}

	if c.Jobs.Retention > 0 && c.Jobs.PruneInterval <= 0 {
		return fmt.Errorf("jobs prune_interval must be greater than 0 when retention is set")
	}

	return nil
}
