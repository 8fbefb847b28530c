package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
				assert.Equal(t, "/tmp/downloads", cfg.Download.Dir)
				assert.Equal(t, ".mp4", cfg.Download.MediaExt)
				assert.Equal(t, 4, cfg.Download.MaxActive)
				assert.Equal(t, 128, cfg.Cleanup.QueueSize)
				assert.Equal(t, 24*time.Hour, cfg.Jobs.Retention)
				assert.Equal(t, 10*time.Minute, cfg.Jobs.PruneInterval)
				assert.Equal(t, "media-fetch-api", cfg.App.Name)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		Download: DownloadConfig{
			Dir:       "/tmp/downloads",
			MediaExt:  ".mp4",
			MaxActive: 4,
		},
		Cleanup: CleanupConfig{QueueSize: 128},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "missing download dir",
			mutate:    func(c *Config) { c.Download.Dir = "" },
			wantErr:   true,
			errString: "download dir is required",
		},
		{
			name:      "non-positive max_active",
			mutate:    func(c *Config) { c.Download.MaxActive = 0 },
			wantErr:   true,
			errString: "max_active must be greater than 0",
		},
		{
			name:      "non-positive cleanup queue size",
			mutate:    func(c *Config) { c.Cleanup.QueueSize = 0 },
			wantErr:   true,
			errString: "queue_size must be greater than 0",
		},
		{
			name:      "negative retention",
			mutate:    func(c *Config) { c.Jobs.Retention = -time.Hour },
			wantErr:   true,
			errString: "retention must not be negative",
		},
		{
			name:      "retention without prune interval",
			mutate:    func(c *Config) { c.Jobs.Retention = time.Hour },
			wantErr:   true,
			errString: "prune_interval must be greater than 0",
		},
		{
			name: "retention with prune interval",
			mutate: func(c *Config) {
				c.Jobs.Retention = time.Hour
				c.Jobs.PruneInterval = time.Minute
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
