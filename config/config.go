package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Listen string `toml:"listen"`
}

// ArchiveConfig configures the outbound fetch of work pages
type ArchiveConfig struct {
	BaseURL   string        `toml:"base_url"`
	Timeout   time.Duration `toml:"timeout"`
	UserAgent string        `toml:"user_agent"`
}

// StreamConfig configures the keep-alive stream
type StreamConfig struct {
	KeepAliveInterval time.Duration `toml:"keepalive_interval"`
}

// FeedConfig controls feed assembly
type FeedConfig struct {
	Sanitize  bool   `toml:"sanitize"`
	Generator string `toml:"generator"`
}

// LogConfig controls logrus output
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Config represents the top-level configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Archive ArchiveConfig `toml:"archive"`
	Stream  StreamConfig  `toml:"stream"`
	Feed    FeedConfig    `toml:"feed"`
	Log     LogConfig     `toml:"log"`
}

const (
	DefaultListen            = "127.0.0.1:3336"
	DefaultBaseURL           = "https://archiveofourown.org"
	DefaultTimeout           = 30 * time.Second
	DefaultKeepAliveInterval = time.Second
	DefaultGenerator         = "https://github.com/kitlith/ao3rss_rs"
	DefaultUserAgent         = "ao3rss (+https://github.com/kitlith/ao3rss_rs)"
)

// Default returns a configuration usable without any config file
func Default() *Config {
	return &Config{
		Server: ServerConfig{Listen: DefaultListen},
		Archive: ArchiveConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   DefaultTimeout,
			UserAgent: DefaultUserAgent,
		},
		Stream: StreamConfig{KeepAliveInterval: DefaultKeepAliveInterval},
		Feed: FeedConfig{
			Sanitize:  true,
			Generator: DefaultGenerator,
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a TOML file on top of the defaults. Keys missing from the
// file keep their default value.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects values the server cannot run with
func (c *Config) Validate() error {
	if c.Archive.BaseURL == "" {
		return fmt.Errorf("archive.base_url must not be empty")
	}
	if c.Archive.Timeout <= 0 {
		return fmt.Errorf("archive.timeout must be positive, got %s", c.Archive.Timeout)
	}
	if c.Stream.KeepAliveInterval <= 0 {
		return fmt.Errorf("stream.keepalive_interval must be positive, got %s", c.Stream.KeepAliveInterval)
	}
	return nil
}
