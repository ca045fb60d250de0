package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Config holds runtime settings for the shelfkeeper CLI.
type Config struct {
	ServerEndpointAddr string
	RealtimeURL        string
	DatabasePath       string
	RequestTimeout     time.Duration
	HandshakeTimeout   time.Duration
	LogLevel           string
	LogFormat          string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.RealtimeURL = "ws://127.0.0.1:8080/ws"
	c.DatabasePath = "shelfkeeper.db"
	c.RequestTimeout = 10 * time.Second
	c.HandshakeTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Load builds a Config from defaults, then the JSON file named by the
// config flag (if any), then every flag the user set on fs.
// fs must have been prepared with RegisterFlags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	path, err := fs.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerEndpointAddr == "" {
		return fmt.Errorf("config: empty server address")
	}
	if c.RealtimeURL == "" {
		return fmt.Errorf("config: empty realtime url")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("config: empty database path")
	}
	if c.RequestTimeout < 0 || c.HandshakeTimeout < 0 {
		return fmt.Errorf("config: negative timeout")
	}
	return nil
}
