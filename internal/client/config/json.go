package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/shelfkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// Pointer fields tell a missing key apart from an empty value.
type JsonConfig struct {
	ServerEndpointAddr *string         `json:"server_endpoint_addr"`
	RealtimeURL        *string         `json:"realtime_url"`
	DatabasePath       *string         `json:"database_path"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	HandshakeTimeout   *timex.Duration `json:"handshake_timeout"`
	LogLevel           *string         `json:"log_level"`
	LogFormat          *string         `json:"log_format"`
}

// parseJSON overlays cfg with the keys present in the JSON file at path.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerEndpointAddr != nil {
		cfg.ServerEndpointAddr = *jc.ServerEndpointAddr
	}
	if jc.RealtimeURL != nil {
		cfg.RealtimeURL = *jc.RealtimeURL
	}
	if jc.DatabasePath != nil {
		cfg.DatabasePath = *jc.DatabasePath
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.HandshakeTimeout != nil {
		cfg.HandshakeTimeout = jc.HandshakeTimeout.Duration
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	if jc.LogFormat != nil {
		cfg.LogFormat = *jc.LogFormat
	}
	return nil
}
