// Package config loads runtime configuration for the shelfkeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Command-line flags explicitly set by the user, which override earlier values.
//
// Supported flags
//
//	-a, --server string            host:port of the backend gRPC endpoint
//	-w, --realtime string          websocket URL of the realtime channel
//	-d, --db string                path of the local SQLite database
//	-t, --timeout duration         per-request timeout
//	    --handshake-timeout dur    realtime dial + hello timeout
//	-l, --log-level string         debug, info, warn or error
//	    --log-format string        text or json
//
// # JSON schema
//
// The JSON loader uses timex.Duration for timeouts, so values can be either
// strings like "3s" or integer nanoseconds. Missing keys keep the default:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "realtime_url": "ws://127.0.0.1:8080/ws",
//	  "database_path": "shelfkeeper.db",
//	  "request_timeout": "10s",
//	  "handshake_timeout": "10s",
//	  "log_level": "info",
//	  "log_format": "text"
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
