package config

import "github.com/spf13/pflag"

// Flag names.
const (
	FlagConfig           = "config"
	FlagServer           = "server"
	FlagRealtime         = "realtime"
	FlagDatabase         = "db"
	FlagTimeout          = "timeout"
	FlagHandshakeTimeout = "handshake-timeout"
	FlagLogLevel         = "log-level"
	FlagLogFormat        = "log-format"
)

// RegisterFlags adds the configuration flags to fs. Defaults shown in help
// come from LoadDefaults; only flags the user sets override the config.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to JSON config file")
	fs.StringP(FlagServer, "a", d.ServerEndpointAddr, "address and port of the gRPC endpoint")
	fs.StringP(FlagRealtime, "w", d.RealtimeURL, "websocket URL of the realtime channel")
	fs.StringP(FlagDatabase, "d", d.DatabasePath, "path of the local database")
	fs.DurationP(FlagTimeout, "t", d.RequestTimeout, "per-request timeout")
	fs.Duration(FlagHandshakeTimeout, d.HandshakeTimeout, "realtime handshake timeout")
	fs.StringP(FlagLogLevel, "l", d.LogLevel, "log level (debug, info, warn, error)")
	fs.String(FlagLogFormat, d.LogFormat, "log format (text, json)")
}

// applyFlags copies every explicitly set flag into cfg.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagServer:
			cfg.ServerEndpointAddr, err = fs.GetString(f.Name)
		case FlagRealtime:
			cfg.RealtimeURL, err = fs.GetString(f.Name)
		case FlagDatabase:
			cfg.DatabasePath, err = fs.GetString(f.Name)
		case FlagTimeout:
			cfg.RequestTimeout, err = fs.GetDuration(f.Name)
		case FlagHandshakeTimeout:
			cfg.HandshakeTimeout, err = fs.GetDuration(f.Name)
		case FlagLogLevel:
			cfg.LogLevel, err = fs.GetString(f.Name)
		case FlagLogFormat:
			cfg.LogFormat, err = fs.GetString(f.Name)
		}
	})
	return err
}
