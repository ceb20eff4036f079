package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// ServerConfig represents the [server] section
type ServerConfig struct {
	// Listen is the host:port the JSON-RPC, websocket and metrics
	// endpoints are served on
	Listen string `toml:"listen" mapstructure:"listen"`

	ReadTimeout     time.Duration `toml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// RateLimit is the sustained requests per second allowed per client
	// address. Zero disables rate limiting.
	RateLimit float64 `toml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst int     `toml:"rate_burst" mapstructure:"rate_burst"`

	// MaxBodyBytes bounds a JSON-RPC request body
	MaxBodyBytes int64 `toml:"max_body_bytes" mapstructure:"max_body_bytes"`

	// SendQueueLimit is the per-connection websocket event buffer
	SendQueueLimit int `toml:"send_queue_limit" mapstructure:"send_queue_limit"`

	// Metrics exposes /metrics on the listen address
	Metrics bool `toml:"metrics" mapstructure:"metrics"`
}

// Validate validates the server configuration
func (s *ServerConfig) Validate() error {
	if s.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	host, port, err := net.SplitHostPort(s.Listen)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", s.Listen, err)
	}
	if host != "" && net.ParseIP(host) == nil && host != "localhost" {
		return fmt.Errorf("invalid listen host: %s", host)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("port number must be between 0 and 65535, got %s", port)
	}

	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.RequestTimeout < 0 || s.ShutdownTimeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate limiting is enabled")
	}
	if s.MaxBodyBytes <= 0 {
		return fmt.Errorf("max_body_bytes must be positive")
	}
	if s.SendQueueLimit <= 0 {
		return fmt.Errorf("send_queue_limit must be positive")
	}
	return nil
}
