package config

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			RequestTimeoutSeconds:   30,
			HandshakeTimeoutSeconds: 10,
		},
		Scope: ScopeConfig{
			DebounceMs: 800,
		},
		Notices: NoticesConfig{
			DismissSeconds: 4,
		},
		Render: RenderConfig{
			WordWrap: 100,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}

// RequireEndpoints reports a missing backend address as a configuration
// error the user can act on.
func (c *Config) RequireEndpoints() error {
	switch {
	case c.Backend.HTTPURL == "" && c.Backend.SocketURL == "":
		return &ConfigError{Message: "backend.httpUrl and backend.socketUrl are not set"}
	case c.Backend.HTTPURL == "":
		return &ConfigError{Message: "backend.httpUrl is not set"}
	case c.Backend.SocketURL == "":
		return &ConfigError{Message: "backend.socketUrl is not set"}
	}
	return nil
}

// RequestTimeout is the HTTP client timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// HandshakeTimeout bounds the socket opening handshake.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Backend.HandshakeTimeoutSeconds) * time.Second
}

// Debounce is the token verification quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Scope.DebounceMs) * time.Millisecond
}

// NoticeDismiss is the unclamped auto-dismiss delay.
func (c *Config) NoticeDismiss() time.Duration {
	return time.Duration(c.Notices.DismissSeconds) * time.Second
}
