package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid. Missing
// endpoints are not issues here; RequireEndpoints reports them when a
// command actually needs the backend.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Backend validation
	if cfg.Backend.HTTPURL != "" {
		if msg := checkURL(cfg.Backend.HTTPURL, "http", "https"); msg != "" {
			issues = append(issues, ValidationIssue{Path: "backend.httpUrl", Message: msg})
		}
	}
	if cfg.Backend.SocketURL != "" {
		if msg := checkURL(cfg.Backend.SocketURL, "ws", "wss"); msg != "" {
			issues = append(issues, ValidationIssue{Path: "backend.socketUrl", Message: msg})
		}
	}
	if cfg.Backend.RequestTimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "backend.requestTimeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Backend.RequestTimeoutSeconds),
		})
	}
	if cfg.Backend.HandshakeTimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "backend.handshakeTimeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Backend.HandshakeTimeoutSeconds),
		})
	}

	// Scope validation
	if cfg.Scope.DebounceMs < 0 || cfg.Scope.DebounceMs > 10000 {
		issues = append(issues, ValidationIssue{
			Path:    "scope.debounceMs",
			Message: fmt.Sprintf("must be 0-10000, got %d", cfg.Scope.DebounceMs),
		})
	}

	// Notices validation
	if cfg.Notices.DismissSeconds != 0 && (cfg.Notices.DismissSeconds < 3 || cfg.Notices.DismissSeconds > 5) {
		issues = append(issues, ValidationIssue{
			Path:    "notices.dismissSeconds",
			Message: fmt.Sprintf("must be 3-5, got %d", cfg.Notices.DismissSeconds),
		})
	}

	// Render validation
	if cfg.Render.WordWrap < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "render.wordWrap",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Render.WordWrap),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}

func checkURL(raw string, schemes ...string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("not a valid URL: %v", err)
	}
	if !slices.Contains(schemes, u.Scheme) {
		return fmt.Sprintf("scheme must be one of %v, got %q", schemes, u.Scheme)
	}
	if u.Host == "" {
		return "missing host"
	}
	return ""
}
