package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ValidDefaults(t *testing.T) {
	cfg := Defaults()
	issues := Validate(&cfg)
	assert.Empty(t, issues)
}

func TestValidate_ValidEndpoints(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.HTTPURL = "https://agents.example.com"
	cfg.Backend.SocketURL = "wss://agents.example.com/ws"
	assert.Empty(t, Validate(&cfg))

	cfg.Backend.HTTPURL = "http://localhost:8000"
	cfg.Backend.SocketURL = "ws://localhost:8000/ws"
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_WrongSchemes(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.HTTPURL = "wss://agents.example.com"
	cfg.Backend.SocketURL = "https://agents.example.com/ws"

	issues := Validate(&cfg)
	assert.Len(t, issues, 2)
	assert.Equal(t, "backend.httpUrl", issues[0].Path)
	assert.Equal(t, "backend.socketUrl", issues[1].Path)
}

func TestValidate_MissingHost(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.HTTPURL = "https://"
	issues := Validate(&cfg)
	assert.Len(t, issues, 1)
	assert.Equal(t, "missing host", issues[0].Message)
}

func TestValidate_NegativeTimeouts(t *testing.T) {
	cfg := Defaults()
	cfg.Backend.RequestTimeoutSeconds = -1
	cfg.Backend.HandshakeTimeoutSeconds = -1
	assert.Len(t, Validate(&cfg), 2)
}

func TestValidate_Debounce(t *testing.T) {
	cfg := Defaults()
	cfg.Scope.DebounceMs = -5
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Equal(t, "scope.debounceMs", issues[0].Path)

	cfg.Scope.DebounceMs = 20000
	assert.NotEmpty(t, Validate(&cfg))

	cfg.Scope.DebounceMs = 0
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_DismissSeconds(t *testing.T) {
	for _, v := range []int{0, 3, 4, 5} {
		cfg := Defaults()
		cfg.Notices.DismissSeconds = v
		assert.Empty(t, Validate(&cfg), "dismissSeconds %d should be valid", v)
	}
	for _, v := range []int{1, 6, -1} {
		cfg := Defaults()
		cfg.Notices.DismissSeconds = v
		assert.NotEmpty(t, Validate(&cfg), "dismissSeconds %d should be invalid", v)
	}
}

func TestValidate_WordWrap(t *testing.T) {
	cfg := Defaults()
	cfg.Render.WordWrap = -1
	issues := Validate(&cfg)
	assert.Len(t, issues, 1)
	assert.Equal(t, "render.wordWrap", issues[0].Path)
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "verbose"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "logging.level")
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"silent", "error", "warn", "info", "debug", "trace", ""} {
		cfg := Defaults()
		cfg.Logging.Level = level
		assert.Empty(t, Validate(&cfg), "level %q should be valid", level)
	}
}

func TestValidate_InvalidConsoleStyle(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.ConsoleStyle = "fancy"
	issues := Validate(&cfg)
	assert.NotEmpty(t, issues)
	assert.Contains(t, issues[0].Path, "logging.consoleStyle")
}

func TestValidate_ValidConsoleStyles(t *testing.T) {
	for _, style := range []string{"pretty", "compact", "json", ""} {
		cfg := Defaults()
		cfg.Logging.ConsoleStyle = style
		assert.Empty(t, Validate(&cfg), "style %q should be valid", style)
	}
}

func TestValidate_MultipleIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Logging.Level = "bogus"
	cfg.Logging.ConsoleStyle = "bogus"
	cfg.Scope.DebounceMs = -1
	issues := Validate(&cfg)
	assert.Len(t, issues, 3)
}

func TestValidationIssueString(t *testing.T) {
	issue := ValidationIssue{Path: "backend.httpUrl", Message: "missing host"}
	assert.Equal(t, "backend.httpUrl: missing host", issue.String())
}
