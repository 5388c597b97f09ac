package config

// Config is the root configuration for agentchat.
type Config struct {
	Backend BackendConfig `yaml:"backend,omitempty"`
	Scope   ScopeConfig   `yaml:"scope,omitempty"`
	Notices NoticesConfig `yaml:"notices,omitempty"`
	Render  RenderConfig  `yaml:"render,omitempty"`
	Speech  SpeechConfig  `yaml:"speech,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// BackendConfig locates the agent backend.
type BackendConfig struct {
	HTTPURL                 string `yaml:"httpUrl,omitempty"`
	SocketURL               string `yaml:"socketUrl,omitempty"`
	Token                   string `yaml:"token,omitempty"` // may reference ${ENV_VAR}
	RequestTimeoutSeconds   int    `yaml:"requestTimeoutSeconds,omitempty"`
	HandshakeTimeoutSeconds int    `yaml:"handshakeTimeoutSeconds,omitempty"`
}

// ScopeConfig tunes token verification.
type ScopeConfig struct {
	DebounceMs int `yaml:"debounceMs,omitempty"`
}

// NoticesConfig tunes transient notices.
type NoticesConfig struct {
	DismissSeconds int `yaml:"dismissSeconds,omitempty"` // clamped to 3-5
}

// RenderConfig controls terminal output.
type RenderConfig struct {
	Markdown *bool `yaml:"markdown,omitempty"`
	WordWrap int   `yaml:"wordWrap,omitempty"`
}

// MarkdownEnabled reports whether answers are rendered as markdown.
// Unset means enabled.
func (r RenderConfig) MarkdownEnabled() bool {
	return r.Markdown == nil || *r.Markdown
}

// SpeechConfig controls spoken output.
type SpeechConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Command string `yaml:"command,omitempty"` // empty auto-detects
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
