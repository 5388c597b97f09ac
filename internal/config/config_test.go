package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 30, cfg.Backend.RequestTimeoutSeconds)
	assert.Equal(t, 10, cfg.Backend.HandshakeTimeoutSeconds)
	assert.Equal(t, 800, cfg.Scope.DebounceMs)
	assert.Equal(t, 4, cfg.Notices.DismissSeconds)
	assert.Equal(t, 100, cfg.Render.WordWrap)
	assert.True(t, cfg.Render.MarkdownEnabled())
	assert.False(t, cfg.Speech.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "pretty", cfg.Logging.ConsoleStyle)
}

func TestDurations(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 10*time.Second, cfg.HandshakeTimeout())
	assert.Equal(t, 800*time.Millisecond, cfg.Debounce())
	assert.Equal(t, 4*time.Second, cfg.NoticeDismiss())
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	// Should return defaults
	assert.Equal(t, 800, cfg.Scope.DebounceMs)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
backend:
  httpUrl: https://agents.example.com
  socketUrl: wss://agents.example.com/ws
  requestTimeoutSeconds: 5
scope:
  debounceMs: 300
render:
  markdown: false
  wordWrap: 72
speech:
  enabled: true
  command: espeak
logging:
  level: debug
  consoleStyle: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://agents.example.com", cfg.Backend.HTTPURL)
	assert.Equal(t, "wss://agents.example.com/ws", cfg.Backend.SocketURL)
	assert.Equal(t, 5, cfg.Backend.RequestTimeoutSeconds)
	assert.Equal(t, 10, cfg.Backend.HandshakeTimeoutSeconds)
	assert.Equal(t, 300, cfg.Scope.DebounceMs)
	assert.Equal(t, 4, cfg.Notices.DismissSeconds)
	assert.False(t, cfg.Render.MarkdownEnabled())
	assert.Equal(t, 72, cfg.Render.WordWrap)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "espeak", cfg.Speech.Command)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.ConsoleStyle)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("AGENTCHAT_HTTP_URL", "http://localhost:8000")
	t.Setenv("AGENTCHAT_SOCKET_URL", "ws://localhost:8000/ws")
	t.Setenv("AGENTCHAT_TIMEOUT_SECONDS", "12")
	t.Setenv("AGENTCHAT_LOG_LEVEL", "DEBUG")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.HTTPURL)
	assert.Equal(t, "ws://localhost:8000/ws", cfg.Backend.SocketURL)
	assert.Equal(t, 12, cfg.Backend.RequestTimeoutSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadExpandsToken(t *testing.T) {
	t.Setenv("AGENTCHAT_TEST_TOKEN", "s3cret")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  token: ${AGENTCHAT_TEST_TOKEN}\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Backend.Token)
}

func TestExpandEnvVarsLeavesUnsetAlone(t *testing.T) {
	assert.Equal(t, "${AGENTCHAT_SURELY_UNSET_VAR}", expandEnvVars("${AGENTCHAT_SURELY_UNSET_VAR}"))
}

func TestRequireEndpoints(t *testing.T) {
	cfg := Defaults()
	err := cfg.RequireEndpoints()
	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "httpUrl and backend.socketUrl")

	cfg.Backend.HTTPURL = "https://x"
	require.ErrorAs(t, cfg.RequireEndpoints(), &ce)
	assert.Contains(t, ce.Message, "socketUrl")

	cfg.Backend.HTTPURL = ""
	cfg.Backend.SocketURL = "wss://x/ws"
	require.ErrorAs(t, cfg.RequireEndpoints(), &ce)
	assert.Contains(t, ce.Message, "httpUrl")

	cfg.Backend.HTTPURL = "https://x"
	assert.NoError(t, cfg.RequireEndpoints())
}

func TestConfigErrorString(t *testing.T) {
	assert.Equal(t, "config: boom", (&ConfigError{Message: "boom"}).Error())
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 30, ParseValue("30"))
	assert.Equal(t, true, ParseValue("true"))
	assert.Equal(t, "wss://host/ws", ParseValue("wss://host/ws"))
	assert.Equal(t, "", ParseValue(""))
	assert.Equal(t, "[a, b]", ParseValue("[a, b]"))
}

func TestParseConfigPath(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"backend.httpUrl", []string{"backend", "httpUrl"}, false},
		{"render.wordWrap", []string{"render", "wordWrap"}, false},
		{"", nil, true},
		{"a..b", nil, true},
		{"__proto__.x", nil, true},
		{"x.constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestGetSetValueAtPath(t *testing.T) {
	root := map[string]any{
		"scope": map[string]any{
			"debounceMs": 800,
		},
	}

	val, ok := GetValueAtPath(root, []string{"scope", "debounceMs"})
	assert.True(t, ok)
	assert.Equal(t, 800, val)

	_, ok = GetValueAtPath(root, []string{"scope", "missing"})
	assert.False(t, ok)

	SetValueAtPath(root, []string{"scope", "debounceMs"}, 500)
	val, ok = GetValueAtPath(root, []string{"scope", "debounceMs"})
	assert.True(t, ok)
	assert.Equal(t, 500, val)

	SetValueAtPath(root, []string{"backend", "socketUrl"}, "wss://x/ws")
	val, ok = GetValueAtPath(root, []string{"backend", "socketUrl"})
	assert.True(t, ok)
	assert.Equal(t, "wss://x/ws", val)
}

func TestLoadRawAndSaveRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	raw := map[string]any{
		"render": map[string]any{
			"wordWrap": 80,
		},
	}

	require.NoError(t, SaveRaw(path, raw))

	loaded, err := LoadRaw(path)
	require.NoError(t, err)

	val, ok := GetValueAtPath(loaded, []string{"render", "wordWrap"})
	assert.True(t, ok)
	assert.Equal(t, 80, val)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Render.WordWrap)
}

func TestLoadRawMissingAndEmpty(t *testing.T) {
	raw, err := LoadRaw("/nonexistent/config.yaml")
	require.NoError(t, err)
	assert.Empty(t, raw)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	raw, err = LoadRaw(path)
	require.NoError(t, err)
	assert.NotNil(t, raw)
}
