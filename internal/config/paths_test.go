package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ParseConfigPath extended tests ---

func TestParseConfigPath_Extended(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr bool
	}{
		{"single segment", "backend", []string{"backend"}, false},
		{"two segments", "backend.token", []string{"backend", "token"}, false},
		{"three segments", "a.b.c", []string{"a", "b", "c"}, false},
		{"empty", "", nil, true},
		{"empty segment", "backend..token", nil, true},
		{"leading dot", ".backend", nil, true},
		{"trailing dot", "backend.", nil, true},
		{"blocked __proto__", "foo.__proto__.bar", nil, true},
		{"blocked prototype", "prototype.x", nil, true},
		{"blocked constructor", "constructor", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseConfigPath(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				var ce *ConfigError
				assert.ErrorAs(t, err, &ce)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// --- GetValueAtPath extended tests ---

func TestGetValueAtPath_Extended(t *testing.T) {
	root := map[string]any{
		"backend": map[string]any{
			"requestTimeoutSeconds": 30,
			"tls": map[string]any{
				"verify": "strict",
			},
		},
		"simple": "value",
	}

	tests := []struct {
		name string
		path []string
		want any
		ok   bool
	}{
		{"nested value", []string{"backend", "requestTimeoutSeconds"}, 30, true},
		{"deeply nested", []string{"backend", "tls", "verify"}, "strict", true},
		{"top level", []string{"simple"}, "value", true},
		{"missing key", []string{"nonexistent"}, nil, false},
		{"missing nested", []string{"backend", "nonexistent"}, nil, false},
		{"non-map intermediate", []string{"simple", "sub"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, ok := GetValueAtPath(root, tt.path)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, val)
			}
		})
	}
}

// --- SetValueAtPath extended tests ---

func TestSetValueAtPath_Update(t *testing.T) {
	root := map[string]any{
		"backend": map[string]any{
			"requestTimeoutSeconds": 30,
		},
	}

	SetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"}, 45)
	val, ok := GetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"})
	assert.True(t, ok)
	assert.Equal(t, 45, val)
}

func TestSetValueAtPath_CreatesIntermediates(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"a", "b", "c"}, "deep")
	val, ok := GetValueAtPath(root, []string{"a", "b", "c"})
	assert.True(t, ok)
	assert.Equal(t, "deep", val)
}

func TestSetValueAtPath_OverwritesNonMap(t *testing.T) {
	root := map[string]any{
		"backend": "string-not-map",
	}

	SetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"}, 15)
	val, ok := GetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"})
	assert.True(t, ok)
	assert.Equal(t, 15, val)
}

func TestSetValueAtPath_SingleKey(t *testing.T) {
	root := map[string]any{}

	SetValueAtPath(root, []string{"version"}, "1.0.0")
	assert.Equal(t, "1.0.0", root["version"])
}

// --- UnsetValueAtPath extended tests ---

func TestUnsetValueAtPath_PreserveSiblings(t *testing.T) {
	root := map[string]any{
		"backend": map[string]any{
			"requestTimeoutSeconds": 30,
			"verify": "on",
		},
	}

	ok := UnsetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"})
	assert.True(t, ok)

	_, found := GetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"})
	assert.False(t, found)

	val, found := GetValueAtPath(root, []string{"backend", "verify"})
	assert.True(t, found)
	assert.Equal(t, "on", val)
}

func TestUnsetValueAtPath_NotFound(t *testing.T) {
	root := map[string]any{
		"backend": map[string]any{
			"requestTimeoutSeconds": 30,
		},
	}

	ok := UnsetValueAtPath(root, []string{"backend", "nonexistent"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath_MissingIntermediate(t *testing.T) {
	root := map[string]any{}
	ok := UnsetValueAtPath(root, []string{"a", "b", "c"})
	assert.False(t, ok)
}

func TestUnsetValueAtPath_NonMapIntermediate(t *testing.T) {
	root := map[string]any{
		"backend": "string",
	}
	ok := UnsetValueAtPath(root, []string{"backend", "requestTimeoutSeconds"})
	assert.False(t, ok)
}

// --- ResolvePaths tests ---

func TestResolvePaths_AllFields(t *testing.T) {
	t.Setenv("AGENTCHAT_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".agentchat"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".agentchat", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".agentchat", "logs"), paths.Logs)
	assert.Equal(t, filepath.Join(home, ".agentchat", "logs", "agentchat.log"), paths.LogFile)
	assert.Equal(t, filepath.Join(home, ".agentchat", "history"), paths.History)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("AGENTCHAT_HOME", "/tmp/agentchat-test")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/agentchat-test", paths.Base)
	assert.Equal(t, "/tmp/agentchat-test/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/agentchat-test/logs", paths.Logs)
	assert.Equal(t, "/tmp/agentchat-test/logs/agentchat.log", paths.LogFile)
	assert.Equal(t, "/tmp/agentchat-test/history", paths.History)
}

func TestEnsureDirs_CreatesAll(t *testing.T) {
	t.Setenv("AGENTCHAT_HOME", filepath.Join(t.TempDir(), "home"))

	paths, err := ResolvePaths()
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.Base, paths.Logs} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestEnsureDirs_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	paths := Paths{
		Base: tmpDir,
		Logs: filepath.Join(tmpDir, "logs"),
	}

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs()) // second call should succeed
}

// --- blockedKeys tests ---

func TestBlockedKeys(t *testing.T) {
	assert.True(t, blockedKeys["__proto__"])
	assert.True(t, blockedKeys["prototype"])
	assert.True(t, blockedKeys["constructor"])
	assert.False(t, blockedKeys["backend"])
	assert.False(t, blockedKeys["token"])
}
