package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ipdrop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
instance_id: test-instance
service:
  name: ipdrop_test
  display_name: IP Drop Test
  auto_start: true
store:
  driver: memory
log:
  level: debug
  max_size: 5
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "test-instance", cfg.InstanceID)
	assert.Equal(t, "ipdrop_test", cfg.Service.Name)
	assert.Equal(t, "IP Drop Test", cfg.Service.DisplayName)
	assert.Equal(t, DefaultDescription, cfg.Service.Description)
	assert.True(t, cfg.Service.AutoStart)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 5, cfg.Log.MaxSize)
	assert.Equal(t, 3, cfg.Log.MaxBackups)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: etcd\n"},
		{"bad service name", "service:\n  name: \"bad name\"\n"},
		{"bad log level", "log:\n  level: chatty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotEmpty(t, cfg.InstanceID)
	assert.Equal(t, DefaultServiceName, cfg.Service.Name)
	assert.Equal(t, DefaultDisplayName, cfg.Service.DisplayName)
	assert.Equal(t, "info", cfg.Log.Level)

	if runtime.GOOS == "windows" {
		assert.Equal(t, "registry", cfg.Store.Driver)
	} else {
		assert.Equal(t, "sqlite", cfg.Store.Driver)
		assert.Equal(t, DefaultServiceName+".settings.db", filepath.Base(cfg.Store.Path))
	}

	assert.NotEqual(t, cfg.InstanceID, Default().InstanceID)
}
