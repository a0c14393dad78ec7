package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `{
		"api_key": "test-key",
		"database_url": "postgres://localhost/advisor",
		"port": 8080,
		"max_qna_turns": 10,
		"advanced_model": "gemini-2.5-pro"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, "postgres://localhost/advisor", cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.MaxQnATurns)
	assert.Equal(t, "gemini-2.5-pro", cfg.AdvancedModel)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := writeConfigFile(t, `{not json`)
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Port: 8080, MaxQnATurns: 10}
	assert.NoError(t, cfg.Validate())

	cfg = &Config{Port: 70000}
	assert.Error(t, cfg.Validate())

	cfg = &Config{MaxQnATurns: -1}
	assert.Error(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{APIKey: "from-file"}
	merged := cfg.MergeWithDefaults(Config{
		APIKey:      "default-key",
		DatabaseURL: "postgres://localhost/advisor",
		Port:        8080,
		MaxQnATurns: 25,
	})

	assert.Equal(t, "from-file", merged.APIKey, "explicit value wins")
	assert.Equal(t, "postgres://localhost/advisor", merged.DatabaseURL)
	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, 25, merged.MaxQnATurns)
}
