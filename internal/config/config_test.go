package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gointake.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"schema": {"url": "https://intake.example.com/schema.json"},
		"draft": {"backend": "sqlite", "path": "/var/lib/gointake/drafts.db"},
		"autosave": {"delayMs": 500}
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path())
	assert.Equal(t, "https://intake.example.com/schema.json", cfg.Schema.URL)
	assert.Equal(t, "intake.schema.json", cfg.Schema.Path)
	assert.Equal(t, "sqlite", cfg.Draft.Backend)
	assert.Equal(t, "legal_intake_draft", cfg.Draft.Key)
	assert.Equal(t, 500, cfg.Autosave.DelayMs)
	assert.Equal(t, 25, cfg.Uploads.MaxSizeMB)
	assert.NotEmpty(t, cfg.Uploads.Accept)
}

func TestLoadTOMLExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "gointake.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[uploads]
dir = "~/intake-files"
maxSizeMB = 5

[logging]
level = "debug"
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "intake-files"), cfg.Uploads.Dir)
	assert.Equal(t, 5, cfg.Uploads.MaxSizeMB)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(home, ".gointake", "drafts"), cfg.Draft.Path)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema":`), 0600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestSaveKeepsBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gointake.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"autosave":{"delayMs":100}}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	cfg.Autosave.DelayMs = 900
	require.NoError(t, cfg.Save(""))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 900, reloaded.Autosave.DelayMs)
	assert.FileExists(t, path+".bak")

	assert.Error(t, cfg.Save(filepath.Join(t.TempDir(), "out.toml")))
}
