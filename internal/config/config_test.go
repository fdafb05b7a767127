package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, "warning", cfg.Log.Level)
	assert.Equal(t, DefaultDB, cfg.Index.DB)
	assert.Equal(t, 0, cfg.Index.Workers)
	assert.False(t, cfg.Export.Compress)
	assert.Equal(t, "alnav", cfg.Serve.Name)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.File)
	assert.Equal(t, DefaultDB, cfg.Index.DB)
	assert.Equal(t, "alnav", cfg.Serve.Name)
	assert.Empty(t, cfg.Index.SkipDirs)
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "alnav.yaml", `
log:
  level: debug
index:
  db: out/al.db
  workers: 3
  skip_dirs: [archive, generated]
export:
  compress: true
serve:
  name: al-ls
`)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "out/al.db", cfg.Index.DB)
	assert.Equal(t, 3, cfg.Index.Workers)
	assert.Equal(t, []string{"archive", "generated"}, cfg.Index.SkipDirs)
	assert.True(t, cfg.Export.Compress)
	assert.Equal(t, "al-ls", cfg.Serve.Name)
}

func TestLoad_HiddenFileAndPartialKeys(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, ".alnav.yaml", "index:\n  workers: 2\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, DefaultDB, cfg.Index.DB, "unset keys keep their defaults")
}

func TestLoad_FirstDirectoryWins(t *testing.T) {
	t.Parallel()
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "alnav.yaml", "serve:\n  name: first\n")
	writeFile(t, second, "alnav.yaml", "serve:\n  name: second\n")

	cfg, err := Load(first, second)
	require.NoError(t, err)
	assert.Equal(t, "first", cfg.Serve.Name)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alnav.yaml", "log:\n  level: info\n")
	t.Setenv("ALNAV_LOG_LEVEL", "error")
	t.Setenv("ALNAV_INDEX_WORKERS", "7")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Index.Workers)
}

func TestLoad_Malformed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "alnav.yaml", "index: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative workers", func(c *Config) { c.Index.Workers = -1 }, true},
		{"empty db", func(c *Config) { c.Index.DB = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
