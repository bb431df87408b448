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
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Postgres.BatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "noshow", cfg.Metrics.Job)
	assert.True(t, cfg.Output.Charts)
	assert.False(t, cfg.Input.Strict)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeFile(t, dir, "noshow.yaml", `
input:
  file: from-yaml.csv
  strict: true
postgres:
  batch_size: 100
log:
  level: debug
`)
	t.Setenv("NOSHOW_POSTGRES_BATCH_SIZE", "250")
	t.Setenv("NOSHOW_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml.csv", cfg.Input.File)
	assert.True(t, cfg.Input.Strict)
	assert.Equal(t, 250, cfg.Postgres.BatchSize, "env overrides yaml")
	assert.Equal(t, "debug", cfg.Log.Level, "yaml overrides defaults")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	writeFile(t, dir, ".env", "NOSHOW_OUTPUT_PARQUET=derived.parquet\n")
	t.Cleanup(func() { os.Unsetenv("NOSHOW_OUTPUT_PARQUET") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "derived.parquet", cfg.Output.Parquet)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"batch size", "postgres:\n  batch_size: 0\n", "BatchSize"},
		{"log format", "log:\n  format: xml\n", "Format"},
		{"pushgateway url", "metrics:\n  pushgateway: not a url\n", "Pushgateway"},
		{"job required", "metrics:\n  pushgateway: http://localhost:9091\n  job: \"\"\n", "Job"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, "bad.yaml", tt.yaml)
			_, err := Load(path)
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.ErrorContains(t, err, "open config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "postgres.batch_size", envKey("NOSHOW_POSTGRES_BATCH_SIZE"))
	assert.Equal(t, "input.file", envKey("NOSHOW_INPUT_FILE"))
	assert.Equal(t, "metrics.pushgateway", envKey("NOSHOW_METRICS_PUSHGATEWAY"))
}
