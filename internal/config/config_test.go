package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/admin", cfg.RootURL)
	assert.Equal(t, "append", cfg.PathMode)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "adminkit.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("port: \"9000\"\npathMode: query\ncacheModels: false\n"), 0o644))
	cfg, err := Load(yml)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "query", cfg.PathMode)
	assert.False(t, cfg.CacheModels)
	assert.Equal(t, "/admin", cfg.RootURL)

	js := filepath.Join(dir, "adminkit.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"dbDriver": "mysql", "dbUrl": "u:p@tcp(db)/x"}`), 0o644))
	cfg, err = Load(js)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "u:p@tcp(db)/x", cfg.DBURL)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestEnvAndFlags(t *testing.T) {
	t.Setenv("ADMINKIT_PORT", "7000")
	t.Setenv("ADMINKIT_CREATE_TABLES", "yes")
	t.Setenv("ADMINKIT_TITLE", "  ")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
	assert.True(t, cfg.CreateTables)
	assert.Equal(t, "Admin", cfg.Title)

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "7100", "--create-tables=false", "--log-format", "json"}))
	flags.Apply(&cfg)
	assert.Equal(t, "7100", cfg.Port)
	assert.False(t, cfg.CreateTables)
	assert.Equal(t, "json", cfg.LogFormat)
	// не заданный флаг не перетирает значение
	assert.Equal(t, "/admin", cfg.RootURL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.PathMode = "hash"
	assert.ErrorContains(t, cfg.Validate(), "PathMode")

	cfg = Default()
	cfg.DBDriver = "oracle"
	assert.ErrorContains(t, cfg.Validate(), "DBDriver")

	cfg = Default()
	cfg.RootURL = "admin"
	assert.ErrorContains(t, cfg.Validate(), "RootURL")
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"
	log := cfg.Logger(&buf)
	log.Info("hidden")
	log.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":1`)
}
