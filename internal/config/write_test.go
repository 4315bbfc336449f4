package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetKey_CreatesFromTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	require.NoError(t, SetKey(path, "username", "jdoe"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `username = "jdoe"`)
	assert.NotContains(t, string(data), `# username = ""`, "template line replaced in place")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", cfg.Username)
	assert.Equal(t, defaultHost, cfg.Host)
}

func TestSetKey_ReplacesExisting(t *testing.T) {
	path := writeTestConfig(t, "host = \"old.example\"\nusername = \"a\"\n\n[headers]\nX-A = \"1\"\n")

	require.NoError(t, SetKey(path, "host", "new.example"))
	require.NoError(t, SetKey(path, "strict_errors", "true"))
	require.NoError(t, SetKey(path, "report_max_retries", "5"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "new.example", cfg.Host)
	assert.True(t, cfg.StrictErrors)
	assert.Equal(t, 5, cfg.ReportMaxRetries)
	assert.Equal(t, "1", cfg.Headers["X-A"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "host ="))
	assert.Less(t, strings.Index(string(data), "strict_errors"), strings.Index(string(data), "[headers]"),
		"inserted before the first table")
}

func TestSetKey_Unknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	require.Error(t, SetKey(path, "hostname", "x"))
	require.Error(t, SetKey(path, "headers", "x"))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFormatTOMLValue(t *testing.T) {
	assert.Equal(t, "true", formatTOMLValue("true"))
	assert.Equal(t, "42", formatTOMLValue("42"))
	assert.Equal(t, `"1s"`, formatTOMLValue("1s"))
	assert.Equal(t, `""`, formatTOMLValue(""))
}
