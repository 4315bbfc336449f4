package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// configFilePermissions is the standard permission mode for config files.
const configFilePermissions = 0o644

// configDirPermissions is the standard permission mode for config directories.
const configDirPermissions = 0o755

// configTemplate is written on first login. Every setting is present as a
// commented-out default so users can discover options without docs. Later
// edits are line-level and keep user changes.
const configTemplate = `# ultradns-go configuration

# API host. Use test-api.ultradns.net for the test environment.
# host = "api.ultradns.com"

# Account user. The password is never stored; set ULTRADNS_GO_PASSWORD or
# answer the login prompt.
# username = ""

# Plain HTTP, only for local test servers.
# use_http = false

# Outgoing proxy (http, https, or socks5 URL).
# proxy = ""

# Per-request timeout; "0" disables it.
# request_timeout = "60s"

# Fail on HTTP errors instead of printing the error body.
# strict_errors = false

# Wait between polls of tasks and reports.
# poll_interval = "1s"

# Give up on a report after this many polls; 0 waits forever.
# report_max_retries = 0

# Log verbosity: debug, info, warn, error
# log_level = "warn"

# Log format: auto, text, json
# log_format = "auto"

# Session and operation ledger locations (default: platform data dir).
# token_file = ""
# ledger_file = ""

# Extra headers sent with every request.
# [headers]
# X-Example = "value"
`

// SetKey sets a top-level key in the config file, creating the file from
// the template when it does not exist. An existing assignment (or its
// commented-out template line) is replaced in place; otherwise the key is
// inserted before the first table. Booleans are written bare, everything
// else quoted.
func SetKey(path, key, value string) error {
	if !knownKeys[key] || key == headersTable {
		return fmt.Errorf("config: cannot set unknown key %q", key)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data = []byte(configTemplate)
	} else if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	lines = setTopLevelKey(lines, key, key+" = "+formatTOMLValue(value))

	return atomicWriteFile(path, []byte(strings.Join(lines, "\n")))
}

// setTopLevelKey replaces the key's line among the top-level assignments,
// preferring a live assignment over a commented template line.
func setTopLevelKey(lines []string, key, newLine string) []string {
	end := firstTableLine(lines)
	commented := -1

	for i := range end {
		trimmed := strings.TrimSpace(lines[i])

		if assignsKey(trimmed, key) {
			lines[i] = newLine
			return lines
		}

		if commented < 0 && strings.HasPrefix(trimmed, "#") &&
			assignsKey(strings.TrimSpace(strings.TrimPrefix(trimmed, "#")), key) {
			commented = i
		}
	}

	if commented >= 0 {
		lines[commented] = newLine
		return lines
	}

	inserted := make([]string, 0, len(lines)+1)
	inserted = append(inserted, lines[:end]...)
	inserted = append(inserted, newLine)

	return append(inserted, lines[end:]...)
}

// firstTableLine returns the index of the first table header, or len(lines).
func firstTableLine(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "[") {
			return i
		}
	}

	return len(lines)
}

func assignsKey(line, key string) bool {
	rest, ok := strings.CutPrefix(line, key)
	if !ok {
		return false
	}

	return strings.HasPrefix(strings.TrimSpace(rest), "=")
}

// formatTOMLValue formats a value for TOML output. Booleans and integers
// are written bare; all other values are quoted strings.
func formatTOMLValue(value string) string {
	if value == "true" || value == "false" || isInteger(value) {
		return value
	}

	return fmt.Sprintf("%q", value)
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// atomicWriteFile writes data to a temp file next to path and renames it
// into place, so a crash never leaves a partial config file.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tempPath := f.Name()

	succeeded := false
	defer func() {
		if !succeeded {
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tempPath, configFilePermissions); err != nil {
		return fmt.Errorf("setting file permissions: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	succeeded = true

	return nil
}
