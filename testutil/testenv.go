// Package testutil guards the E2E suite: it loads a local .env file and
// refuses to run against accounts that are not explicitly allowlisted.
package testutil

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the E2E suite.
const (
	EnvAllowedAccounts = "ULTRADNS_ALLOWED_TEST_ACCOUNTS"
	EnvTestAccount     = "ULTRADNS_TEST_ACCOUNT"
)

// LoadDotEnv copies KEY=VALUE lines from envPath into the environment and
// returns how many it set. Variables already set are left alone, and a
// missing file sets nothing.
func LoadDotEnv(envPath string) int {
	f, err := os.Open(envPath)
	if err != nil {
		return 0
	}
	defer f.Close()

	set := 0

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")

		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		if os.Setenv(key, value) == nil {
			set++
		}
	}

	return set
}

// CheckAllowlist reports whether account appears in the comma-separated
// allowlist. Entries are trimmed; an empty account never matches.
func CheckAllowlist(allowlist, account string) error {
	if allowlist == "" {
		return fmt.Errorf("%s not set (example: %s=acme-test)", EnvAllowedAccounts, EnvAllowedAccounts)
	}

	if account == "" {
		return errors.New("no test account given")
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == account {
			return nil
		}
	}

	return fmt.Errorf("account %q is not in %s=%q", account, EnvAllowedAccounts, allowlist)
}

// ValidateAllowlist exits the process unless the account named by
// accountEnvVar passes CheckAllowlist. The E2E suite creates and deletes
// zones, so it must never run against a production account by accident.
func ValidateAllowlist(accountEnvVar string) {
	account := os.Getenv(accountEnvVar)
	if account == "" {
		fmt.Fprintf(os.Stderr, "FATAL: %s not set\n", accountEnvVar)
		os.Exit(1)
	}

	if err := CheckAllowlist(os.Getenv(EnvAllowedAccounts), account); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

// FindModuleRoot walks up from the current directory to find go.mod.
// Returns the fallback if the root is not found.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}
