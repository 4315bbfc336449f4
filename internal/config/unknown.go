package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// headersTable is the one table whose keys are free-form.
const headersTable = "headers"

// knownKeys are the valid top-level keys in the config file.
var knownKeys = map[string]bool{
	// Connection
	"host": true, "use_http": true, "username": true, "user_agent": true, "proxy": true,
	"insecure_skip_verify": true, "request_timeout": true, "strict_errors": true,
	// Storage
	"token_file": true, "ledger_file": true,
	// Polling
	"poll_interval": true, "report_max_retries": true,
	// Logging
	"log_level": true, "log_format": true,
	headersTable: true,
}

// knownKeysList is the sorted slice form of knownKeys, sorted so ties in
// edit distance always suggest the same key.
var knownKeysList = func() []string {
	keys := make([]string, 0, len(knownKeys))
	for k := range knownKeys {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	for _, key := range md.Undecoded() {
		topKey := strings.SplitN(key.String(), ".", 2)[0]

		if knownKeys[topKey] {
			continue
		}

		errs = append(errs, unknownKeyError(topKey))
	}

	return errors.Join(errs...)
}

// unknownKeyError describes an unknown key, suggesting the closest known key
// when one is near enough.
func unknownKeyError(key string) error {
	if suggestion := closestMatch(key, knownKeysList); suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", key, suggestion)
	}

	return fmt.Errorf("unknown config key %q", key)
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		if d := levenshtein(unknown, k); d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings using two
// rolling rows.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
