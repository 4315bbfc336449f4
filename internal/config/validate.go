package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// Validation range constants.
const (
	minRequestTimeout = 1 * time.Second
	minPollInterval   = 100 * time.Millisecond
	maxPollInterval   = 10 * time.Minute
)

var (
	validLogLevels  = []string{"debug", "info", "warn", "error"}
	validLogFormats = []string{"auto", "text", "json"}
	validProxyKinds = []string{"http", "https", "socks5"}
)

// Validate checks all configuration values and returns every error found,
// so a user can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateConnection(&cfg.ConnectionConfig)...)
	errs = append(errs, validatePolling(&cfg.PollingConfig)...)
	errs = append(errs, validateLogging(&cfg.LoggingConfig)...)
	errs = append(errs, validateHeaders(cfg.Headers)...)

	return errors.Join(errs...)
}

func validateConnection(c *ConnectionConfig) []error {
	var errs []error

	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, errors.New("host: must not be empty"))
	} else if strings.ContainsAny(c.Host, " \t") {
		errs = append(errs, fmt.Errorf("host: must not contain whitespace, got %q", c.Host))
	}

	if d, err := parseDuration(c.RequestTimeout); err != nil {
		errs = append(errs, fmt.Errorf("request_timeout: %w", err))
	} else if d != 0 && d < minRequestTimeout {
		errs = append(errs, fmt.Errorf("request_timeout: must be 0 or at least %s, got %s", minRequestTimeout, d))
	}

	if c.Proxy != "" {
		if err := validateProxy(c.Proxy); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

func validateProxy(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("proxy: %w", err)
	}

	if !slices.Contains(validProxyKinds, u.Scheme) || u.Host == "" {
		return fmt.Errorf("proxy: must be a %s URL with a host, got %q",
			strings.Join(validProxyKinds, "/"), raw)
	}

	return nil
}

func validatePolling(p *PollingConfig) []error {
	var errs []error

	if d, err := parseDuration(p.PollInterval); err != nil {
		errs = append(errs, fmt.Errorf("poll_interval: %w", err))
	} else if d < minPollInterval || d > maxPollInterval {
		errs = append(errs, fmt.Errorf("poll_interval: must be between %s and %s, got %s",
			minPollInterval, maxPollInterval, d))
	}

	if p.ReportMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("report_max_retries: must be 0 (unbounded) or positive, got %d",
			p.ReportMaxRetries))
	}

	return errs
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	if !slices.Contains(validLogLevels, l.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level: must be one of %s, got %q",
			strings.Join(validLogLevels, ", "), l.LogLevel))
	}

	if !slices.Contains(validLogFormats, l.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format: must be one of %s, got %q",
			strings.Join(validLogFormats, ", "), l.LogFormat))
	}

	return errs
}

func validateHeaders(headers map[string]string) []error {
	var errs []error

	for name := range headers {
		if udns.IsReservedHeader(name) {
			errs = append(errs, fmt.Errorf("headers: %q is set by the client and cannot be overridden", name))
		}
	}

	return errs
}
