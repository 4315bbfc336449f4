package config

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the effective configuration after the override chain, with
// durations parsed and paths expanded.
type Resolved struct {
	ConfigPath string

	Host               string
	UseHTTP            bool
	Username           string
	Password           string // environment only, never read from or written to a file
	UserAgent          string
	Proxy              *url.URL
	InsecureSkipVerify bool
	RequestTimeout     time.Duration
	StrictErrors       bool
	Headers            map[string]string

	TokenFile  string
	LedgerFile string

	PollInterval     time.Duration
	ReportMaxRetries int

	LogLevel  string
	LogFormat string
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.Host != "" {
		cfg.Host = env.Host
	}

	if env.Username != "" {
		cfg.Username = env.Username
	}

	if cli.Host != nil {
		cfg.Host = *cli.Host
	}

	if cli.Username != nil {
		cfg.Username = *cli.Username
	}

	if cli.StrictErrors != nil {
		cfg.StrictErrors = *cli.StrictErrors
	}

	resolved, err := resolve(cfg)
	if err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved.ConfigPath = cfgPath
	resolved.Password = env.Password

	return resolved, nil
}

// resolve validates the merged config and converts it to its effective form.
func resolve(cfg *Config) (*Resolved, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	// Validate has already checked every value parsed below.
	requestTimeout, _ := parseDuration(cfg.RequestTimeout)
	pollInterval, _ := parseDuration(cfg.PollInterval)

	var proxy *url.URL
	if cfg.Proxy != "" {
		proxy, _ = url.Parse(cfg.Proxy)
	}

	tokenFile := cfg.TokenFile
	if tokenFile == "" {
		tokenFile = DefaultTokenPath()
	}

	ledgerFile := cfg.LedgerFile
	if ledgerFile == "" {
		ledgerFile = DefaultLedgerPath()
	}

	return &Resolved{
		Host:               cfg.Host,
		UseHTTP:            cfg.UseHTTP,
		Username:           cfg.Username,
		UserAgent:          cfg.UserAgent,
		Proxy:              proxy,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		RequestTimeout:     requestTimeout,
		StrictErrors:       cfg.StrictErrors,
		Headers:            maps.Clone(cfg.Headers),
		TokenFile:          expandTilde(tokenFile),
		LedgerFile:         expandTilde(ledgerFile),
		PollInterval:       pollInterval,
		ReportMaxRetries:   cfg.ReportMaxRetries,
		LogLevel:           cfg.LogLevel,
		LogFormat:          cfg.LogFormat,
	}, nil
}

// parseDuration accepts Go duration strings and "0" for "disabled".
func parseDuration(s string) (time.Duration, error) {
	if s == "0" {
		return 0, nil
	}

	return time.ParseDuration(s)
}
