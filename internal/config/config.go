// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for ultradns-go. Values resolve through
// a four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Settings are flat top-level keys; the embedded structs only group them in
// code. Custom request headers live in the [headers] table.
type Config struct {
	ConnectionConfig
	StorageConfig
	PollingConfig
	LoggingConfig

	Headers map[string]string `toml:"headers"`
}

// ConnectionConfig selects the API endpoint and how requests are sent.
type ConnectionConfig struct {
	Host               string `toml:"host"`
	UseHTTP            bool   `toml:"use_http"`
	Username           string `toml:"username"`
	UserAgent          string `toml:"user_agent"`
	Proxy              string `toml:"proxy"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	RequestTimeout     string `toml:"request_timeout"`
	StrictErrors       bool   `toml:"strict_errors"`
}

// StorageConfig locates the session token file and the operation ledger.
// Empty values mean the platform data directory.
type StorageConfig struct {
	TokenFile  string `toml:"token_file"`
	LedgerFile string `toml:"ledger_file"`
}

// PollingConfig controls waiting for tasks and reports.
type PollingConfig struct {
	PollInterval     string `toml:"poll_interval"`
	ReportMaxRetries int    `toml:"report_max_retries"`
}

// LoggingConfig controls log output: level and format.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish "not
// specified" (nil) from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath   string  // --config flag (empty = use default)
	Host         *string // --host flag
	Username     *string // --username flag
	StrictErrors *bool   // --strict flag
}
