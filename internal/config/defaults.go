package config

// Default values for configuration options. These are layer 0 of the
// override chain and work without any config file.
const (
	defaultHost           = "api.ultradns.com"
	defaultRequestTimeout = "60s"
	defaultPollInterval   = "1s"
	defaultLogLevel       = "warn"
	defaultLogFormat      = "auto"
)

// DefaultConfig returns a Config populated with all default values. It is
// the starting point for TOML decoding so unset keys keep their defaults.
func DefaultConfig() *Config {
	return &Config{
		ConnectionConfig: ConnectionConfig{
			Host:           defaultHost,
			RequestTimeout: defaultRequestTimeout,
		},
		PollingConfig: PollingConfig{
			PollInterval: defaultPollInterval,
		},
		LoggingConfig: LoggingConfig{
			LogLevel:  defaultLogLevel,
			LogFormat: defaultLogFormat,
		},
		Headers: make(map[string]string),
	}
}
