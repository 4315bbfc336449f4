package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "ULTRADNS_GO_CONFIG"
	EnvHost     = "ULTRADNS_GO_HOST"
	EnvUsername = "ULTRADNS_GO_USERNAME"
	EnvPassword = "ULTRADNS_GO_PASSWORD" //nolint:gosec // variable name, not a credential
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // ULTRADNS_GO_CONFIG: override config file path
	Host       string // ULTRADNS_GO_HOST: API host
	Username   string // ULTRADNS_GO_USERNAME: login user
	Password   string // ULTRADNS_GO_PASSWORD: login password, never stored
}

// ReadEnvOverrides reads environment variables and returns any overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		Host:       os.Getenv(EnvHost),
		Username:   os.Getenv(EnvUsername),
		Password:   os.Getenv(EnvPassword),
	}
}
