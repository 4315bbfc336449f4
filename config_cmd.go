package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration after all overrides",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a top-level key in the config file",
		Long: `Set a top-level key in the config file, creating the file from the
commented template if it does not exist. Runs even when the current file
does not load, so a bad value can be repaired.`,
		Args:        cobra.ExactArgs(2),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runConfigSet,
	}
}

// configJSON is the --json form of config show. The password is omitted.
type configJSON struct {
	ConfigPath         string            `json:"config_path"`
	Host               string            `json:"host"`
	UseHTTP            bool              `json:"use_http"`
	Username           string            `json:"username"`
	UserAgent          string            `json:"user_agent"`
	Proxy              string            `json:"proxy,omitempty"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify"`
	RequestTimeout     string            `json:"request_timeout"`
	StrictErrors       bool              `json:"strict_errors"`
	Headers            map[string]string `json:"headers,omitempty"`
	TokenFile          string            `json:"token_file"`
	LedgerFile         string            `json:"ledger_file"`
	PollInterval       string            `json:"poll_interval"`
	ReportMaxRetries   int               `json:"report_max_retries"`
	LogLevel           string            `json:"log_level"`
	LogFormat          string            `json:"log_format"`
}

func newConfigJSON(r *config.Resolved) configJSON {
	out := configJSON{
		ConfigPath:         r.ConfigPath,
		Host:               r.Host,
		UseHTTP:            r.UseHTTP,
		Username:           r.Username,
		UserAgent:          r.UserAgent,
		InsecureSkipVerify: r.InsecureSkipVerify,
		RequestTimeout:     r.RequestTimeout.String(),
		StrictErrors:       r.StrictErrors,
		Headers:            r.Headers,
		TokenFile:          r.TokenFile,
		LedgerFile:         r.LedgerFile,
		PollInterval:       r.PollInterval.String(),
		ReportMaxRetries:   r.ReportMaxRetries,
		LogLevel:           r.LogLevel,
		LogFormat:          r.LogFormat,
	}

	if r.Proxy != nil {
		out.Proxy = r.Proxy.Redacted()
	}

	return out
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if cc.Cfg == nil {
		return errors.New("no configuration loaded")
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Out)
		enc.SetIndent("", "  ")

		return enc.Encode(newConfigJSON(cc.Cfg))
	}

	return config.RenderEffective(cc.Cfg, cc.Out)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := mustCLIContext(cmd.Context())
	path := configFilePath(cc)

	if err := config.SetKey(path, args[0], args[1]); err != nil {
		return err
	}

	cc.Statusf("Set %s in %s.\n", args[0], path)

	return nil
}

// configFilePath returns the config file in effect: --config, then the
// environment, then the platform default. It does not need a loaded config.
func configFilePath(cc *CLIContext) string {
	if cc.Cfg != nil && cc.Cfg.ConfigPath != "" {
		return cc.Cfg.ConfigPath
	}

	if cc.Flags.ConfigPath != "" {
		return cc.Flags.ConfigPath
	}

	if env := config.ReadEnvOverrides(); env.ConfigPath != "" {
		return env.ConfigPath
	}

	return config.DefaultConfigPath()
}
