package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run even when the config
// file does not load, such as "config set" fixing a broken file.
const skipConfigAnnotation = "skipConfig"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagHost       string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagStrict     bool
	flagMetrics    string
)

// CLIFlags is the parsed form of the persistent flags.
type CLIFlags struct {
	ConfigPath string
	Host       string
	JSON       bool
	Verbose    bool
	Quiet      bool

	// MetricsFile, when set, receives the client metrics in the Prometheus
	// text format after the command succeeds.
	MetricsFile string
}

// CLIContext carries everything a subcommand needs: flags, the resolved
// configuration, and the logger. It is built once in PersistentPreRunE and
// travels in the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger
	Out    io.Writer

	// Metrics is non-nil only when --metrics-file is given.
	Metrics *prometheus.Registry
}

type cliContextKey struct{}

// cliContextFrom returns the CLIContext stored in ctx, or nil.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, _ := ctx.Value(cliContextKey{}).(*CLIContext)
	return cc
}

// mustCLIContext returns the CLIContext stored in ctx and panics if the root
// pre-run did not install one.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ultradns-go",
		Short:   "UltraDNS REST API client",
		Long:    "Manage UltraDNS zones, record sets, tasks, and reports from the command line.",
		Version: version,
		// Silence Cobra's default error/usage printing; main prints errors.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := newCLIContext(cmd)
			if err != nil {
				return err
			}

			cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if cc := cliContextFrom(cmd.Context()); cc != nil {
				return cc.writeMetrics()
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagHost, "host", "", "API host (overrides config and "+config.EnvHost+")")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagStrict, "strict", false, "fail on HTTP error responses instead of printing them")
	cmd.PersistentFlags().StringVar(&flagMetrics, "metrics-file", "", "write request metrics in Prometheus text format to this file")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newWhoamiCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newZoneCmd())
	cmd.AddCommand(newRRSetCmd())
	cmd.AddCommand(newRecordCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newOpsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// newCLIContext resolves the configuration through the override chain and
// builds the logger. Commands annotated with skipConfigAnnotation get a nil
// Cfg when the config does not load.
func newCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	cc := &CLIContext{
		Flags: CLIFlags{
			ConfigPath:  flagConfigPath,
			Host:        flagHost,
			JSON:        flagJSON,
			Verbose:     flagVerbose,
			Quiet:       flagQuiet,
			MetricsFile: flagMetrics,
		},
		Out: cmd.OutOrStdout(),
	}

	if flagMetrics != "" {
		cc.Metrics = prometheus.NewRegistry()
	}

	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	// Only pass flags the user explicitly set, so config values survive.
	if cmd.Flags().Changed("host") {
		cli.Host = &flagHost
	}

	if cmd.Flags().Changed("strict") {
		cli.StrictErrors = &flagStrict
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil && cmd.Annotations[skipConfigAnnotation] == "" {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = resolved
	cc.Logger = buildLogger(resolved, cc.Flags, os.Stderr)

	return cc, nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. log_format "auto"
// writes text to a terminal and JSON everywhere else.
func buildLogger(cfg *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if cfg != nil {
		switch cfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}

		format = cfg.LogFormat
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
