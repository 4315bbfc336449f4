package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/ledger"
	"github.com/tonimelisma/ultradns-go/internal/udns"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Request and wait for DNS resolution reports",
	}

	cmd.AddCommand(newReportWaitCmd())
	cmd.AddCommand(newReportNXDomainCmd())
	cmd.AddCommand(newReportProjectedCmd())

	return cmd
}

// reportFlags select the window of a new report and how to wait for it.
type reportFlags struct {
	start      string
	end        string
	account    string
	zones      []string
	limit      int
	noWait     bool
	maxRetries int
}

func (f *reportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "first day of the report, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.end, "end", "", "last day of the report, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.account, "account", "", "account name")
	cmd.Flags().StringSliceVar(&f.zones, "zone", nil, "zone to include (repeatable)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of rows")
	cmd.Flags().BoolVar(&f.noWait, "no-wait", false, "print the request id instead of waiting")
	registerMaxRetries(cmd, &f.maxRetries)
}

func (f *reportFlags) window() *udns.ReportWindow {
	return &udns.ReportWindow{
		StartDate:   f.start,
		EndDate:     f.end,
		AccountName: f.account,
		ZoneNames:   f.zones,
	}
}

func registerMaxRetries(cmd *cobra.Command, n *int) {
	cmd.Flags().IntVar(n, "max-retries", 0, "give up after this many polls (default from config, 0 there means unbounded)")
}

// maxRetries returns the flag value when set, else the configured default.
func (cc *CLIContext) maxRetries(cmd *cobra.Command, flagValue int) int {
	if cmd.Flags().Changed("max-retries") {
		return flagValue
	}

	return cc.Cfg.ReportMaxRetries
}

func newReportWaitCmd() *cobra.Command {
	var maxRetries int

	cmd := &cobra.Command{
		Use:   "wait <request-id>",
		Short: "Wait for a report to be ready and print it",
		Long: `Poll a report request until its results are ready. With a retry limit the
wait gives up and prints a "` + udns.MaxRetriesMessage + `" marker instead.
The wait is recorded in the operation ledger.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			requested := udns.NewObjectResponse(map[string]any{udns.KeyRequestID: args[0]})

			return cc.awaitReport(cmd, client, requested, cc.maxRetries(cmd, maxRetries))
		},
	}

	registerMaxRetries(cmd, &maxRetries)

	return cmd
}

func newReportNXDomainCmd() *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "nxdomain",
		Short: "Request the advanced NXDOMAIN report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := udns.ReportFilter{HostQueryVolume: rf.window()}

			return runReport(cmd, &rf, func(ctx context.Context, client *udns.Client) (*udns.Response, error) {
				return client.CreateAdvancedNXDomainReport(ctx, filter, rf.limit)
			})
		},
	}

	rf.register(cmd)

	return cmd
}

func newReportProjectedCmd() *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "projected-volume",
		Short: "Request the projected query volume report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := udns.ReportFilter{ZoneQueryVolume: rf.window()}

			return runReport(cmd, &rf, func(ctx context.Context, client *udns.Client) (*udns.Response, error) {
				return client.CreateProjectedQueryVolumeReport(ctx, filter, rf.limit)
			})
		},
	}

	rf.register(cmd)

	return cmd
}

type reportRequestFunc func(ctx context.Context, client *udns.Client) (*udns.Response, error)

// runReport submits a report request and, unless --no-wait, waits for it.
func runReport(cmd *cobra.Command, rf *reportFlags, request reportRequestFunc) error {
	cc := mustCLIContext(cmd.Context())

	client, err := cc.authenticatedClient(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := request(cmd.Context(), client)
	if err != nil {
		return err
	}

	if rf.noWait || resp.Err() != nil || resp.RequestID() == "" {
		return cc.printResult(resp)
	}

	return cc.awaitReport(cmd, client, resp, cc.maxRetries(cmd, rf.maxRetries))
}

// awaitReport waits for the report named by resp, prints the result, and
// fails unless the report completed.
func (cc *CLIContext) awaitReport(cmd *cobra.Command, client *udns.Client, resp *udns.Response, maxRetries int) error {
	requestID := resp.RequestID()
	resolver := cc.reportResolver(client, maxRetries)

	cc.Statusf("Waiting for report %s...\n", requestID)

	final, err := cc.trackOperation(cmd.Context(), ledger.KindReport, requestID, cmd.CommandPath(),
		func(ctx context.Context) (*udns.Response, error) {
			return resolver.Resolve(ctx, resp)
		})
	if err != nil {
		return err
	}

	if err := cc.printResult(final); err != nil {
		return err
	}

	return outcomeError(ledger.KindReport, requestID, final)
}
