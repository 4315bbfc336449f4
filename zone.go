package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/ledger"
	"github.com/tonimelisma/ultradns-go/internal/udns"
)

func newZoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "List, inspect, create, delete, and export zones",
	}

	cmd.AddCommand(newZoneListCmd())
	cmd.AddCommand(newZoneGetCmd())
	cmd.AddCommand(newZoneCreateCmd())
	cmd.AddCommand(newZoneDeleteCmd())
	cmd.AddCommand(newZoneExportCmd())

	return cmd
}

func newZoneListCmd() *cobra.Command {
	var (
		lf      listFlags
		account string
		v3      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List zones",
		Long: `List zones visible to the user, or those of one account with --account.
Search terms include name, zone_type, and zone_status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			opts, err := lf.options(cmd)
			if err != nil {
				return err
			}

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			var resp *udns.Response

			switch {
			case account != "":
				resp, err = client.ZonesOfAccount(cmd.Context(), account, opts)
			case v3:
				resp, err = client.ZonesV3(cmd.Context(), opts)
			default:
				resp, err = client.Zones(cmd.Context(), opts)
			}

			if err != nil {
				return err
			}

			if cc.Flags.JSON || resp.Err() != nil {
				return cc.printResult(resp)
			}

			return printZoneTable(cc, resp)
		},
	}

	lf.register(cmd, true)
	cmd.Flags().StringVar(&account, "account", "", "list the zones of this account")
	cmd.Flags().BoolVar(&v3, "v3", false, "use the v3 listing with cursor paging")

	return cmd
}

// zoneListBody is the subset of a zone listing shown in the table.
type zoneListBody struct {
	Zones []struct {
		Properties struct {
			Name                string `json:"name"`
			AccountName         string `json:"accountName"`
			Type                string `json:"type"`
			Status              string `json:"status"`
			ResourceRecordCount int    `json:"resourceRecordCount"`
		} `json:"properties"`
	} `json:"zones"`
	ResultInfo udns.ResultInfo `json:"resultInfo"`
	Cursor     struct {
		Next string `json:"next"`
	} `json:"cursorInfo"`
}

func printZoneTable(cc *CLIContext, resp *udns.Response) error {
	var body zoneListBody
	if err := resp.Decode(&body); err != nil {
		return fmt.Errorf("decoding zone list: %w", err)
	}

	rows := make([][]string, 0, len(body.Zones))
	for _, z := range body.Zones {
		p := z.Properties
		rows = append(rows, []string{p.Name, p.Type, p.Status, strconv.Itoa(p.ResourceRecordCount), p.AccountName})
	}

	printTable(cc.Out, []string{"NAME", "TYPE", "STATUS", "RECORDS", "ACCOUNT"}, rows)

	if body.ResultInfo.TotalCount > body.ResultInfo.Offset+len(body.Zones) {
		cc.Statusf("Showing %d of %d zones.\n", len(body.Zones), body.ResultInfo.TotalCount)
	}

	if body.Cursor.Next != "" {
		cc.Statusf("More results: --cursor %s\n", body.Cursor.Next)
	}

	return nil
}

func newZoneGetCmd() *cobra.Command {
	var v3 bool

	cmd := &cobra.Command{
		Use:   "get <zone>",
		Short: "Show a zone's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			get := client.ZoneMetadata
			if v3 {
				get = client.ZoneMetadataV3
			}

			resp, err := get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return cc.printResult(resp)
		},
	}

	cmd.Flags().BoolVar(&v3, "v3", false, "use the v3 metadata endpoint")

	return cmd
}

func newZoneCreateCmd() *cobra.Command {
	var (
		account   string
		file      string
		axfr      string
		secondary string
		tsigKey   string
		tsigValue string
		wait      bool
	)

	cmd := &cobra.Command{
		Use:   "create <zone>",
		Short: "Create a primary or secondary zone",
		Long: `Create a zone. Without a source flag an empty primary zone is created.
--file uploads a BIND zone file, --axfr transfers the zone from a primary
name server, and --secondary creates a secondary zone fed by that server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())
			ctx := cmd.Context()
			zone := args[0]

			if account == "" {
				return fmt.Errorf("--account is required")
			}

			if countSet(file, axfr, secondary) > 1 {
				return fmt.Errorf("--file, --axfr, and --secondary are mutually exclusive")
			}

			var tsig *udns.TSIG
			if tsigKey != "" || tsigValue != "" {
				tsig = &udns.TSIG{Key: tsigKey, Value: tsigValue}
			}

			var bindFile []byte
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("reading zone file: %w", err)
				}

				bindFile = data
			}

			client, err := cc.authenticatedClient(ctx)
			if err != nil {
				return err
			}

			var resp *udns.Response

			switch {
			case file != "":
				resp, err = client.CreatePrimaryZoneByUpload(ctx, account, zone, bindFile)
			case axfr != "":
				resp, err = client.CreatePrimaryZoneByAXFR(ctx, account, zone, axfr, tsig)
			case secondary != "":
				resp, err = client.CreateSecondaryZone(ctx, account, zone, secondary, tsig)
			default:
				resp, err = client.CreatePrimaryZone(ctx, account, zone)
			}

			if err != nil {
				return err
			}

			if wait {
				resp, err = cc.awaitAsync(cmd, client, resp)
				if err != nil {
					return err
				}
			}

			return cc.printResult(resp)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "owning account name (required)")
	cmd.Flags().StringVar(&file, "file", "", "BIND zone file to upload")
	cmd.Flags().StringVar(&axfr, "axfr", "", "primary name server to transfer the zone from")
	cmd.Flags().StringVar(&secondary, "secondary", "", "primary name server for a secondary zone")
	cmd.Flags().StringVar(&tsigKey, "tsig-key", "", "TSIG key name for the transfer")
	cmd.Flags().StringVar(&tsigValue, "tsig-value", "", "TSIG key value for the transfer")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for an asynchronous creation to finish")

	return cmd
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}

	return n
}

func newZoneDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <zone>",
		Short: "Delete a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.DeleteZone(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := cc.printResult(resp); err != nil {
				return err
			}

			cc.Statusf("Deleted zone %s.\n", args[0])

			return nil
		},
	}
}

func newZoneExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <zone>...",
		Short: "Export zones in BIND format",
		Long: `Export one or more zones in BIND format. One zone comes back as text,
several as a zip archive; use --output to write either to a file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resolver := cc.taskResolver(client)

			resp, err := cc.trackOperation(cmd.Context(), ledger.KindExport, strings.Join(args, ","), cmd.CommandPath(),
				func(ctx context.Context) (*udns.Response, error) {
					return client.ExportZone(ctx, resolver, args...)
				})
			if err != nil {
				return err
			}

			if output == "" || resp.Kind == udns.KindStructured {
				return cc.printResult(resp)
			}

			return writeExport(cc, output, resp)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the export to this file")

	return cmd
}

// exportFilePerms is used for zone export files.
const exportFilePerms = 0o644

func writeExport(cc *CLIContext, path string, resp *udns.Response) error {
	data := resp.Bytes
	if resp.Kind == udns.KindText {
		data = []byte(resp.Text)
	}

	if err := os.WriteFile(path, data, exportFilePerms); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}

	cc.Statusf("Wrote %s to %s.\n", formatSize(int64(len(data))), path)

	return nil
}
