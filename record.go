package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/libdns/libdns"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/dnsprovider"
)

// recordDefaultTTL is used by "record add" and "record set" without --ttl.
const recordDefaultTTL = 300

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage individual DNS records",
		Long: `Manage individual records rather than whole record sets. A record set
is created when its first value is added and deleted with its last value.
Names are relative to the zone, with "@" for the apex.`,
	}

	cmd.AddCommand(newRecordListCmd())
	cmd.AddCommand(newRecordZonesCmd())
	cmd.AddCommand(newRecordAddCmd())
	cmd.AddCommand(newRecordSetCmd())
	cmd.AddCommand(newRecordDeleteCmd())

	return cmd
}

// recordProvider builds a libdns provider over an authenticated client.
func (cc *CLIContext) recordProvider(ctx context.Context) (*dnsprovider.Provider, error) {
	client, err := cc.authenticatedClient(ctx)
	if err != nil {
		return nil, err
	}

	return dnsprovider.New(client, cc.Logger), nil
}

func newRecordListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <zone>",
		Short: "List every record in a zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			provider, err := cc.recordProvider(cmd.Context())
			if err != nil {
				return err
			}

			records, err := provider.GetRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return cc.printRecords(records)
		},
	}
}

func newRecordZonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "List the zones records can be managed in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			provider, err := cc.recordProvider(cmd.Context())
			if err != nil {
				return err
			}

			zones, err := provider.ListZones(cmd.Context())
			if err != nil {
				return err
			}

			names := make([]string, len(zones))
			for i, z := range zones {
				names[i] = z.Name
			}

			if cc.Flags.JSON {
				return writeJSONValue(cc, names)
			}

			for _, name := range names {
				fmt.Fprintln(cc.Out, name)
			}

			return nil
		},
	}
}

func newRecordAddCmd() *cobra.Command {
	var ttl int

	cmd := &cobra.Command{
		Use:   "add <zone> <name> <type> <value>...",
		Short: "Add values to a record set, creating it if needed",
		Long: `Add values to the record set at name and type. Values already present
are skipped; the records actually added are printed.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			records, err := recordsFromArgs(args[1], args[2], args[3:], ttl)
			if err != nil {
				return err
			}

			provider, err := cc.recordProvider(cmd.Context())
			if err != nil {
				return err
			}

			added, err := provider.AppendRecords(cmd.Context(), args[0], records)
			if err != nil {
				return err
			}

			cc.Statusf("Added %d record(s).\n", len(added))

			return cc.printRecords(added)
		},
	}

	cmd.Flags().IntVar(&ttl, "ttl", recordDefaultTTL, "TTL in seconds for a newly created record set")

	return cmd
}

func newRecordSetCmd() *cobra.Command {
	var ttl int

	cmd := &cobra.Command{
		Use:   "set <zone> <name> <type> <value>...",
		Short: "Replace a record set's values",
		Long: `Make the given values the only ones at name and type, creating the
record set if needed. Other names and types are left alone.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			records, err := recordsFromArgs(args[1], args[2], args[3:], ttl)
			if err != nil {
				return err
			}

			provider, err := cc.recordProvider(cmd.Context())
			if err != nil {
				return err
			}

			set, err := provider.SetRecords(cmd.Context(), args[0], records)
			if err != nil {
				return err
			}

			return cc.printRecords(set)
		},
	}

	cmd.Flags().IntVar(&ttl, "ttl", recordDefaultTTL, "TTL in seconds")

	return cmd
}

func newRecordDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <zone> <name> [type] [value]",
		Short: "Delete matching records",
		Long: `Delete the records at name, optionally only those of one type and one
value. A record set left without values is deleted.`,
		Args: cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			tmpl := libdns.RR{Name: args[1]}
			if len(args) > 2 {
				tmpl.Type = args[2]
			}

			if len(args) > 3 {
				tmpl.Data = args[3]
			}

			provider, err := cc.recordProvider(cmd.Context())
			if err != nil {
				return err
			}

			deleted, err := provider.DeleteRecords(cmd.Context(), args[0], []libdns.Record{tmpl})
			if err != nil {
				return err
			}

			if len(deleted) == 0 {
				return fmt.Errorf("no records match %s", describeTemplate(tmpl))
			}

			cc.Statusf("Deleted %d record(s).\n", len(deleted))

			return cc.printRecords(deleted)
		},
	}
}

// recordsFromArgs builds one libdns record per value.
func recordsFromArgs(name, rtype string, values []string, ttl int) ([]libdns.Record, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("--ttl must be positive, got %d", ttl)
	}

	records := make([]libdns.Record, len(values))
	for i, v := range values {
		records[i] = libdns.RR{
			Name: name,
			Type: rtype,
			TTL:  time.Duration(ttl) * time.Second,
			Data: v,
		}
	}

	return records, nil
}

func describeTemplate(rr libdns.RR) string {
	desc := rr.Name
	if rr.Type != "" {
		desc += " " + rr.Type
	}

	if rr.Data != "" {
		desc += " " + strconv.Quote(rr.Data)
	}

	return desc
}

// recordJSON is the --json form of one record.
type recordJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
	TTL  int    `json:"ttl"`
	Data string `json:"data"`
}

func (cc *CLIContext) printRecords(records []libdns.Record) error {
	rows := make([]recordJSON, len(records))
	for i, rec := range records {
		rr := rec.RR()
		rows[i] = recordJSON{Name: rr.Name, Type: rr.Type, TTL: int(rr.TTL / time.Second), Data: rr.Data}
	}

	if cc.Flags.JSON {
		return writeJSONValue(cc, rows)
	}

	if len(rows) == 0 {
		return nil
	}

	table := make([][]string, len(rows))
	for i, r := range rows {
		table[i] = []string{r.Name, r.Type, strconv.Itoa(r.TTL), r.Data}
	}

	printTable(cc.Out, []string{"NAME", "TYPE", "TTL", "DATA"}, table)

	return nil
}

// writeJSONValue writes v as indented JSON.
func writeJSONValue(cc *CLIContext, v any) error {
	enc := json.NewEncoder(cc.Out)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
