package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/udns"
)

func newRRSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rrset",
		Short: "Manage resource record sets",
		Long: `Manage resource record sets. An owner without a trailing dot is
relative to the zone; types are mnemonics (A, MX) or numbers (1, 15).`,
	}

	cmd.AddCommand(newRRSetListCmd())
	cmd.AddCommand(newRRSetGetCmd())
	cmd.AddCommand(newRRSetCreateCmd())
	cmd.AddCommand(newRRSetUpdateCmd())
	cmd.AddCommand(newRRSetDeleteCmd())

	return cmd
}

func newRRSetListCmd() *cobra.Command {
	var (
		lf    listFlags
		rtype string
	)

	cmd := &cobra.Command{
		Use:   "list <zone>",
		Short: "List a zone's record sets",
		Long:  "List a zone's record sets. Search terms include ttl, owner, and value.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if rtype != "" {
				resp, err = client.RRSetsByType(cmd.Context(), args[0], rtype, opts)
			} else {
				resp, err = client.RRSets(cmd.Context(), args[0], opts)
			}

			if err != nil {
				return err
			}

			return cc.printRRSets(resp)
		},
	}

	lf.register(cmd, false)
	cmd.Flags().StringVarP(&rtype, "type", "t", "", "only list record sets of this type")

	return cmd
}

func newRRSetGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <zone> <type> <owner>",
		Short: "Show the record set of one type at one owner",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.RRSetsByTypeOwner(cmd.Context(), args[0], args[1], args[2], nil)
			if err != nil {
				return err
			}

			return cc.printRRSets(resp)
		},
	}
}

// printRRSets prints a record set listing as a table, or the raw body for
// --json and error responses.
func (cc *CLIContext) printRRSets(resp *udns.Response) error {
	if cc.Flags.JSON || resp.Err() != nil {
		return cc.printResult(resp)
	}

	list, err := udns.ParseRRSets(resp)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(list.RRSets))
	for _, s := range list.RRSets {
		pool := ""
		if s.Profile != nil {
			pool, _ = s.Profile["@context"].(string)
			pool = poolKind(pool)
		}

		rows = append(rows, []string{s.OwnerName, s.Type(), strconv.Itoa(s.TTL), strings.Join(s.RData, " | "), pool})
	}

	printTable(cc.Out, []string{"OWNER", "TYPE", "TTL", "RDATA", "POOL"}, rows)

	return nil
}

// poolKind shortens a pool profile schema URL to its pool type.
func poolKind(schema string) string {
	switch schema {
	case udns.SBPoolSchema:
		return "SB"
	case udns.TCPoolSchema:
		return "TC"
	case "":
		return ""
	default:
		return "other"
	}
}

// rrsetWriteFlags are shared by create and update.
type rrsetWriteFlags struct {
	ttl     int
	profile string
}

func (f *rrsetWriteFlags) register(cmd *cobra.Command, withProfile bool) {
	cmd.Flags().IntVar(&f.ttl, "ttl", 300, "time to live in seconds")

	if withProfile {
		cmd.Flags().StringVar(&f.profile, "profile", "", "pool profile as a JSON object")
	}
}

func (f *rrsetWriteFlags) parsedProfile() (any, error) {
	if f.profile == "" {
		return nil, nil
	}

	var profile map[string]any
	if err := json.Unmarshal([]byte(f.profile), &profile); err != nil {
		return nil, fmt.Errorf("--profile: %w", err)
	}

	return profile, nil
}

func newRRSetCreateCmd() *cobra.Command {
	var wf rrsetWriteFlags

	cmd := &cobra.Command{
		Use:   "create <zone> <type> <owner> <rdata>...",
		Short: "Create a record set",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.CreateRRSet(cmd.Context(), args[0], args[1], args[2], wf.ttl, args[3:]...)
			if err != nil {
				return err
			}

			return cc.printResult(resp)
		},
	}

	wf.register(cmd, false)

	return cmd
}

func newRRSetUpdateCmd() *cobra.Command {
	var (
		wf        rrsetWriteFlags
		rdataOnly bool
	)

	cmd := &cobra.Command{
		Use:   "update <zone> <type> <owner> <rdata>...",
		Short: "Replace a record set",
		Long: `Replace a record set's TTL and rdata. With --rdata-only only the rdata is
changed and the TTL is kept. Pools must pass their --profile.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			profile, err := wf.parsedProfile()
			if err != nil {
				return err
			}

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			zone, rtype, owner, rdata := args[0], args[1], args[2], args[3:]

			var resp *udns.Response
			if rdataOnly {
				resp, err = client.EditRRSetRData(cmd.Context(), zone, rtype, owner, rdata, profile)
			} else {
				resp, err = client.EditRRSet(cmd.Context(), zone, rtype, owner, wf.ttl, rdata, profile)
			}

			if err != nil {
				return err
			}

			return cc.printResult(resp)
		},
	}

	wf.register(cmd, true)
	cmd.Flags().BoolVar(&rdataOnly, "rdata-only", false, "change only the rdata")

	return cmd
}

func newRRSetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <zone> <type> <owner>",
		Short: "Delete all records of one type at one owner",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.DeleteRRSet(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}

			if err := cc.printResult(resp); err != nil {
				return err
			}

			cc.Statusf("Deleted %s %s.\n", args[1], args[2])

			return nil
		},
	}
}
