package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/ledger"
)

// defaultPruneAge keeps a month of finished operations.
const defaultPruneAge = 30 * 24 * time.Hour

func newOpsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Inspect the local journal of waited-on operations",
		Long: `Every task, report, and export wait is journaled in a local SQLite
ledger. An operation left pending was interrupted before it finished.`,
	}

	cmd.AddCommand(newOpsListCmd())
	cmd.AddCommand(newOpsPruneCmd())

	return cmd
}

// opJSON is the --json form of one ledger row.
type opJSON struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Ref        string     `json:"ref"`
	Command    string     `json:"command"`
	State      string     `json:"state"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func newOpsListCmd() *cobra.Command {
	var (
		kind  string
		state string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded operations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			store, err := ledger.Open(cmd.Context(), cc.Cfg.LedgerFile, cc.Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ops, err := store.List(cmd.Context(), ledger.Filter{
				Kind:  ledger.Kind(kind),
				State: ledger.State(state),
				Limit: limit,
			})
			if err != nil {
				return err
			}

			if cc.Flags.JSON {
				return printOpsJSON(cc, ops)
			}

			printOpsTable(cc, ops, time.Now())

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only this kind: task, location, report, or export")
	cmd.Flags().StringVar(&state, "state", "", "only this state, e.g. pending or error")
	cmd.Flags().IntVar(&limit, "limit", 50, "show at most this many operations (0 for all)")

	return cmd
}

func printOpsJSON(cc *CLIContext, ops []ledger.Operation) error {
	out := make([]opJSON, 0, len(ops))

	for _, op := range ops {
		o := opJSON{
			ID:        op.ID,
			Kind:      string(op.Kind),
			Ref:       op.Ref,
			Command:   op.Command,
			State:     string(op.State),
			Detail:    op.Detail,
			StartedAt: op.StartedAt,
		}

		if !op.FinishedAt.IsZero() {
			finished := op.FinishedAt
			o.FinishedAt = &finished
		}

		out = append(out, o)
	}

	enc := json.NewEncoder(cc.Out)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

func printOpsTable(cc *CLIContext, ops []ledger.Operation, now time.Time) {
	if len(ops) == 0 {
		cc.Statusf("No operations recorded.\n")
		return
	}

	rows := make([][]string, 0, len(ops))
	for _, op := range ops {
		rows = append(rows, []string{
			shortID(op.ID),
			string(op.Kind),
			op.Ref,
			string(op.State),
			formatTime(op.StartedAt.Local()),
			op.Duration(now).Round(time.Second).String(),
		})
	}

	printTable(cc.Out, []string{"ID", "KIND", "REF", "STATE", "STARTED", "DURATION"}, rows)
}

func newOpsPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished operations older than a cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive, got %s", olderThan)
			}

			store, err := ledger.Open(cmd.Context(), cc.Cfg.LedgerFile, cc.Logger)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), olderThan)
			if err != nil {
				return err
			}

			cc.Statusf("Pruned %d operation(s).\n", n)

			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", defaultPruneAge, "minimum age of a finished operation to delete")

	return cmd
}

// shortID abbreviates a ledger id for table output.
func shortID(id string) string {
	const n = 8
	if len(id) <= n {
		return id
	}

	return id[:n]
}
