package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/ledger"
	"github.com/tonimelisma/ultradns-go/internal/udns"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect and wait for background tasks",
	}

	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskGetCmd())
	cmd.AddCommand(newTaskWaitCmd())
	cmd.AddCommand(newTaskClearCmd())

	return cmd
}

func newTaskListCmd() *cobra.Command {
	var lf listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List background tasks",
		Args:  cobra.NoArgs,
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

			resp, err := client.Tasks(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if cc.Flags.JSON || resp.Err() != nil {
				return cc.printResult(resp)
			}

			return printTaskTable(cc, resp)
		},
	}

	lf.register(cmd, false)

	return cmd
}

func printTaskTable(cc *CLIContext, resp *udns.Response) error {
	var list udns.TaskList
	if err := resp.Decode(&list); err != nil {
		return fmt.Errorf("decoding task list: %w", err)
	}

	rows := make([][]string, 0, len(list.Tasks))
	for _, task := range list.Tasks {
		rows = append(rows, []string{task.TaskID, task.Code, strconv.FormatBool(task.HasData), task.Message})
	}

	printTable(cc.Out, []string{"ID", "CODE", "DATA", "MESSAGE"}, rows)

	return nil
}

func newTaskGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.Task(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return cc.printResult(resp)
		},
	}
}

// defaultWaitParallel caps how many tasks "task wait" polls at once.
const defaultWaitParallel = 4

func newTaskWaitCmd() *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "wait <task-id>...",
		Short: "Wait for tasks to finish and print their results",
		Long: `Poll tasks until they complete or fail. A completed task with data
prints its result; otherwise the final task record is printed. Several task
ids are polled concurrently, at most --parallel at a time, and results are
printed in argument order. Each wait is recorded in the operation ledger.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			if parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1, got %d", parallel)
			}

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			accepted := make([]*udns.Response, len(args))
			for i, id := range args {
				accepted[i] = udns.NewObjectResponse(map[string]any{udns.KeyTaskID: id})
			}

			resolver := cc.taskResolver(client)

			cc.Statusf("Waiting for %d task(s)...\n", len(args))

			resps, err := cc.trackOperations(cmd.Context(), ledger.KindTask, args, cmd.CommandPath(),
				func(ctx context.Context) ([]*udns.Response, error) {
					return resolver.ResolveAll(ctx, accepted, parallel)
				})
			if err != nil {
				return err
			}

			var errs []error

			for i, resp := range resps {
				if err := cc.printResult(resp); err != nil {
					errs = append(errs, fmt.Errorf("task %s: %w", args[i], err))
					continue
				}

				if err := outcomeError(ledger.KindTask, args[i], resp); err != nil {
					errs = append(errs, err)
				}
			}

			return errors.Join(errs...)
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", defaultWaitParallel, "maximum number of tasks polled at once")

	return cmd
}

func newTaskClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <task-id>",
		Short: "Delete a finished task and its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.ClearTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if err := cc.printResult(resp); err != nil {
				return err
			}

			cc.Statusf("Cleared task %s.\n", args[0])

			return nil
		},
	}
}
