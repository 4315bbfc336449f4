package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/ledger"
	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// waitFunc blocks until an asynchronous operation reaches a final state.
type waitFunc func(ctx context.Context) (*udns.Response, error)

// waitAllFunc blocks until several operations reach a final state. Results
// are index-aligned with the refs being waited on.
type waitAllFunc func(ctx context.Context) ([]*udns.Response, error)

// trackOperation runs wait with signal-driven cancellation and journals it
// in the operation ledger: a pending row before, the terminal state after.
// A ledger that cannot be opened only costs the journal entry, never the
// wait itself. A wait stopped by a signal is recorded as canceled with the
// signal's name.
func (cc *CLIContext) trackOperation(
	ctx context.Context, kind ledger.Kind, ref, command string, wait waitFunc,
) (*udns.Response, error) {
	resps, err := cc.trackOperations(ctx, kind, []string{ref}, command,
		func(ctx context.Context) ([]*udns.Response, error) {
			resp, err := wait(ctx)
			return []*udns.Response{resp}, err
		})

	if len(resps) == 0 {
		return nil, err
	}

	return resps[0], err
}

// trackOperations is trackOperation for several refs waited on together,
// with one ledger row per ref. A failed wait finishes every row with its
// error.
func (cc *CLIContext) trackOperations(
	ctx context.Context, kind ledger.Kind, refs []string, command string, wait waitAllFunc,
) ([]*udns.Response, error) {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	ctx, intr := interruptibleContext(ctx, cc.Logger, strings.Join(refs, ","))

	store, err := ledger.Open(ctx, cc.Cfg.LedgerFile, cc.Logger)
	if err != nil {
		cc.Logger.Warn("operation ledger unavailable", slog.String("error", err.Error()))
		return wait(ctx)
	}
	defer store.Close()

	ids := make([]string, len(refs))

	for i, ref := range refs {
		id, err := store.Start(ctx, kind, ref, command)
		if err != nil {
			cc.Logger.Warn("could not record operation",
				slog.String("ref", ref), slog.String("error", err.Error()))

			continue
		}

		ids[i] = id
	}

	resps, waitErr := wait(ctx)

	// Record outcomes even when the wait was interrupted.
	finishCtx := context.WithoutCancel(ctx)

	for i, id := range ids {
		if id == "" {
			continue
		}

		var resp *udns.Response
		if i < len(resps) {
			resp = resps[i]
		}

		state, detail := operationOutcome(resp, waitErr)
		if sig := intr.Signal(); sig != nil && state == ledger.StateCanceled {
			detail = "interrupted by " + sig.String()
		}

		if err := store.Finish(finishCtx, id, state, detail); err != nil {
			cc.Logger.Warn("could not finish operation record",
				slog.String("id", id), slog.String("error", err.Error()))

			continue
		}

		cc.Logger.Debug("operation recorded",
			slog.String("id", id), slog.String("ref", refs[i]), slog.String("state", string(state)))
	}

	return resps, waitErr
}

// operationOutcome classifies the final response of a wait.
func operationOutcome(resp *udns.Response, err error) (ledger.State, string) {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ledger.StateCanceled, err.Error()
	case err != nil:
		return ledger.StateError, err.Error()
	case resp == nil:
		return ledger.StateComplete, ""
	}

	if msg := resp.String("error"); msg == udns.MaxRetriesMessage {
		return ledger.StateGaveUp, msg
	}

	if restErr := resp.Err(); restErr != nil {
		return ledger.StateError, restErr.Error()
	}

	if resp.String("code") == udns.TaskError {
		return ledger.StateError, resp.String("message")
	}

	for _, key := range []string{"state", "status"} {
		if strings.EqualFold(resp.String(key), udns.TaskError) {
			return ledger.StateError, resp.String("message")
		}
	}

	if errs, ok := resp.Get("errors"); ok {
		if list, ok := errs.([]any); ok && len(list) > 0 {
			return ledger.StateError, "report returned errors"
		}
	}

	return ledger.StateComplete, ""
}

// operationError reports an operation that finished in a state other than
// complete.
type operationError struct {
	kind   ledger.Kind
	ref    string
	state  ledger.State
	detail string
}

func (e *operationError) Error() string {
	msg := fmt.Sprintf("%s %s ended %s", e.kind, e.ref, e.state)
	if e.detail != "" {
		msg += ": " + e.detail
	}

	return msg
}

// outcomeError returns an *operationError unless resp is a successful final
// result.
func outcomeError(kind ledger.Kind, ref string, resp *udns.Response) error {
	state, detail := operationOutcome(resp, nil)
	if state == ledger.StateComplete {
		return nil
	}

	return &operationError{kind: kind, ref: ref, state: state, detail: detail}
}

// awaitAsync resolves an accepted response that carries a task id or a
// location, journaling the wait. Other responses are returned unchanged.
func (cc *CLIContext) awaitAsync(cmd *cobra.Command, client *udns.Client, resp *udns.Response) (*udns.Response, error) {
	resolver := cc.taskResolver(client)

	kind, ref := ledger.KindTask, resp.TaskID()
	if ref == "" {
		kind, ref = ledger.KindLocation, resp.Location()
	}

	if ref == "" {
		return resp, nil
	}

	cc.Statusf("Waiting for %s %s...\n", kind, ref)

	return cc.trackOperation(cmd.Context(), kind, ref, cmd.CommandPath(), func(ctx context.Context) (*udns.Response, error) {
		return resolver.Resolve(ctx, resp)
	})
}

func (cc *CLIContext) taskResolver(client *udns.Client) *udns.TaskResolver {
	return udns.NewTaskResolver(client).
		WithPollInterval(cc.Cfg.PollInterval).
		OnPoll(cc.logPoll)
}

func (cc *CLIContext) reportResolver(client *udns.Client, maxRetries int) *udns.ReportResolver {
	return udns.NewReportResolver(client).
		WithPollInterval(cc.Cfg.PollInterval).
		WithMaxRetries(maxRetries).
		OnPoll(cc.logPoll)
}

// logPoll is the resolvers' progress callback.
func (cc *CLIContext) logPoll(handle string, resp *udns.Response) {
	progress := resp.String("code")
	if progress == "" {
		progress = resp.String("state") + resp.String("status")
	}

	if progress == "" {
		progress = resp.ErrorCode()
	}

	cc.Logger.Debug("polled operation",
		slog.String("handle", handle),
		slog.Int("status", resp.StatusCode),
		slog.String("progress", progress),
	)
}
