package udns

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is the wait between polls of a pending operation.
const DefaultPollInterval = 1 * time.Second

// Task codes reported by GET /v1/tasks/{id}.
const (
	TaskPending   = "PENDING"
	TaskInProcess = "IN_PROCESS"
	TaskComplete  = "COMPLETE"
	TaskError     = "ERROR"
)

// Location states that end location polling. Compared case-insensitively
// against both the state and status fields.
const (
	locationCompleted = "COMPLETED"
	locationError     = "ERROR"
)

// PollFunc is notified after every poll with the operation handle and the
// response that was just read.
type PollFunc func(handle string, resp *Response)

// TaskResolver turns an accepted response carrying a task_id or location
// into its final result by polling until a terminal state. Polling is
// unbounded; bound it with the context.
type TaskResolver struct {
	client       *Client
	logger       *slog.Logger
	pollInterval time.Duration
	onPoll       PollFunc
	sleepFunc    func(ctx context.Context, d time.Duration) error
}

// NewTaskResolver returns a resolver that polls through client.
func NewTaskResolver(client *Client) *TaskResolver {
	return &TaskResolver{
		client:       client,
		logger:       client.logger,
		pollInterval: DefaultPollInterval,
		sleepFunc:    client.sleepFunc,
	}
}

// WithPollInterval sets the wait between polls. Non-positive values keep the
// current interval.
func (r *TaskResolver) WithPollInterval(d time.Duration) *TaskResolver {
	if d > 0 {
		r.pollInterval = d
	}

	return r
}

// OnPoll registers a progress callback.
func (r *TaskResolver) OnPoll(fn PollFunc) *TaskResolver {
	r.onPoll = fn
	return r
}

// Resolve polls the task or location named by resp until it finishes.
// A response with neither handle is returned unchanged without polling.
// Terminal error states are returned as values; err is only set for
// transport failures and cancellation.
func (r *TaskResolver) Resolve(ctx context.Context, resp *Response) (*Response, error) {
	if id := resp.TaskID(); id != "" {
		return r.resolveTask(ctx, id)
	}

	if loc := resp.Location(); loc != "" {
		return r.resolveLocation(ctx, loc)
	}

	return resp, nil
}

// ResolveAll resolves several responses concurrently, at most limit at a
// time (limit <= 0 means no limit). Results keep the input order. The first
// failure cancels the remaining polls.
func (r *TaskResolver) ResolveAll(ctx context.Context, resps []*Response, limit int) ([]*Response, error) {
	results := make([]*Response, len(resps))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, resp := range resps {
		g.Go(func() error {
			final, err := r.Resolve(gctx, resp)
			if err != nil {
				return err
			}

			results[i] = final

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (r *TaskResolver) resolveTask(ctx context.Context, taskID string) (*Response, error) {
	task, err := r.waitTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	resultURI := task.String("resultUri")
	if task.String("code") == TaskComplete && task.Bool("hasData") && resultURI != "" {
		result, err := r.client.Get(ctx, resultURI, nil)
		if err != nil {
			return nil, fmt.Errorf("udns: fetching task %s result: %w", taskID, err)
		}

		return result, nil
	}

	return task, nil
}

// waitTask polls the task until its code leaves PENDING/IN_PROCESS and
// returns the last task record.
func (r *TaskResolver) waitTask(ctx context.Context, taskID string) (*Response, error) {
	r.logger.Info("waiting for task", slog.String("task_id", taskID))

	for polls := 1; ; polls++ {
		task, err := r.client.poll(ctx, taskPath(taskID))
		if err != nil {
			return nil, fmt.Errorf("udns: polling task %s: %w", taskID, err)
		}

		r.client.metrics.polled(pollKindTask)

		r.notify(taskID, task)

		code := task.String("code")

		switch code {
		case TaskPending, TaskInProcess:
			r.logger.Debug("task still running",
				slog.String("task_id", taskID),
				slog.String("code", code),
				slog.Int("polls", polls),
			)

			if err := r.sleepFunc(ctx, r.pollInterval); err != nil {
				return nil, fmt.Errorf("udns: waiting for task %s: %w", taskID, err)
			}
		case TaskComplete:
			r.logger.Info("task complete",
				slog.String("task_id", taskID),
				slog.Int("polls", polls),
			)

			return task, nil
		default:
			// ERROR and unknown codes are terminal and handed back for the
			// caller to interpret.
			r.logger.Warn("task ended",
				slog.String("task_id", taskID),
				slog.String("code", code),
				slog.Int("polls", polls),
			)

			return task, nil
		}
	}
}

func (r *TaskResolver) resolveLocation(ctx context.Context, location string) (*Response, error) {
	r.logger.Info("waiting for location", slog.String("location", location))

	for polls := 1; ; polls++ {
		resp, err := r.client.poll(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("udns: polling location %s: %w", location, err)
		}

		r.client.metrics.polled(pollKindLocation)

		r.notify(location, resp)

		// Only a JSON object can report progress; anything else is final.
		if _, ok := resp.Object(); !ok {
			return resp, nil
		}

		if locationDone(resp) {
			r.logger.Info("location reached terminal state",
				slog.String("location", location),
				slog.Int("polls", polls),
			)

			return resp, nil
		}

		if err := r.sleepFunc(ctx, r.pollInterval); err != nil {
			return nil, fmt.Errorf("udns: waiting for location %s: %w", location, err)
		}
	}
}

// locationDone reports whether either the state or status field holds a
// terminal value.
func locationDone(resp *Response) bool {
	for _, key := range []string{"state", "status"} {
		v := strings.ToUpper(resp.String(key))
		if v == locationCompleted || v == locationError {
			return true
		}
	}

	return false
}

func (r *TaskResolver) notify(handle string, resp *Response) {
	if r.onPoll != nil {
		r.onPoll(handle, resp)
	}
}
