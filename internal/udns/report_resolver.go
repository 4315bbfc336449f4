package udns

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MaxRetriesMessage is the error text of the synthetic result returned when
// a report is still not ready after MaxRetries polls.
const MaxRetriesMessage = "Maximum retry limit reached"

// reportPendingCodes are the error codes the reporting API uses for "still
// processing".
var reportPendingCodes = map[string]bool{
	"410004": true,
	"410005": true,
}

// ReportResolver turns a response carrying a requestId into the finished
// report by polling the report results endpoint.
type ReportResolver struct {
	client       *Client
	logger       *slog.Logger
	pollInterval time.Duration
	maxRetries   int
	onPoll       PollFunc
	sleepFunc    func(ctx context.Context, d time.Duration) error
}

// NewReportResolver returns a resolver that polls through client with no
// retry ceiling.
func NewReportResolver(client *Client) *ReportResolver {
	return &ReportResolver{
		client:       client,
		logger:       client.logger,
		pollInterval: DefaultPollInterval,
		sleepFunc:    client.sleepFunc,
	}
}

// WithPollInterval sets the wait between polls.
func (r *ReportResolver) WithPollInterval(d time.Duration) *ReportResolver {
	if d > 0 {
		r.pollInterval = d
	}

	return r
}

// WithMaxRetries caps the number of polls. Zero or negative means
// unbounded, which is also the default: a ceiling of zero does not return
// the MaxRetriesMessage result without polling. Use 1 for a single poll.
func (r *ReportResolver) WithMaxRetries(n int) *ReportResolver {
	r.maxRetries = n
	return r
}

// OnPoll registers a progress callback.
func (r *ReportResolver) OnPoll(fn PollFunc) *ReportResolver {
	r.onPoll = fn
	return r
}

// Resolve polls until the report identified by resp's requestId is no longer
// pending. A response without a requestId is returned unchanged. When the
// retry ceiling is hit the result is a synthetic object carrying
// MaxRetriesMessage and the requestId.
func (r *ReportResolver) Resolve(ctx context.Context, resp *Response) (*Response, error) {
	requestID := resp.RequestID()
	if requestID == "" {
		return resp, nil
	}

	r.logger.Info("waiting for report", slog.String("request_id", requestID))

	for polls := 0; ; polls++ {
		if r.maxRetries > 0 && polls >= r.maxRetries {
			r.logger.Warn("report not ready after retry limit",
				slog.String("request_id", requestID),
				slog.Int("max_retries", r.maxRetries),
			)

			return NewObjectResponse(map[string]any{
				"error":      MaxRetriesMessage,
				KeyRequestID: requestID,
			}), nil
		}

		result, err := r.client.poll(ctx, joinPath(reportResultsPath, requestID))
		if err != nil {
			return nil, fmt.Errorf("udns: polling report %s: %w", requestID, err)
		}

		r.client.metrics.polled(pollKindReport)

		if r.onPoll != nil {
			r.onPoll(requestID, result)
		}

		if !reportPending(result) {
			r.logger.Info("report ready",
				slog.String("request_id", requestID),
				slog.Int("polls", polls+1),
			)

			return result, nil
		}

		if err := r.sleepFunc(ctx, r.pollInterval); err != nil {
			return nil, fmt.Errorf("udns: waiting for report %s: %w", requestID, err)
		}
	}
}

// reportPending reports whether result says "not ready yet". An errors list
// counts only when every entry carries a pending code; a mixed list is a
// real failure and final. Without an errors list, a top-level pending
// errorCode counts.
func reportPending(result *Response) bool {
	obj, ok := result.Object()
	if !ok {
		return false
	}

	if list, ok := obj["errors"].([]any); ok {
		if len(list) == 0 {
			return false
		}

		for _, entry := range list {
			e, ok := entry.(map[string]any)
			if !ok || !reportPendingCodes[scalarString(e["code"])] {
				return false
			}
		}

		return true
	}

	if code, ok := obj[KeyErrorCode]; ok {
		return reportPendingCodes[scalarString(code)]
	}

	return false
}
