package udns

import (
	"context"
	"fmt"
	"strings"
)

// batchMethods are the verbs the batch endpoint accepts.
var batchMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true, "DELETE": true,
}

// BatchRequest is one entry of a batch. URI is relative to the API root.
type BatchRequest struct {
	Method string `json:"method"`
	URI    string `json:"uri"`
	Body   any    `json:"body,omitempty"`
}

// Batch sends several requests as one transaction. Per-request results come
// back as a JSON array in request order.
func (c *Client) Batch(ctx context.Context, reqs []BatchRequest) (*Response, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("udns: batch: no requests")
	}

	normalized := make([]BatchRequest, len(reqs))

	for i, r := range reqs {
		method := strings.ToUpper(r.Method)
		if !batchMethods[method] {
			return nil, fmt.Errorf("udns: batch request %d: unsupported method %q", i, r.Method)
		}

		if r.URI == "" {
			return nil, fmt.Errorf("udns: batch request %d: missing uri", i)
		}

		r.Method = method
		normalized[i] = r
	}

	return c.Post(ctx, "/v1/batch", normalized)
}
