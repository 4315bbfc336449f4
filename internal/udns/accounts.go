package udns

import "context"

// AccountDetails lists the accounts the user belongs to.
func (c *Client) AccountDetails(ctx context.Context) (*Response, error) {
	return c.Get(ctx, "/v1/accounts", nil)
}

// Version returns the API version.
func (c *Client) Version(ctx context.Context) (*Response, error) {
	return c.Get(ctx, "/v1/version", nil)
}

// Status returns the API service status.
func (c *Client) Status(ctx context.Context) (*Response, error) {
	return c.Get(ctx, "/v1/status", nil)
}
