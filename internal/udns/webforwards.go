package udns

import "context"

// Web forward types.
const (
	ForwardHTTP301 = "HTTP_301_REDIRECT"
	ForwardHTTP302 = "HTTP_302_REDIRECT"
	ForwardHTTP303 = "HTTP_303_REDIRECT"
	ForwardHTTP307 = "HTTP_307_REDIRECT"
)

type webForward struct {
	RequestTo          string `json:"requestTo"`
	DefaultRedirectTo  string `json:"defaultRedirectTo"`
	DefaultForwardType string `json:"defaultForwardType"`
}

func webForwardsPath(zoneName string) string {
	return zonePath(zoneName) + "/webforwards"
}

// WebForwards lists a zone's web forwards.
func (c *Client) WebForwards(ctx context.Context, zoneName string) (*Response, error) {
	return c.Get(ctx, webForwardsPath(zoneName), nil)
}

// CreateWebForward redirects requestTo to redirectTo with the given forward
// type (one of the Forward* constants).
func (c *Client) CreateWebForward(ctx context.Context, zoneName, requestTo, redirectTo, forwardType string) (*Response, error) {
	return c.Post(ctx, webForwardsPath(zoneName), webForward{
		RequestTo:          requestTo,
		DefaultRedirectTo:  redirectTo,
		DefaultForwardType: forwardType,
	})
}

// DeleteWebForward removes the web forward with the given guid.
func (c *Client) DeleteWebForward(ctx context.Context, zoneName, guid string) (*Response, error) {
	return c.Delete(ctx, webForwardsPath(zoneName)+"/"+segment(guid))
}
