package udns

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// Pipeline constants.
const (
	// rateLimitBackoff is the fixed wait before the single 429 retry.
	rateLimitBackoff = 1 * time.Second

	// tokenInvalidCode is the API's errorCode for a missing, expired, or
	// invalid access token.
	tokenInvalidCode = "60001"

	// refreshTimeout bounds a shared token refresh, which outlives the
	// cancellation of whichever caller started it.
	refreshTimeout = 30 * time.Second

	defaultUserAgent = "ultradns-go/0.1"
	contentTypeJSON  = "application/json"
	contentTypeText  = "text/plain"
	contentTypeZip   = "application/zip"
	headerTaskID     = "X-Task-Id"
	headerLocation   = "Location"
	refreshFlightKey = "refresh"
)

// FilePart is one part of a multipart upload.
type FilePart struct {
	Field       string
	FileName    string
	ContentType string
	Content     []byte
}

// Request describes a single API call. Body is kept as bytes so the call can
// be reissued unchanged after a refresh or a rate-limit wait.
type Request struct {
	Method      string
	URI         string // path relative to the session base URL, or an absolute URL
	Query       url.Values
	Body        []byte
	Files       []FilePart
	ContentType string
	// NoRetry disables the transparent refresh-and-retry and the 429 retry.
	// Reissued calls always carry it, which bounds each logical call to one
	// extra attempt.
	NoRetry bool
	// Passthrough returns error bodies as data even on a strict client.
	// Polls use it: "not ready" and terminal task states arrive as 4xx bodies
	// that the resolvers interpret themselves.
	Passthrough bool
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithStrictErrors makes non-2xx responses fail with *RestError instead of
// being returned as data.
func WithStrictErrors() Option {
	return func(c *Client) { c.strictErrors = true }
}

// WithTokenObserver registers fn to be called after every successful auth or
// refresh with the new token pair, e.g. to persist it.
func WithTokenObserver(fn func(oauth2.Token)) Option {
	return func(c *Client) { c.onToken = fn }
}

// Client is an HTTP client for the UltraDNS REST API.
// It handles header construction, response normalization, transparent token
// refresh on errorCode 60001, and a single retry after HTTP 429.
type Client struct {
	session      *Session
	httpClient   *http.Client
	logger       *slog.Logger
	userAgent    string
	strictErrors bool
	onToken      func(oauth2.Token)
	metrics      *metrics

	// refreshes collapses concurrent refreshes of the shared token pair.
	refreshes singleflight.Group

	// sleepFunc is called to wait before retries and between polls.
	// Defaults to timeSleep. Tests override this to avoid real delays.
	sleepFunc func(ctx context.Context, d time.Duration) error
}

// NewClient creates an API client bound to session.
func NewClient(session *Session, httpClient *http.Client, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		session:    session,
		httpClient: httpClient,
		logger:     logger,
		userAgent:  defaultUserAgent,
		sleepFunc:  timeSleep,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Session returns the client's session.
func (c *Client) Session() *Session {
	return c.session
}

// Call executes req and returns the normalized response.
//
// HTTP 204 yields an empty response. HTTP 429 waits once and reissues with
// retries disabled. text/plain and application/zip bodies are returned raw;
// everything else is decoded as JSON, falling back to an empty object. On
// HTTP 202 the x-task-id and location headers are merged into the body. A
// body with errorCode 60001 triggers one refresh and one reissue.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	httpResp, err := c.doOnce(ctx, &req)
	if err != nil {
		c.metrics.observeRequest(req.Method, 0, time.Since(start))

		if ctx.Err() != nil {
			return nil, fmt.Errorf("udns: request canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("udns: %s %s: %w", req.Method, req.URI, err)
	}

	body, readErr := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()

	if readErr != nil {
		return nil, fmt.Errorf("udns: %s %s: reading response: %w", req.Method, req.URI, readErr)
	}

	status := httpResp.StatusCode
	c.metrics.observeRequest(req.Method, status, time.Since(start))

	if status == http.StatusNoContent {
		c.logger.Debug("request succeeded with no content",
			slog.String("method", req.Method),
			slog.String("uri", req.URI),
		)

		return &Response{Kind: KindEmpty, StatusCode: status}, nil
	}

	if status == http.StatusTooManyRequests {
		c.metrics.throttled()
	}

	if status == http.StatusTooManyRequests && !req.NoRetry {
		c.logger.Warn("rate limited, retrying once",
			slog.String("method", req.Method),
			slog.String("uri", req.URI),
			slog.Duration("backoff", rateLimitBackoff),
		)

		if err := c.sleepFunc(ctx, rateLimitBackoff); err != nil {
			return nil, fmt.Errorf("udns: request canceled: %w", err)
		}

		req.NoRetry = true

		return c.Call(ctx, req)
	}

	resp := normalize(status, httpResp.Header, body)

	if !req.NoRetry && resp.ErrorCode() == tokenInvalidCode {
		c.logger.Info("access token rejected, refreshing",
			slog.String("method", req.Method),
			slog.String("uri", req.URI),
		)

		c.metrics.refreshed()

		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}

		req.NoRetry = true

		return c.Call(ctx, req)
	}

	c.logger.Debug("request completed",
		slog.String("method", req.Method),
		slog.String("uri", req.URI),
		slog.Int("status", status),
		slog.String("kind", resp.Kind.String()),
	)

	if c.strictErrors && !req.Passthrough && status >= http.StatusBadRequest {
		return nil, newRestError(resp)
	}

	return resp, nil
}

// normalize turns a raw HTTP response into a Response envelope.
func normalize(status int, header http.Header, body []byte) *Response {
	mediaType, _, _ := mime.ParseMediaType(header.Get("Content-Type"))

	switch mediaType {
	case contentTypeText:
		return &Response{Kind: KindText, StatusCode: status, Text: string(body)}
	case contentTypeZip:
		return &Response{Kind: KindBytes, StatusCode: status, Bytes: body}
	}

	resp := emptyObject(status)

	if len(bytes.TrimSpace(body)) > 0 {
		if v, err := decodeJSON(body); err == nil && v != nil {
			resp.Value = v
		}
	}

	if status == http.StatusAccepted {
		mergeAsyncHeaders(resp, header)
	}

	return resp
}

// mergeAsyncHeaders copies the async handles of an accepted response into
// its body. Non-object bodies have nowhere to put them and are left alone.
func mergeAsyncHeaders(resp *Response, header http.Header) {
	obj, ok := resp.Object()
	if !ok {
		return
	}

	if id := header.Get(headerTaskID); id != "" {
		obj[KeyTaskID] = id
	}

	if loc := header.Get(headerLocation); loc != "" {
		obj[KeyLocation] = loc
	}
}

// newRestError builds the strict-mode error for a failed response.
func newRestError(resp *Response) *RestError {
	restErr := &RestError{
		StatusCode: resp.StatusCode,
		Body:       resp.Unwrap(),
		Err:        classifyStatus(resp.StatusCode),
	}

	if obj, ok := resp.Object(); ok {
		restErr.Code, restErr.Message = apiErrorFields(obj)
	}

	// Batch and list endpoints wrap errors in an array of objects.
	if list, ok := resp.Value.([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			restErr.Code, restErr.Message = apiErrorFields(first)
		}
	}

	if resp.Kind == KindText {
		restErr.Message = resp.Text
	}

	if restErr.Message == "" {
		restErr.Message = http.StatusText(resp.StatusCode)
	}

	return restErr
}

// doOnce executes a single HTTP request (no retry).
func (c *Client) doOnce(ctx context.Context, req *Request) (*http.Response, error) {
	target, err := c.resolveURL(req.URI, req.Query)
	if err != nil {
		return nil, err
	}

	body, contentType, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.setHeaders(httpReq.Header, contentType)

	return c.httpClient.Do(httpReq)
}

// setHeaders applies custom headers first, then the reserved ones, so
// custom headers can never override Accept, Authorization, or Content-Type.
func (c *Client) setHeaders(h http.Header, contentType string) {
	for name, value := range c.session.CustomHeaders() {
		h.Set(name, value)
	}

	if h.Get("User-Agent") == "" {
		h.Set("User-Agent", c.userAgent)
	}

	tok := c.session.Token()

	h.Set("Accept", contentTypeJSON)
	h.Set("Authorization", "Bearer "+tok.AccessToken)

	if contentType != "" {
		h.Set("Content-Type", contentType)
	} else {
		h.Del("Content-Type")
	}
}

// resolveURL joins uri onto the base URL unless it is already absolute,
// which is the case for server-supplied location handles.
func (c *Client) resolveURL(uri string, query url.Values) (string, error) {
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.session.BaseURL() + uri
	}

	if len(query) == 0 {
		return target, nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parsing request URL %q: %w", target, err)
	}

	q := u.Query()
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// encodeBody returns a fresh body reader and its content type. Multipart
// uploads get the writer's boundary content type in place of ContentType.
func (r *Request) encodeBody() (io.Reader, string, error) {
	if len(r.Files) == 0 {
		if r.Body == nil {
			return nil, r.ContentType, nil
		}

		return bytes.NewReader(r.Body), r.ContentType, nil
	}

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	for _, f := range r.Files {
		header := make(textproto.MIMEHeader)

		disposition := fmt.Sprintf(`form-data; name=%q`, f.Field)
		if f.FileName != "" {
			disposition += fmt.Sprintf(`; filename=%q`, f.FileName)
		}

		header.Set("Content-Disposition", disposition)

		if f.ContentType != "" {
			header.Set("Content-Type", f.ContentType)
		}

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("creating multipart field %q: %w", f.Field, err)
		}

		if _, err := part.Write(f.Content); err != nil {
			return nil, "", fmt.Errorf("writing multipart field %q: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

// jsonRequest builds a request with a JSON body. body may be nil, raw JSON
// bytes, or any value encoding/json accepts.
func jsonRequest(method, uri string, body any) (Request, error) {
	req := Request{Method: method, URI: uri, ContentType: contentTypeJSON}

	switch b := body.(type) {
	case nil:
	case []byte:
		req.Body = b
	case json.RawMessage:
		req.Body = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return Request{}, fmt.Errorf("udns: encoding %s %s body: %w", method, uri, err)
		}

		req.Body = data
	}

	return req, nil
}

// Get issues a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, uri string, query url.Values) (*Response, error) {
	return c.Call(ctx, Request{Method: http.MethodGet, URI: uri, Query: query, ContentType: contentTypeJSON})
}

// poll issues a passthrough GET for the resolvers.
func (c *Client) poll(ctx context.Context, uri string) (*Response, error) {
	return c.Call(ctx, Request{Method: http.MethodGet, URI: uri, ContentType: contentTypeJSON, Passthrough: true})
}

// Post issues a POST with a JSON body (nil for none).
func (c *Client) Post(ctx context.Context, uri string, body any) (*Response, error) {
	return c.callJSON(ctx, http.MethodPost, uri, body)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, uri string, body any) (*Response, error) {
	return c.callJSON(ctx, http.MethodPut, uri, body)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, uri string, body any) (*Response, error) {
	return c.callJSON(ctx, http.MethodPatch, uri, body)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, uri string) (*Response, error) {
	return c.callJSON(ctx, http.MethodDelete, uri, nil)
}

// PostMultipart issues a multipart/form-data POST.
func (c *Client) PostMultipart(ctx context.Context, uri string, files []FilePart) (*Response, error) {
	return c.Call(ctx, Request{Method: http.MethodPost, URI: uri, Files: files})
}

func (c *Client) callJSON(ctx context.Context, method, uri string, body any) (*Response, error) {
	req, err := jsonRequest(method, uri, body)
	if err != nil {
		return nil, err
	}

	return c.Call(ctx, req)
}

// timeSleep waits for the given duration or until the context is canceled.
// It is the default sleepFunc for Client.
func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
