package udns

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// tokenPath is the OAuth-style token endpoint for both grants.
const tokenPath = "/v1/authorization/token"

// Credentials selects how a client obtains its token pair: either a
// username/password grant, or an existing access/refresh pair.
type Credentials struct {
	Username     string
	Password     string
	AccessToken  string
	RefreshToken string
}

// Authenticate installs credentials on the client's session. An explicit
// token pair is used as-is; otherwise a password grant is performed.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) error {
	if creds.AccessToken != "" {
		if creds.RefreshToken == "" {
			c.logger.Warn("bearer token supplied without a refresh token, session will expire with it")
		}

		c.session.SetToken(creds.AccessToken, creds.RefreshToken, 0)

		return nil
	}

	if creds.Username == "" {
		return ErrNotLoggedIn
	}

	if creds.Password == "" {
		return ErrMissingPassword
	}

	return c.Auth(ctx, creds.Username, creds.Password)
}

// Auth performs the password grant and stores the returned token pair.
// Any non-200 answer fails with *AuthError.
func (c *Client) Auth(ctx context.Context, username, password string) error {
	c.logger.Info("authenticating", slog.String("username", username))

	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}

	return c.requestToken(ctx, form)
}

// Refresh exchanges the stored refresh token for a new token pair.
// Concurrent callers share one in-flight refresh. The refresh itself ignores
// the cancellation of ctx, so one caller giving up does not fail the others,
// and is bounded by refreshTimeout instead; a canceled caller stops waiting
// and gets ctx's error. A failed refresh is returned as is and never retried.
func (c *Client) Refresh(ctx context.Context) error {
	ch := c.refreshes.DoChan(refreshFlightKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		return nil, c.refresh(rctx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("joined in-flight token refresh")
		}

		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("udns: token refresh: %w", ctx.Err())
	}
}

func (c *Client) refresh(ctx context.Context) error {
	tok := c.session.Token()

	c.logger.Info("refreshing access token")

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {tok.RefreshToken},
	}

	return c.requestToken(ctx, form)
}

// requestToken posts a grant to the token endpoint and, on success, replaces
// the session's token pair.
func (c *Client) requestToken(ctx context.Context, form url.Values) error {
	grant := form.Get("grant_type")
	target := c.session.BaseURL() + tokenPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("udns: creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("udns: token request (%s): %w", grant, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("udns: reading token response: %w", err)
	}

	body := map[string]any{}
	if v, decodeErr := decodeJSON(raw); decodeErr == nil {
		if obj, ok := v.(map[string]any); ok {
			body = obj
		}
	}

	if resp.StatusCode != http.StatusOK {
		authErr := &AuthError{StatusCode: resp.StatusCode, Body: body}
		authErr.Code, authErr.Message = apiErrorFields(body)

		if authErr.Message == "" {
			authErr.Message = strings.TrimSpace(string(raw))
		}

		c.logger.Warn("token request rejected",
			slog.String("grant_type", grant),
			slog.Int("status", resp.StatusCode),
			slog.String("error_code", authErr.Code),
		)

		return authErr
	}

	access := scalarString(body["accessToken"])
	refresh := scalarString(body["refreshToken"])
	expiresIn := parseExpiresIn(body["expiresIn"])

	c.session.SetToken(access, refresh, expiresIn)

	c.logger.Info("token pair updated",
		slog.String("grant_type", grant),
		slog.Duration("expires_in", expiresIn),
	)

	if c.onToken != nil {
		c.onToken(c.session.Token())
	}

	return nil
}

// parseExpiresIn reads the token lifetime in seconds. The API sends it as a
// string; numbers are accepted too.
func parseExpiresIn(v any) time.Duration {
	seconds, err := strconv.ParseInt(scalarString(v), 10, 64)
	if err != nil || seconds <= 0 {
		return 0
	}

	return time.Duration(seconds) * time.Second
}
