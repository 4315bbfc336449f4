package udns

import (
	"crypto/tls"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// DefaultHost is the production API host.
const DefaultHost = "api.ultradns.com"

// reservedHeaders are set by the pipeline on every request.
var reservedHeaders = []string{"Authorization", "Content-Type", "Accept"}

// Session is the per-client connection state: where to connect, how, and
// with which token pair. The token pair is always replaced as a whole.
// A Session is safe for concurrent use.
type Session struct {
	Host    string
	UseHTTP bool // plaintext transport, for test servers only

	// Proxy, when set, routes every request through the given proxy URL.
	Proxy *url.URL
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	mu      sync.RWMutex
	token   oauth2.Token
	headers map[string]string
}

// NewSession returns a session for host with no credentials yet.
func NewSession(host string, useHTTP bool) *Session {
	if host == "" {
		host = DefaultHost
	}

	return &Session{
		Host:    host,
		UseHTTP: useHTTP,
		headers: make(map[string]string),
	}
}

// BaseURL returns the scheme and host requests are sent to. A host that
// already carries a scheme is used as-is.
func (s *Session) BaseURL() string {
	if strings.HasPrefix(s.Host, "https://") || strings.HasPrefix(s.Host, "http://") {
		return strings.TrimSuffix(s.Host, "/")
	}

	if s.UseHTTP {
		return "http://" + s.Host
	}

	return "https://" + s.Host
}

// Token returns a copy of the current token pair.
func (s *Session) Token() oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// SetToken replaces the token pair. expiresIn may be zero when unknown.
func (s *Session) SetToken(access, refresh string, expiresIn time.Duration) {
	tok := oauth2.Token{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}

	if expiresIn > 0 {
		tok.Expiry = time.Now().Add(expiresIn)
	}

	s.mu.Lock()
	s.token = tok
	s.mu.Unlock()
}

// RestoreToken installs a previously persisted token pair.
func (s *Session) RestoreToken(tok *oauth2.Token) {
	if tok == nil {
		return
	}

	s.mu.Lock()
	s.token = *tok
	s.mu.Unlock()
}

// HasToken reports whether an access token is present.
func (s *Session) HasToken() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token.AccessToken != ""
}

// IsReservedHeader reports whether name is one of the headers the client
// always sets itself (case-insensitive).
func IsReservedHeader(name string) bool {
	for _, reserved := range reservedHeaders {
		if strings.EqualFold(name, reserved) {
			return true
		}
	}

	return false
}

// SetCustomHeaders merges headers into the custom header set. Reserved
// header names are rejected (case-insensitive) and nothing is applied.
func (s *Session) SetCustomHeaders(headers map[string]string) error {
	for name := range headers {
		if IsReservedHeader(name) {
			return fmt.Errorf("%w: %q", ErrForbiddenHeader, name)
		}
	}

	s.mu.Lock()
	if s.headers == nil {
		s.headers = make(map[string]string, len(headers))
	}

	maps.Copy(s.headers, headers)
	s.mu.Unlock()

	return nil
}

// CustomHeaders returns a copy of the custom header set.
func (s *Session) CustomHeaders() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.headers)
}

// NewHTTPClient builds an http.Client honoring the session's proxy and TLS
// settings. A zero timeout means no client-side timeout.
func (s *Session) NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default is always *http.Transport

	if s.Proxy != nil {
		transport.Proxy = http.ProxyURL(s.Proxy)
	}

	if s.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for lab hosts with self-signed certs
	}

	return &http.Client{Transport: transport, Timeout: timeout}
}
