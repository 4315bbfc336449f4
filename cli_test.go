package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/ultradns-go/internal/config"
	"github.com/tonimelisma/ultradns-go/internal/tokenfile"
)

// testCLIContext returns a CLIContext for host with a saved session, a
// private ledger, and a 1ms poll interval. Command output lands in the
// returned buffer.
func testCLIContext(t *testing.T, host string) (*CLIContext, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	out := &bytes.Buffer{}

	cfg := &config.Resolved{
		ConfigPath:     filepath.Join(dir, "config.toml"),
		Host:           host,
		Username:       "jdoe",
		UserAgent:      "ultradns-go-test",
		RequestTimeout: 5 * time.Second,
		TokenFile:      filepath.Join(dir, "session.json"),
		LedgerFile:     filepath.Join(dir, "ledger.db"),
		PollInterval:   time.Millisecond,
		LogLevel:       "warn",
		LogFormat:      "text",
	}

	require.NoError(t, tokenfile.Save(cfg.TokenFile, &tokenfile.File{
		Token: &oauth2.Token{
			AccessToken:  "access",
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		},
		Host:     host,
		Username: "jdoe",
	}))

	return &CLIContext{
		Flags:  CLIFlags{Quiet: true},
		Cfg:    cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    out,
	}, out
}

// runCmd executes cmd with args and cc installed in its context.
func runCmd(cc *CLIContext, cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	return cmd.ExecuteContext(context.WithValue(context.Background(), cliContextKey{}, cc))
}

// apiRequest is one request seen by apiServer.
type apiRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// apiServer is a canned-response UltraDNS stand-in. Routes are keyed by
// "METHOD /path"; unknown routes answer 404 with error code 1801.
type apiServer struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []apiRequest
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()

	s := &apiServer{routes: make(map[string]http.HandlerFunc)}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.requests = append(s.requests, apiRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   string(body),
			Auth:   r.Header.Get("Authorization"),
		})
		h, ok := s.routes[r.Method+" "+r.URL.Path]
		s.mu.Unlock()

		if !ok {
			writeAPIJSON(w, http.StatusNotFound, `[{"errorCode":1801,"errorMessage":"not found"}]`)
			return
		}

		h(w, r)
	}))
	t.Cleanup(s.Close)

	return s
}

func (s *apiServer) handle(route string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.routes[route] = h
}

// reply registers a fixed JSON reply.
func (s *apiServer) reply(route string, status int, body string) {
	s.handle(route, func(w http.ResponseWriter, _ *http.Request) {
		writeAPIJSON(w, status, body)
	})
}

func (s *apiServer) seen() []apiRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]apiRequest(nil), s.requests...)
}

func writeAPIJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
