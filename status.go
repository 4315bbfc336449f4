package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/tokenfile"
	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// Session state constants for status reporting.
const (
	sessionStateMissing = "missing"
	sessionStateExpired = "expired"
	sessionStateValid   = "valid"
	sessionStateForeign = "other host"
	apiStateUnreachable = "unreachable"
	valueNotAvailable   = "-"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the API service status and the saved session",
		Long: `Display the configured host, the saved session's state, and the API's
service status and version. An expired access token is refreshed on the way.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Host          string    `json:"host"`
	Username      string    `json:"username,omitempty"`
	SessionState  string    `json:"session_state"`
	SessionExpiry time.Time `json:"session_expiry,omitempty"`
	APIStatus     string    `json:"api_status"`
	APIVersion    string    `json:"api_version,omitempty"`
	Error         string    `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	out := statusOutput{
		Host:     cc.Cfg.Host,
		Username: cc.Cfg.Username,
	}

	saved, err := tokenfile.Load(cc.Cfg.TokenFile)
	if err != nil {
		return err
	}

	out.SessionState = sessionState(saved, cc.Cfg.Host, time.Now())
	if saved != nil {
		out.SessionExpiry = saved.Token.Expiry

		if saved.Username != "" {
			out.Username = saved.Username
		}
	}

	out.APIStatus, out.APIVersion, err = cc.probeAPI(cmd.Context())
	if err != nil {
		out.APIStatus = apiStateUnreachable
		out.Error = err.Error()
	}

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Out)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	printStatusText(cc, &out)

	return nil
}

// sessionState classifies a saved session against the configured host.
func sessionState(saved *tokenfile.File, host string, now time.Time) string {
	switch {
	case saved == nil:
		return sessionStateMissing
	case !saved.Matches(host):
		return sessionStateForeign
	case !saved.Token.Expiry.IsZero() && saved.Token.Expiry.Before(now) && saved.Token.RefreshToken == "":
		return sessionStateExpired
	default:
		return sessionStateValid
	}
}

// probeAPI reads the service status and version.
func (cc *CLIContext) probeAPI(ctx context.Context) (status, apiVersion string, err error) {
	client, err := cc.authenticatedClient(ctx)
	if err != nil {
		return "", "", err
	}

	resp, err := client.Status(ctx)
	if err != nil {
		return "", "", err
	}

	if err := resp.Err(); err != nil {
		return "", "", err
	}

	status = firstString(resp, "message", "status")

	resp, err = client.Version(ctx)
	if err != nil {
		return status, "", err
	}

	if resp.Err() == nil {
		apiVersion = firstString(resp, "version")
	}

	return status, apiVersion, nil
}

// firstString returns the first non-empty string field among keys. A text
// body counts as the value itself.
func firstString(resp *udns.Response, keys ...string) string {
	if resp.Kind == udns.KindText {
		return resp.Text
	}

	for _, key := range keys {
		if v := resp.String(key); v != "" {
			return v
		}
	}

	return valueNotAvailable
}

func printStatusText(cc *CLIContext, out *statusOutput) {
	expiry := valueNotAvailable
	if !out.SessionExpiry.IsZero() {
		expiry = formatTime(out.SessionExpiry.Local())
	}

	username := out.Username
	if username == "" {
		username = valueNotAvailable
	}

	fmt.Fprintf(cc.Out, "Host:        %s\n", out.Host)
	fmt.Fprintf(cc.Out, "Username:    %s\n", username)
	fmt.Fprintf(cc.Out, "Session:     %s (expires %s)\n", out.SessionState, expiry)
	fmt.Fprintf(cc.Out, "API status:  %s\n", out.APIStatus)

	if out.APIVersion != "" {
		fmt.Fprintf(cc.Out, "API version: %s\n", out.APIVersion)
	}

	if out.Error != "" {
		fmt.Fprintf(cc.Out, "Error:       %s\n", out.Error)
	}
}
