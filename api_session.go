package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/ultradns-go/internal/config"
	"github.com/tonimelisma/ultradns-go/internal/tokenfile"
	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// newSession builds an unauthenticated session from the resolved config.
func newSession(cfg *config.Resolved) (*udns.Session, error) {
	session := udns.NewSession(cfg.Host, cfg.UseHTTP)
	session.Proxy = cfg.Proxy
	session.InsecureSkipVerify = cfg.InsecureSkipVerify

	if err := session.SetCustomHeaders(cfg.Headers); err != nil {
		return nil, fmt.Errorf("custom headers: %w", err)
	}

	return session, nil
}

// newAPIClient builds a client for the configured host. Every new token
// pair the client obtains is written back to the session file under
// username.
func (cc *CLIContext) newAPIClient(session *udns.Session, username string) *udns.Client {
	cfg := cc.Cfg

	opts := []udns.Option{
		udns.WithUserAgent(cfg.UserAgent),
		udns.WithTokenObserver(func(tok oauth2.Token) {
			cc.saveSession(tok, username)
		}),
	}

	if cfg.StrictErrors {
		opts = append(opts, udns.WithStrictErrors())
	}

	if cc.Metrics != nil {
		opts = append(opts, udns.WithMetrics(cc.Metrics))
	}

	return udns.NewClient(session, session.NewHTTPClient(cfg.RequestTimeout), cc.Logger, opts...)
}

// authenticatedClient returns a client carrying credentials: the saved
// session when it belongs to the configured host, otherwise a fresh
// password grant when ULTRADNS_GO_PASSWORD and a username are available.
func (cc *CLIContext) authenticatedClient(ctx context.Context) (*udns.Client, error) {
	cfg := cc.Cfg

	session, err := newSession(cfg)
	if err != nil {
		return nil, err
	}

	saved, err := tokenfile.Load(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	if saved != nil && saved.Matches(cfg.Host) {
		session.RestoreToken(saved.Token)

		cc.Logger.Debug("restored saved session",
			slog.String("host", saved.Host),
			slog.String("username", saved.Username),
		)

		return cc.newAPIClient(session, saved.Username), nil
	}

	if saved != nil {
		cc.Logger.Warn("ignoring saved session for another host",
			slog.String("saved_host", saved.Host),
			slog.String("host", cfg.Host),
		)
	}

	client := cc.newAPIClient(session, cfg.Username)

	err = client.Authenticate(ctx, udns.Credentials{Username: cfg.Username, Password: cfg.Password})
	if err != nil {
		return nil, fmt.Errorf("%w (run 'ultradns-go login' or set %s)", err, config.EnvPassword)
	}

	return client, nil
}

// saveSession persists a token pair. Failures are logged, not returned:
// the in-memory session stays valid for the rest of the command.
func (cc *CLIContext) saveSession(tok oauth2.Token, username string) {
	tf := &tokenfile.File{Token: &tok, Host: cc.Cfg.Host, Username: username}

	if err := tokenfile.Save(cc.Cfg.TokenFile, tf); err != nil {
		cc.Logger.Warn("could not save session", slog.String("path", cc.Cfg.TokenFile), slog.String("error", err.Error()))
		return
	}

	cc.Logger.Debug("session saved", slog.String("path", cc.Cfg.TokenFile))
}

// writeMetrics dumps the command's client metrics to the --metrics-file
// path, replacing the file atomically.
func (cc *CLIContext) writeMetrics() error {
	if cc.Metrics == nil || cc.Flags.MetricsFile == "" {
		return nil
	}

	if err := prometheus.WriteToTextfile(cc.Flags.MetricsFile, cc.Metrics); err != nil {
		return fmt.Errorf("writing metrics: %w", err)
	}

	cc.Logger.Debug("metrics written", slog.String("path", cc.Flags.MetricsFile))

	return nil
}
