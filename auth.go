package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/config"
	"github.com/tonimelisma/ultradns-go/internal/tokenfile"
)

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a username and password and save the session",
		Long: `Authenticate against the configured host and save the access/refresh
token pair. The password is read from ` + config.EnvPassword + ` or, with
--password-stdin, from the first line of standard input. It is never stored.

On success the username (and --host, if given) are written to the config
file so later commands find them.`,
		RunE: runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "account user (default from config)")
	cmd.Flags().Bool("password-stdin", false, "read the password from stdin")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved session",
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the saved session and the accounts it can reach",
		RunE:  runWhoami,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	cfg := cc.Cfg

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		username = cfg.Username
	}

	if username == "" {
		return errors.New("username required: pass --username or set username in the config file")
	}

	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	password, err := loginPassword(cfg.Password, fromStdin, cmd.InOrStdin())
	if err != nil {
		return err
	}

	session, err := newSession(cfg)
	if err != nil {
		return err
	}

	cc.Logger.Info("login started", slog.String("host", cfg.Host), slog.String("username", username))

	client := cc.newAPIClient(session, username)
	if err := client.Auth(cmd.Context(), username, password); err != nil {
		return err
	}

	if err := rememberLogin(cc, cmd, username); err != nil {
		cc.Logger.Warn("could not update config file", slog.String("error", err.Error()))
	}

	cc.Statusf("Logged in to %s as %s.\n", cfg.Host, username)

	return nil
}

// loginPassword picks the password source: the environment first, then
// stdin when asked for. A terminal on stdin is refused since the password
// would echo.
func loginPassword(envPassword string, fromStdin bool, stdin io.Reader) (string, error) {
	if envPassword != "" {
		return envPassword, nil
	}

	if !fromStdin {
		return "", fmt.Errorf("no password: set %s or pass --password-stdin", config.EnvPassword)
	}

	if f, ok := stdin.(*os.File); ok && isTerminal(f) {
		return "", errors.New("--password-stdin needs piped input, e.g. 'cat pw.txt | ultradns-go login --password-stdin'")
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}

	return password, nil
}

// rememberLogin writes the username, and an explicit --host, to the config
// file so the next command targets the same account.
func rememberLogin(cc *CLIContext, cmd *cobra.Command, username string) error {
	path := cc.Cfg.ConfigPath

	if username != cc.Cfg.Username || cc.Cfg.Username == "" {
		if err := config.SetKey(path, "username", username); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("host") {
		return config.SetKey(path, "host", cc.Cfg.Host)
	}

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := tokenfile.Remove(cc.Cfg.TokenFile); err != nil {
		return err
	}

	cc.Logger.Info("logout successful", slog.String("path", cc.Cfg.TokenFile))
	cc.Statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the JSON schema for `whoami --json`.
type whoamiOutput struct {
	Host      string    `json:"host"`
	Username  string    `json:"username"`
	SavedAt   time.Time `json:"saved_at"`
	Expiry    time.Time `json:"expiry,omitempty"`
	TokenFile string    `json:"token_file"`
	Accounts  any       `json:"accounts,omitempty"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	saved, err := tokenfile.Load(cc.Cfg.TokenFile)
	if err != nil {
		return err
	}

	if saved == nil {
		return errors.New("not logged in, run 'ultradns-go login' first")
	}

	out := whoamiOutput{
		Host:      saved.Host,
		Username:  saved.Username,
		SavedAt:   saved.SavedAt,
		Expiry:    saved.Token.Expiry,
		TokenFile: cc.Cfg.TokenFile,
	}

	client, err := cc.authenticatedClient(cmd.Context())
	if err != nil {
		return err
	}

	resp, err := client.AccountDetails(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetching account details: %w", err)
	}

	if err := resp.Err(); err != nil {
		return fmt.Errorf("fetching account details: %w", err)
	}

	out.Accounts, _ = resp.Get("accounts")

	if cc.Flags.JSON {
		enc := json.NewEncoder(cc.Out)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	fmt.Fprintf(cc.Out, "Host:     %s\n", out.Host)
	fmt.Fprintf(cc.Out, "User:     %s\n", out.Username)
	fmt.Fprintf(cc.Out, "Saved:    %s\n", formatTime(out.SavedAt))

	if !out.Expiry.IsZero() {
		fmt.Fprintf(cc.Out, "Expires:  %s\n", formatTime(out.Expiry))
	}

	accounts, _ := out.Accounts.([]any)
	for _, a := range accounts {
		acct, _ := a.(map[string]any)
		fmt.Fprintf(cc.Out, "Account:  %v (%v)\n", acct["accountName"], acct["accountType"])
	}

	return nil
}
