package config

import (
	"fmt"
	"io"
	"sort"
)

// RenderEffective writes the resolved configuration as an annotated TOML-like
// summary. It powers "config show". The password is never printed.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (config file: %s)\n\n", r.ConfigPath)

	ew.printf("host                 = %q\n", r.Host)
	ew.printf("use_http             = %t\n", r.UseHTTP)
	ew.printf("username             = %q\n", r.Username)
	ew.printf("user_agent           = %q\n", r.UserAgent)

	if r.Proxy != nil {
		ew.printf("proxy                = %q\n", r.Proxy.Redacted())
	}

	ew.printf("insecure_skip_verify = %t\n", r.InsecureSkipVerify)
	ew.printf("request_timeout      = %q\n", r.RequestTimeout.String())
	ew.printf("strict_errors        = %t\n", r.StrictErrors)
	ew.printf("token_file           = %q\n", r.TokenFile)
	ew.printf("ledger_file          = %q\n", r.LedgerFile)
	ew.printf("poll_interval        = %q\n", r.PollInterval.String())
	ew.printf("report_max_retries   = %d\n", r.ReportMaxRetries)
	ew.printf("log_level            = %q\n", r.LogLevel)
	ew.printf("log_format           = %q\n", r.LogFormat)

	if len(r.Headers) > 0 {
		names := make([]string, 0, len(r.Headers))
		for name := range r.Headers {
			names = append(names, name)
		}

		sort.Strings(names)

		ew.printf("\n[headers]\n")

		for _, name := range names {
			ew.printf("%q = %q\n", name, r.Headers[name])
		}
	}

	return ew.err
}

// errWriter wraps an io.Writer and keeps the first write error. Writes after
// an error are no-ops, so callers can chain printf calls.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
