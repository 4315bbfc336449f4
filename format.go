package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(quiet bool, format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Flags.Quiet, format, args...)
}

// formatSize returns a human-readable binary size (e.g. "1.5 KiB").
func formatSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	return humanize.IBytes(uint64(bytes))
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	now := time.Now()

	// Same calendar year: show "Jan  2 15:04"
	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	// Different year: show "Jan  2  2006"
	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// writeResponse prints an API response in its natural form: JSON bodies
// indented, text verbatim, binary bodies raw.
func writeResponse(w io.Writer, resp *udns.Response) error {
	switch resp.Kind {
	case udns.KindEmpty:
		return nil
	case udns.KindText:
		_, err := io.WriteString(w, resp.Text)
		return err
	case udns.KindBytes:
		_, err := w.Write(resp.Bytes)
		return err
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(resp.Unwrap()); err != nil {
			return fmt.Errorf("encoding JSON output: %w", err)
		}

		return nil
	}
}

// printResult writes resp to the command output and turns an HTTP error
// response into a non-nil error, so the exit status reflects it even
// though the body was printed.
func (cc *CLIContext) printResult(resp *udns.Response) error {
	if err := writeResponse(cc.Out, resp); err != nil {
		return err
	}

	return resp.Err()
}
