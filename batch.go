package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/udns"
)

func newBatchCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Send several requests as one transaction",
		Long: `Send the requests in a JSON file to the batch endpoint. The file holds
an array of {"method", "uri", "body"} objects; "-" reads standard input.

With --wait an accepted batch is polled to completion.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			reqs, err := readBatchFile(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			client, err := cc.authenticatedClient(cmd.Context())
			if err != nil {
				return err
			}

			resp, err := client.Batch(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			if wait && resp.Err() == nil {
				if resp, err = cc.awaitAsync(cmd, client, resp); err != nil {
					return err
				}
			}

			return cc.printResult(resp)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "wait for an asynchronous batch to finish")

	return cmd
}

// readBatchFile decodes the batch request list from path, or from stdin
// when path is "-".
func readBatchFile(path string, stdin io.Reader) ([]udns.BatchRequest, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("reading batch file: %w", err)
	}

	var reqs []udns.BatchRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("decoding batch file %s: %w", path, err)
	}

	return reqs, nil
}
