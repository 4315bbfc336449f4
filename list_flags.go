package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/ultradns-go/internal/udns"
)

// listFlags are the paging and search flags shared by list commands.
type listFlags struct {
	query   []string
	sort    string
	reverse bool
	offset  int
	limit   int
	cursor  string
}

func (lf *listFlags) register(cmd *cobra.Command, withCursor bool) {
	cmd.Flags().StringArrayVar(&lf.query, "query", nil, "search term key:value (repeatable)")
	cmd.Flags().StringVar(&lf.sort, "sort", "", "sort field")
	cmd.Flags().BoolVar(&lf.reverse, "reverse", false, "reverse the sort order")
	cmd.Flags().IntVar(&lf.offset, "offset", 0, "skip this many results")
	cmd.Flags().IntVar(&lf.limit, "limit", 0, "return at most this many results")

	if withCursor {
		cmd.Flags().StringVar(&lf.cursor, "cursor", "", "paging cursor from a previous v3 listing")
	}
}

// options converts the flags into ListOptions. reverse is only sent when
// the user set it.
func (lf *listFlags) options(cmd *cobra.Command) (*udns.ListOptions, error) {
	q, err := parseQuery(lf.query)
	if err != nil {
		return nil, err
	}

	opts := &udns.ListOptions{
		Q:      q,
		Sort:   lf.sort,
		Offset: lf.offset,
		Limit:  lf.limit,
		Cursor: lf.cursor,
	}

	if cmd.Flags().Changed("reverse") {
		opts.Reverse = &lf.reverse
	}

	return opts, nil
}

// parseQuery turns ["name:foo", "zone_type=PRIMARY"] into a search map.
func parseQuery(terms []string) (map[string]string, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	q := make(map[string]string, len(terms))

	for _, term := range terms {
		key, value, ok := strings.Cut(term, ":")
		if !ok {
			key, value, ok = strings.Cut(term, "=")
		}

		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --query %q, want key:value", term)
		}

		q[key] = value
	}

	return q, nil
}
