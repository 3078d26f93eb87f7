package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/tradeledger"
	"github.com/google/subcommands"
)

// queryCmd evaluates a JSONPath expression against the ledger document.
type queryCmd struct {
	first bool
}

func (*queryCmd) Name() string     { return "query" }
func (*queryCmd) Synopsis() string { return "query the ledger document with JSONPath" }
func (*queryCmd) Usage() string {
	return `tl query [-1] <jsonpath>

  Evaluates a JSONPath expression against the ledger document, as written by
  'tl export', and prints the result as JSON.

  $.lots[?(@.symbol=="005930")].qty
  $.lots[-1:].id

`
}

func (c *queryCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.first, "1", false, "Print only the first result of a list")
}

func (c *queryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: query takes exactly one expression")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		l, err := s.load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		result, err := query(l, f.Arg(0), c.first)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintln(stdout, string(result))
		return subcommands.ExitSuccess
	})
}

// query evaluates path against the document of l.
func query(l tradeledger.Ledger, path string, first bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := tradeledger.EncodeDocument(&buf, l); err != nil {
		return nil, err
	}
	var jobj any
	if err := json.Unmarshal(buf.Bytes(), &jobj); err != nil {
		return nil, err
	}
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error evaluating %q: %w", path, err)
	}
	// jsonpath returns either a list or a single answer depending on the expression
	if jlist, ok := jval.([]any); ok && first {
		if len(jlist) == 0 {
			return []byte("null"), nil
		}
		jval = jlist[0]
	}
	return json.MarshalIndent(jval, "", "  ")
}
