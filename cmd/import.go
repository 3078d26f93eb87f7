package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/etnz/tradeledger"
	"github.com/etnz/tradeledger/renderer"
	"github.com/google/subcommands"
)

// importCmd merges delimited trade files into the ledger.
type importCmd struct{}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import trades from CSV or TSV files" }
func (*importCmd) Usage() string {
	return `tl import <file>...

  Imports trades from delimited files, '-' reads stdin. See 'tl topic import'
  for the accepted formats.

  Rows already in the ledger are skipped, invalid rows are reported. A file
  that would leave an instrument oversold is rejected as a whole.

`
}

func (*importCmd) SetFlags(f *flag.FlagSet) {}

func (*importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: import takes at least one file")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		status := subcommands.ExitSuccess
		for _, name := range f.Args() {
			if err := importFile(ctx, s, name); err != nil {
				fmt.Fprintf(os.Stderr, "Error importing %q: %v\n", name, err)
				status = subcommands.ExitFailure
			}
		}
		return status
	})
}

func importFile(ctx context.Context, s *session, name string) error {
	var r io.Reader = os.Stdin
	if name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}
	report, err := s.book.Import(ctx, r)
	printMarkdown(renderer.ImportMarkdown(report, err))
	return err
}

// exportCmd writes the full ledger document.
type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "write the ledger as a JSON document" }
func (*exportCmd) Usage() string {
	return `tl export [-o <file>]

  Writes the whole ledger as a JSON document, the format read by 'tl restore'.

`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file. Defaults to stdout.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		l, err := s.load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		var w io.Writer = stdout
		if c.output != "" {
			file, err := os.Create(c.output)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
			defer file.Close()
			w = file
		}
		if err := tradeledger.EncodeDocument(w, l); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	})
}

// restoreCmd replaces the ledger.
type restoreCmd struct {
	backup bool
}

func (*restoreCmd) Name() string     { return "restore" }
func (*restoreCmd) Synopsis() string { return "replace the ledger with a JSON document or the backup" }
func (*restoreCmd) Usage() string {
	return `tl restore <file>
tl restore -backup

  Replaces the whole ledger with a document written by 'tl export', or with
  the latest backup. The document is checked first: the ledger is left
  unchanged when it is malformed or when an instrument would be oversold.

`
}

func (c *restoreCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.backup, "backup", false, "Restore from the configured backup")
}

func (c *restoreCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.backup == (f.NArg() == 1) || f.NArg() > 1 {
		fmt.Fprintln(os.Stderr, "Error: restore takes either one file or -backup")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		var l tradeledger.Ledger
		var err error
		if c.backup {
			l, err = s.book.RestoreFromBackup(ctx)
		} else {
			l, err = restoreFile(ctx, s, f.Arg(0))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		fmt.Fprintf(stdout, "Ledger restored with %d trades.\n", l.Len())
		return subcommands.ExitSuccess
	})
}

func restoreFile(ctx context.Context, s *session, name string) (tradeledger.Ledger, error) {
	file, err := os.Open(name)
	if err != nil {
		return tradeledger.Ledger{}, err
	}
	defer file.Close()
	return s.book.Restore(ctx, file)
}
