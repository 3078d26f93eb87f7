package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"

	"github.com/etnz/tradeledger"
	"github.com/etnz/tradeledger/renderer"
	"github.com/google/subcommands"
)

// holdingsCmd displays the current positions.
type holdingsCmd struct {
	csv bool
}

func (*holdingsCmd) Name() string     { return "holdings" }
func (*holdingsCmd) Synopsis() string { return "display the current positions" }
func (*holdingsCmd) Usage() string {
	return `tl holdings [-csv]

  Displays every instrument still held or with a realized gain or loss:
  quantity, average cost, cost basis and realized gain, then the totals per
  currency.

`
}

func (c *holdingsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.csv, "csv", false, "Print CSV instead of a report")
}

func (c *holdingsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		l, err := s.load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		summaries := tradeledger.Aggregate(l)
		if c.csv {
			if err := tradeledger.ExportHoldingsCSV(stdout, summaries); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
			return subcommands.ExitSuccess
		}
		printMarkdown(renderer.HoldingsMarkdown(summaries, tradeledger.Totals(summaries)))
		return subcommands.ExitSuccess
	})
}

// timelineCmd displays the replay of one instrument.
type timelineCmd struct {
	market string
	csv    bool
}

func (*timelineCmd) Name() string     { return "timeline" }
func (*timelineCmd) Synopsis() string { return "display the position history of an instrument" }
func (*timelineCmd) Usage() string {
	return `tl timeline [-m <market>] [-csv] <symbol>

  Replays the trades of an instrument in time order and shows the holding and
  the average cost after each one.

`
}

func (c *timelineCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.market, "m", "", "Market code. Inferred from the symbol when empty.")
	f.BoolVar(&c.csv, "csv", false, "Print CSV instead of a report")
}

func (c *timelineCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: timeline takes exactly one symbol")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		inst, err := s.book.Markets().Resolve(c.market, f.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
		l, err := s.load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		tl := l.Timeline(inst)
		if c.csv {
			if err := tradeledger.ExportTimelineCSV(stdout, tl); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitFailure
			}
			return subcommands.ExitSuccess
		}
		printMarkdown(renderer.TimelineMarkdown(inst, tl))
		return subcommands.ExitSuccess
	})
}

// logCmd lists the trades.
type logCmd struct {
	market string
	symbol string
	tail   int
}

func (*logCmd) Name() string     { return "log" }
func (*logCmd) Synopsis() string { return "list the trades with their IDs" }
func (*logCmd) Usage() string {
	return `tl log [-s <symbol> [-m <market>]] [-tail <n>]

  Lists the trades in time order, with the IDs used by 'tl edit' and 'tl rm'.

`
}

func (c *logCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbol, "s", "", "Only list the trades of this symbol")
	f.StringVar(&c.market, "m", "", "Market of the symbol. Inferred when empty.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N trades")
}

func (c *logCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		l, err := s.load(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		trades := l.Chronological()
		if c.symbol != "" {
			inst, err := s.book.Markets().Resolve(c.market, c.symbol)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return subcommands.ExitUsageError
			}
			trades = slices.DeleteFunc(trades, func(t tradeledger.Trade) bool { return t.Instrument() != inst })
		}
		if c.tail > 0 && len(trades) > c.tail {
			trades = trades[len(trades)-c.tail:]
		}
		printMarkdown(renderer.TradesMarkdown("Trades", trades))
		return subcommands.ExitSuccess
	})
}
