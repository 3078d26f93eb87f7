package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/tradeledger"
	"github.com/etnz/tradeledger/renderer"
	"github.com/google/subcommands"
)

// tradeFlags are the fields of a trade, as typed on the command line.
type tradeFlags struct {
	raw tradeledger.RawTrade
}

func (t *tradeFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&t.raw.Market, "m", "", "Market code, e.g. KR or US. Inferred from the symbol when empty.")
	f.StringVar(&t.raw.Symbol, "s", "", "Symbol of the instrument")
	f.StringVar(&t.raw.Date, "d", "", "Trade date YYYY-MM-DD, optionally with the time")
	f.StringVar(&t.raw.Time, "t", "", "Trade time HH:MM or HH:MM:SS")
	f.StringVar(&t.raw.Quantity, "q", "", "Quantity, strictly positive")
	f.StringVar(&t.raw.Price, "p", "", "Unit price, strictly positive")
	f.StringVar(&t.raw.Fee, "f", "", "Fee, 0 by default")
}

// tradeCmd records a buy or a sell.
type tradeCmd struct {
	tradeFlags
	side tradeledger.Side
	id   string
	now  func() time.Time
}

func (c *tradeCmd) Name() string { return strings.ToLower(string(c.side)) }
func (c *tradeCmd) Synopsis() string {
	return fmt.Sprintf("record a %s trade", strings.ToLower(string(c.side)))
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`tl %s -s <symbol> -q <quantity> -p <price> [-m <market>] [-d <date>] [-t <time>] [-f <fee>]

  Records a %s trade. The date defaults to today.
  A sell is rejected when it exceeds the quantity held at that time.

`, c.Name(), strings.ToLower(string(c.side)))
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	c.tradeFlags.SetFlags(f)
	f.StringVar(&c.id, "id", "", "Trade ID, generated when empty")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "Error: unexpected arguments %q\n", f.Args())
		return subcommands.ExitUsageError
	}
	raw := c.raw
	raw.ID = c.id
	raw.Side = string(c.side)
	if raw.Date == "" {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		raw.Date = now().Format(tradeledger.DateFormat)
	}

	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		if strings.TrimSpace(raw.Market) == "" {
			m, ok := s.book.Markets().InferMarket(raw.Symbol)
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: cannot infer the market of %q, use -m\n", raw.Symbol)
				return subcommands.ExitUsageError
			}
			raw.Market = m.Code
		}
		t, err := s.book.Add(ctx, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.TradesMarkdown("Trade Added", []tradeledger.Trade{t}))
		return subcommands.ExitSuccess
	})
}

// editCmd changes some fields of a trade.
type editCmd struct {
	tradeFlags
	side string
}

func (*editCmd) Name() string     { return "edit" }
func (*editCmd) Synopsis() string { return "change the fields of a trade" }
func (*editCmd) Usage() string {
	return `tl edit [-m <market>] [-s <symbol>] [-side BUY|SELL] [-d <date>] [-t <time>] [-q <quantity>] [-p <price>] [-f <fee>] <id>

  Changes the given fields of the trade, the others are kept.
  The edit is rejected if it leaves an instrument oversold at any time.

`
}

func (c *editCmd) SetFlags(f *flag.FlagSet) {
	c.tradeFlags.SetFlags(f)
	f.StringVar(&c.side, "side", "", "BUY or SELL")
}

func (c *editCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: edit takes exactly one trade ID")
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	set := make(map[string]bool)
	f.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	if len(set) == 0 {
		fmt.Fprintln(os.Stderr, "Error: nothing to change")
		return subcommands.ExitUsageError
	}

	update := func(raw *tradeledger.RawTrade) {
		if set["m"] {
			raw.Market = c.raw.Market
		}
		if set["s"] {
			raw.Symbol = c.raw.Symbol
		}
		if set["side"] {
			raw.Side = c.side
		}
		if set["d"] {
			raw.Date, raw.Time = c.raw.Date, ""
		}
		if set["t"] {
			raw.Date, _, _ = strings.Cut(raw.Date, " ")
			raw.Time = c.raw.Time
		}
		if set["q"] {
			raw.Quantity = c.raw.Quantity
		}
		if set["p"] {
			raw.Price = c.raw.Price
		}
		if set["f"] {
			raw.Fee = c.raw.Fee
		}
	}

	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		t, err := s.book.Edit(ctx, id, update)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.TradesMarkdown("Trade Edited", []tradeledger.Trade{t}))
		return subcommands.ExitSuccess
	})
}

// rmCmd deletes trades.
type rmCmd struct{}

func (*rmCmd) Name() string     { return "rm" }
func (*rmCmd) Synopsis() string { return "delete trades" }
func (*rmCmd) Usage() string {
	return `tl rm <id>...

  Deletes the trades, in order. A deletion that would leave an instrument
  oversold is rejected, and the following ones are not attempted.

`
}

func (*rmCmd) SetFlags(f *flag.FlagSet) {}

func (*rmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: rm takes at least one trade ID")
		return subcommands.ExitUsageError
	}
	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		var deleted []tradeledger.Trade
		status := subcommands.ExitSuccess
		for _, id := range f.Args() {
			t, err := s.book.Delete(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				status = subcommands.ExitFailure
				break
			}
			deleted = append(deleted, t)
		}
		if len(deleted) > 0 {
			printMarkdown(renderer.TradesMarkdown("Trades Deleted", deleted))
		}
		return status
	})
}
