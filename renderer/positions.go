package renderer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/etnz/tradeledger"
	md "github.com/nao1215/markdown"
)

// HoldingsMarkdown renders the position summaries followed by the totals per
// currency.
func HoldingsMarkdown(summaries []tradeledger.PositionSummary, totals []tradeledger.Total) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Holdings")
	if len(summaries) == 0 {
		doc.PlainText("No position.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignLeft,
		},
		Header: []string{"Instrument", "Quantity", "Avg. Cost", "Cost Basis", "Realized", "Trades", "Last Trade"},
	}
	for _, s := range summaries {
		table.Rows = append(table.Rows, []string{
			s.Instrument.String(),
			s.Quantity.String(),
			s.AverageCost.String(),
			s.CostBasis.String(),
			s.Realized.SignedString(),
			strconv.Itoa(s.Trades),
			s.LastTrade.String(),
		})
	}
	doc.Table(table)

	doc.H2("Totals")
	totalsTable := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignRight},
		Header:    []string{"Currency", "Cost Basis", "Realized"},
	}
	for _, t := range totals {
		totalsTable.Rows = append(totalsTable.Rows, []string{
			t.Currency,
			t.CostBasis.String(),
			md.Bold(t.Realized.SignedString()),
		})
	}
	doc.Table(totalsTable)

	return doc.String()
}

// TimelineMarkdown renders the replay of one instrument, one row per trade.
func TimelineMarkdown(inst tradeledger.Instrument, tl tradeledger.Timeline) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Timeline of %s", inst))
	if tl.Len() == 0 {
		doc.PlainText("No trade.")
		return doc.String()
	}

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignRight,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"#", "Date", "Side", "Quantity", "Price", "Fee", "Holding", "Avg. Cost", "Realized"},
	}
	for _, e := range tl.Entries {
		realized := ""
		if e.Trade.Side == tradeledger.Sell {
			realized = e.Realized.SignedString()
		}
		table.Rows = append(table.Rows, []string{
			strconv.Itoa(e.Seq),
			e.Trade.Timestamp.String(),
			string(e.Trade.Side),
			e.Trade.Quantity.String(),
			e.Trade.Price.String(),
			e.Trade.Fee.String(),
			e.After.Quantity.String(),
			e.After.AverageCost.String(),
			realized,
		})
	}
	doc.Table(table)

	pos := tl.Position()
	doc.PlainText(fmt.Sprintf("Holding %s at %s, realized %s.", pos.Quantity, pos.AverageCost, pos.Realized.SignedString()))
	return doc.String()
}
