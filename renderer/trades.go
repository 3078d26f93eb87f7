package renderer

import (
	"bytes"
	"fmt"

	"github.com/etnz/tradeledger"
	md "github.com/nao1215/markdown"
)

// TradesMarkdown renders a list of trades with their IDs, in the given order.
func TradesMarkdown(title string, trades []tradeledger.Trade) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(title)
	if len(trades) == 0 {
		doc.PlainText("No trade.")
		return doc.String()
	}
	doc.Table(tradesTable(trades))
	return doc.String()
}

func tradesTable(trades []tradeledger.Trade) md.TableSet {
	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignLeft,
			md.AlignRight,
			md.AlignRight,
			md.AlignRight,
		},
		Header: []string{"ID", "Date", "Instrument", "Side", "Quantity", "Price", "Fee"},
	}
	for _, t := range trades {
		table.Rows = append(table.Rows, []string{
			t.ID,
			t.Timestamp.String(),
			t.Instrument().String(),
			string(t.Side),
			t.Quantity.String(),
			t.Price.String(),
			t.Fee.String(),
		})
	}
	return table
}

// ImportMarkdown renders the outcome of a bulk import. err is the error
// returned by the import, if any.
func ImportMarkdown(report tradeledger.ImportReport, err error) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Import")
	if err != nil {
		doc.PlainText(md.Bold("Rejected: ") + err.Error())
	}
	doc.PlainText(fmt.Sprintf("%d added, %d skipped, %d invalid.", len(report.Accepted), report.Skipped, len(report.Errors)))

	if len(report.Accepted) > 0 {
		doc.H2("Added")
		doc.Table(tradesTable(report.Accepted))
	}

	if len(report.Errors) > 0 {
		doc.H2("Invalid Rows")
		table := md.TableSet{
			Alignment: []md.TableAlignment{md.AlignRight, md.AlignLeft},
			Header:    []string{"Line", "Error"},
		}
		for _, e := range report.Errors {
			table.Rows = append(table.Rows, []string{fmt.Sprint(e.Line), e.Err.Error()})
		}
		doc.Table(table)
	}
	return doc.String()
}
