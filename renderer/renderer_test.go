package renderer

import (
	"errors"
	"strings"
	"testing"

	"github.com/etnz/tradeledger"
)

func usTrade(id, ts string, side tradeledger.Side, qty, price, fee float64) tradeledger.Trade {
	return tradeledger.Trade{
		ID:        id,
		Timestamp: tradeledger.MustParseTimestamp(ts),
		Market:    "US",
		Symbol:    "AAPL",
		Side:      side,
		Quantity:  tradeledger.Q(qty),
		Price:     tradeledger.M(price, "USD"),
		Fee:       tradeledger.M(fee, "USD"),
	}
}

func sampleLedger() tradeledger.Ledger {
	return tradeledger.NewLedger(
		usTrade("b1", "2024-01-02 10:00:00", tradeledger.Buy, 10, 100, 1),
		usTrade("s1", "2024-01-05 10:00:00", tradeledger.Sell, 4, 120, 1),
	)
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output does not contain %q:\n%s", want, got)
		}
	}
}

func TestHoldingsMarkdown(t *testing.T) {
	summaries := tradeledger.Aggregate(sampleLedger())
	got := HoldingsMarkdown(summaries, tradeledger.Totals(summaries))

	assertContains(t, got,
		"# Holdings",
		"US:AAPL",
		"$100.10",
		"$600.60",
		"+$78.60",
		"2024-01-05 10:00:00",
		"## Totals",
		"USD",
	)
}

func TestHoldingsMarkdownEmpty(t *testing.T) {
	got := HoldingsMarkdown(nil, nil)
	assertContains(t, got, "# Holdings", "No position.")
	if strings.Contains(got, "Totals") {
		t.Errorf("empty holdings should not render totals:\n%s", got)
	}
}

func TestTimelineMarkdown(t *testing.T) {
	inst := tradeledger.Instrument{Market: "US", Symbol: "AAPL"}
	got := TimelineMarkdown(inst, sampleLedger().Timeline(inst))

	assertContains(t, got,
		"# Timeline of US:AAPL",
		"2024-01-02 10:00:00",
		"BUY",
		"SELL",
		"+$78.60",
		"Holding 6 at $100.10, realized +$78.60.",
	)
}

func TestTimelineMarkdownEmpty(t *testing.T) {
	got := TimelineMarkdown(tradeledger.Instrument{Market: "KR", Symbol: "005930"}, tradeledger.Timeline{})
	assertContains(t, got, "# Timeline of KR:005930", "No trade.")
}

func TestTradesMarkdown(t *testing.T) {
	got := TradesMarkdown("Trades", sampleLedger().Slice())
	assertContains(t, got, "# Trades", "b1", "s1", "US:AAPL", "$120.00")
}

func TestImportMarkdown(t *testing.T) {
	report := tradeledger.ImportReport{
		Accepted: []tradeledger.Trade{usTrade("n1", "2024-02-01 09:00:00", tradeledger.Buy, 1, 50, 0)},
		Skipped:  2,
		Errors:   []tradeledger.RowError{{Line: 7, Err: tradeledger.ErrInvalidQuantity}},
	}
	got := ImportMarkdown(report, nil)
	assertContains(t, got, "1 added, 2 skipped, 1 invalid.", "## Added", "n1", "## Invalid Rows", "7")
	if strings.Contains(got, "Rejected") {
		t.Errorf("accepted import rendered as rejected:\n%s", got)
	}

	rejected := ImportMarkdown(tradeledger.ImportReport{Skipped: 1}, &tradeledger.ImportRejectedError{Err: errors.New("oversold")})
	assertContains(t, rejected, "Rejected", "oversold", "0 added, 1 skipped, 0 invalid.")
}
