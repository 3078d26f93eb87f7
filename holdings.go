package tradeledger

import (
	"iter"
	"slices"
	"strings"

	"github.com/google/btree"
)

// instrumentGroup is the set of trades of one instrument, in insertion order.
type instrumentGroup struct {
	inst   Instrument
	trades []Trade
}

// instrumentGroups indexes trades by instrument, ordered by market then
// symbol.
type instrumentGroups struct {
	tree *btree.BTreeG[*instrumentGroup]
}

func groupByInstrument(trades []Trade) instrumentGroups {
	tree := btree.NewG(8, func(a, b *instrumentGroup) bool {
		return a.inst.Compare(b.inst) < 0
	})
	for _, t := range trades {
		g, ok := tree.Get(&instrumentGroup{inst: t.Instrument()})
		if !ok {
			g = &instrumentGroup{inst: t.Instrument()}
			tree.ReplaceOrInsert(g)
		}
		g.trades = append(g.trades, t)
	}
	return instrumentGroups{tree: tree}
}

// Keys iterates over instruments in order.
func (g instrumentGroups) Keys() iter.Seq[Instrument] {
	return func(yield func(Instrument) bool) {
		g.tree.Ascend(func(ig *instrumentGroup) bool { return yield(ig.inst) })
	}
}

// All iterates over instruments and their trades in order.
func (g instrumentGroups) All() iter.Seq2[Instrument, []Trade] {
	return func(yield func(Instrument, []Trade) bool) {
		g.tree.Ascend(func(ig *instrumentGroup) bool { return yield(ig.inst, ig.trades) })
	}
}

// PositionSummary is the current state of one instrument.
type PositionSummary struct {
	Instrument  Instrument
	Currency    string
	Quantity    Quantity
	AverageCost Money
	CostBasis   Money // Quantity * AverageCost
	Realized    Money
	Trades      int       // number of trades of the instrument
	LastTrade   Timestamp // timestamp of the most recent trade
}

// Open reports whether some units are still held.
func (s PositionSummary) Open() bool { return !s.Quantity.IsZero() }

// Aggregate returns the summary of every instrument of the ledger that is
// still held or has realized a non negligible gain or loss (above 1e-6 in
// absolute value). Summaries are sorted by market then symbol.
//
// Each instrument is replayed independently, with the same arithmetic as
// Replay.
func Aggregate(l Ledger) []PositionSummary {
	var summaries []PositionSummary
	for inst, trades := range groupByInstrument(l.trades).All() {
		tl := Replay(trades)
		pos := tl.Position()
		if pos.Quantity.IsZero() && !pos.Realized.significant() {
			continue
		}
		last := tl.Entries[len(tl.Entries)-1].Trade
		summaries = append(summaries, PositionSummary{
			Instrument:  inst,
			Currency:    last.Price.Currency(),
			Quantity:    pos.Quantity,
			AverageCost: pos.AverageCost,
			CostBasis:   pos.CostBasis(),
			Realized:    pos.Realized,
			Trades:      len(trades),
			LastTrade:   last.Timestamp,
		})
	}
	return summaries
}

// Total sums the summaries of one currency.
type Total struct {
	Currency  string
	CostBasis Money
	Realized  Money
}

// Totals sums cost basis and realized gains per currency, sorted by currency
// code. Amounts of different currencies are never added together.
func Totals(summaries []PositionSummary) []Total {
	var totals []Total
	for _, s := range summaries {
		i := slices.IndexFunc(totals, func(t Total) bool { return t.Currency == s.Currency })
		if i < 0 {
			totals = append(totals, Total{Currency: s.Currency, CostBasis: M(0, s.Currency), Realized: M(0, s.Currency)})
			i = len(totals) - 1
		}
		totals[i].CostBasis = totals[i].CostBasis.Add(s.CostBasis)
		totals[i].Realized = totals[i].Realized.Add(s.Realized)
	}
	slices.SortFunc(totals, func(a, b Total) int { return strings.Compare(a.Currency, b.Currency) })
	return totals
}
