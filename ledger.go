package tradeledger

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Ledger is the collection of trades of a portfolio.
//
// A Ledger is a value: Insert, Edit and Delete return a new Ledger and never
// modify the receiver, so a caller can keep the previous value as a snapshot.
// Trades are kept in insertion order; all computed figures use timestamp
// order, see Replay.
type Ledger struct {
	trades    []Trade
	lastSaved time.Time
}

// NewLedger returns a ledger holding trades, in that order. Trades are not
// validated, see ValidateAll.
func NewLedger(trades ...Trade) Ledger {
	return Ledger{trades: slices.Clone(trades)}
}

// Len returns the number of trades.
func (l Ledger) Len() int { return len(l.trades) }

// Trades iterates over trades in insertion order.
func (l Ledger) Trades() iter.Seq[Trade] { return slices.Values(l.trades) }

// Slice returns a copy of the trades in insertion order.
func (l Ledger) Slice() []Trade { return slices.Clone(l.trades) }

// Trade returns the trade with this id.
func (l Ledger) Trade(id string) (Trade, bool) {
	i := l.index(id)
	if i < 0 {
		return Trade{}, false
	}
	return l.trades[i], true
}

func (l Ledger) index(id string) int {
	return slices.IndexFunc(l.trades, func(t Trade) bool { return t.ID == id })
}

// TradesOf returns the trades of an instrument, in insertion order.
func (l Ledger) TradesOf(inst Instrument) []Trade {
	var trades []Trade
	for _, t := range l.trades {
		if t.Instrument() == inst {
			trades = append(trades, t)
		}
	}
	return trades
}

// Chronological returns the trades sorted by timestamp, ties in insertion
// order.
func (l Ledger) Chronological() []Trade { return sortedByTime(l.trades) }

// Instruments returns every instrument of the ledger, sorted by market then
// symbol.
func (l Ledger) Instruments() []Instrument {
	var list []Instrument
	for inst := range groupByInstrument(l.trades).Keys() {
		list = append(list, inst)
	}
	return list
}

// Timeline returns the replay of a single instrument.
func (l Ledger) Timeline(inst Instrument) Timeline {
	return Replay(l.TradesOf(inst))
}

// LastSaved returns the time the ledger was last persisted, if known.
func (l Ledger) LastSaved() time.Time { return l.lastSaved }

// WithLastSaved returns a copy of the ledger stamped with t.
func (l Ledger) WithLastSaved(t time.Time) Ledger {
	l.lastSaved = t
	return l
}

// Equal reports whether both ledgers hold the same trades in the same order.
func (l Ledger) Equal(o Ledger) bool {
	return slices.EqualFunc(l.trades, o.trades, Trade.Equal)
}

// ValidateInstrument replays an instrument strictly and returns an
// *OversellError if one of its sells is not covered by the holding.
func ValidateInstrument(l Ledger, inst Instrument) error {
	_, err := ReplayStrict(l.TradesOf(inst))
	return err
}

// ValidateAll checks every instrument of the ledger, in market then symbol
// order, and returns the first oversell found.
func ValidateAll(l Ledger) error {
	for _, trades := range groupByInstrument(l.trades).All() {
		if _, err := ReplayStrict(trades); err != nil {
			return err
		}
	}
	return nil
}

// Insert adds a trade. A trade without ID gets a new one. It returns the new
// ledger and the trade as inserted.
//
// The trade must already be normalized. Insert fails if the ID is taken, or
// if the trade leads to an oversell in its instrument timeline.
func (l Ledger) Insert(t Trade) (Ledger, Trade, error) {
	if t.ID == "" {
		t.ID = NewID()
	} else if l.index(t.ID) >= 0 {
		return l, Trade{}, fmt.Errorf("%w: %q", ErrDuplicateID, t.ID)
	}
	next := l.with(append(slices.Clone(l.trades), t))
	if err := ValidateInstrument(next, t.Instrument()); err != nil {
		return l, Trade{}, err
	}
	return next, t, nil
}

// Edit replaces the trade identified by id with t. The ID and the insertion
// slot are kept. Both the former and the new instrument timelines are checked,
// as an edit may move a trade from one instrument to another.
func (l Ledger) Edit(id string, t Trade) (Ledger, Trade, error) {
	i := l.index(id)
	if i < 0 {
		return l, Trade{}, notFound(id)
	}
	old := l.trades[i]
	t.ID = id
	trades := slices.Clone(l.trades)
	trades[i] = t
	next := l.with(trades)
	if err := ValidateInstrument(next, t.Instrument()); err != nil {
		return l, Trade{}, err
	}
	if old.Instrument() != t.Instrument() {
		if err := ValidateInstrument(next, old.Instrument()); err != nil {
			return l, Trade{}, err
		}
	}
	return next, t, nil
}

// Delete removes the trade identified by id, and returns it. Deleting a buy
// that later sells depend on is rejected with an *OversellError.
func (l Ledger) Delete(id string) (Ledger, Trade, error) {
	i := l.index(id)
	if i < 0 {
		return l, Trade{}, notFound(id)
	}
	old := l.trades[i]
	next := l.with(slices.Delete(slices.Clone(l.trades), i, i+1))
	if err := ValidateInstrument(next, old.Instrument()); err != nil {
		return l, Trade{}, err
	}
	return next, old, nil
}

// with returns a ledger with the same metadata as l but other trades.
func (l Ledger) with(trades []Trade) Ledger {
	l.trades = trades
	return l
}
