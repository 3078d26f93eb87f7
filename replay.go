package tradeledger

import (
	"iter"
	"slices"
)

// Position is the state of one instrument at a point of its timeline.
type Position struct {
	Quantity    Quantity // never negative
	AverageCost Money    // per unit, 0 when Quantity is 0
	Realized    Money    // cumulative realized gains
}

// CostBasis returns the total cost of the current holding.
func (p Position) CostBasis() Money { return p.AverageCost.Mul(p.Quantity) }

// TimelineEntry is the outcome of one trade in an instrument timeline.
type TimelineEntry struct {
	Seq      int // 1-based
	Trade    Trade
	After    Position // state right after the trade
	Realized Money    // realized by this trade only, 0 for a buy
}

// Timeline is the chronological replay of the trades of one instrument.
type Timeline struct {
	Entries []TimelineEntry
}

// Position returns the terminal state of the timeline. The zero Position for
// an empty timeline.
func (tl Timeline) Position() Position {
	if len(tl.Entries) == 0 {
		return Position{}
	}
	return tl.Entries[len(tl.Entries)-1].After
}

// Len returns the number of entries.
func (tl Timeline) Len() int { return len(tl.Entries) }

// Series iterates over the holding quantity and average cost after each trade.
// It is the data of a position chart.
func (tl Timeline) Series() iter.Seq2[Timestamp, Position] {
	return func(yield func(Timestamp, Position) bool) {
		for _, e := range tl.Entries {
			if !yield(e.Trade.Timestamp, e.After) {
				return
			}
		}
	}
}

// sortedByTime returns a copy of trades in ascending timestamp order. Trades
// with equal timestamps keep their relative order.
func sortedByTime(trades []Trade) []Trade {
	sorted := slices.Clone(trades)
	slices.SortStableFunc(sorted, func(a, b Trade) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return sorted
}

// replayer holds the running state of an instrument.
type replayer struct {
	strict bool
	pos    Position
	seq    int
}

// apply updates the running state with t. In strict mode a sell above the
// holding returns an *OversellError and leaves the state unchanged.
func (r *replayer) apply(t Trade) (TimelineEntry, error) {
	realized := M(0, t.Price.Currency())
	switch t.Side {
	case Buy:
		total := r.pos.AverageCost.Mul(r.pos.Quantity).Add(t.Amount()).Add(t.Fee)
		r.pos.Quantity = r.pos.Quantity.Add(t.Quantity)
		if r.pos.Quantity.IsPositive() {
			r.pos.AverageCost = total.Div(r.pos.Quantity)
		} else {
			r.pos.AverageCost = M(0, t.Price.Currency())
		}
	case Sell:
		if r.strict && t.Quantity.exceeds(r.pos.Quantity) {
			return TimelineEntry{}, &OversellError{
				Instrument: t.Instrument(),
				Timestamp:  t.Timestamp,
				TradeID:    t.ID,
				Requested:  t.Quantity,
				Holding:    r.pos.Quantity,
			}
		}
		proceeds := t.Amount().Sub(t.Fee)
		basis := r.pos.AverageCost.Mul(t.Quantity)
		realized = proceeds.Sub(basis)
		r.pos.Quantity = r.pos.Quantity.Sub(t.Quantity)
		if r.pos.Quantity.negligible() {
			r.pos.Quantity = Quantity{}
			r.pos.AverageCost = M(0, t.Price.Currency())
		}
	}
	r.pos.Realized = r.pos.Realized.Add(realized)
	r.seq++
	return TimelineEntry{Seq: r.seq, Trade: t, After: r.pos, Realized: realized}, nil
}

// Replay computes the timeline of a single instrument.
//
// Trades are replayed in timestamp order, ties keep their order in trades. A
// buy moves the average cost to the weighted mean of the holding and the new
// lot, fee included. A sell realizes its proceeds net of fee minus the average
// cost of the units sold. A holding that falls to zero, or below, is clamped
// to zero with a zero average cost.
//
// Replay does not check that trades belong to the same instrument, nor that
// sells are covered, see ReplayStrict.
func Replay(trades []Trade) Timeline {
	r := replayer{}
	tl := Timeline{Entries: make([]TimelineEntry, 0, len(trades))}
	for _, t := range sortedByTime(trades) {
		e, _ := r.apply(t)
		tl.Entries = append(tl.Entries, e)
	}
	return tl
}

// ReplayStrict is like Replay but fails with an *OversellError at the first
// sell whose quantity exceeds the holding right before it by more than 1e-9.
func ReplayStrict(trades []Trade) (Timeline, error) {
	r := replayer{strict: true}
	tl := Timeline{Entries: make([]TimelineEntry, 0, len(trades))}
	for _, t := range sortedByTime(trades) {
		e, err := r.apply(t)
		if err != nil {
			return Timeline{}, err
		}
		tl.Entries = append(tl.Entries, e)
	}
	return tl, nil
}
