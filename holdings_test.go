package tradeledger

import (
	"bytes"
	"testing"
)

func TestAggregate(t *testing.T) {
	l := NewLedger(
		usLot("1", "2024-01-02", "MSFT", Buy, 2, 400, 1),
		lot("2", "2024-01-02", "005930", Buy, 100, 586, 20),
		lot("3", "2024-01-03", "005930", Sell, 40, 600, 5),
		// closed with a gain
		lot("4", "2024-01-02", "000660", Buy, 1, 100, 0),
		lot("5", "2024-01-05", "000660", Sell, 1, 150, 0),
		// closed flat: dropped
		usLot("6", "2024-01-02", "AAPL", Buy, 1, 100, 0),
		usLot("7", "2024-01-03", "AAPL", Sell, 1, 100, 0),
	)
	got := Aggregate(l)

	want := []struct {
		inst     string
		qty      Quantity
		avg      Money
		realized Money
		trades   int
		last     string
	}{
		{"KR:000660", Q(0), KRW(0), KRW(50), 2, "2024-01-05 00:00:00"},
		{"KR:005930", Q(60), KRW(586.2), KRW(547), 2, "2024-01-03 00:00:00"},
		{"US:MSFT", Q(2), USD(400.5), USD(0), 1, "2024-01-02 00:00:00"},
	}
	if len(got) != len(want) {
		t.Fatalf("Aggregate() = %d summaries, want %d: %+v", len(got), len(want), got)
	}
	for i, w := range want {
		s := got[i]
		if s.Instrument.String() != w.inst {
			t.Errorf("summary %d is %v, want %v", i, s.Instrument, w.inst)
			continue
		}
		if !s.Quantity.Equal(w.qty) || !s.AverageCost.Equal(w.avg) || !s.Realized.Equal(w.realized) {
			t.Errorf("%v = %v @ %v realized %v, want %v @ %v realized %v", w.inst,
				s.Quantity, s.AverageCost.Decimal(), s.Realized.Decimal(), w.qty, w.avg.Decimal(), w.realized.Decimal())
		}
		if s.Trades != w.trades || s.LastTrade.String() != w.last {
			t.Errorf("%v: %d trades, last %v; want %d, %v", w.inst, s.Trades, s.LastTrade, w.trades, w.last)
		}
	}
	if !got[1].CostBasis.Equal(KRW(35172)) {
		t.Errorf("cost basis = %v, want 35172", got[1].CostBasis.Decimal())
	}
	if got[0].Open() || !got[1].Open() {
		t.Errorf("Open() = %v, %v; want false, true", got[0].Open(), got[1].Open())
	}

	totals := Totals(got)
	if len(totals) != 2 || totals[0].Currency != "KRW" || totals[1].Currency != "USD" {
		t.Fatalf("Totals() = %+v, want KRW and USD", totals)
	}
	if !totals[0].Realized.Equal(KRW(597)) || !totals[1].CostBasis.Equal(USD(801)) {
		t.Errorf("Totals() = %+v", totals)
	}
}

func TestExportTimelineCSV(t *testing.T) {
	tl := Replay([]Trade{
		lot("1", "2024-01-02 09:00:00", "005930", Buy, 100, 586, 20),
		lot("2", "2024-01-03 09:00:00", "005930", Sell, 40, 600, 5),
	})
	var buf bytes.Buffer
	if err := ExportTimelineCSV(&buf, tl); err != nil {
		t.Fatalf("ExportTimelineCSV() unexpected error: %v", err)
	}
	want := "idx,date,side,qty,price,fee,afterQty,avgCostAfter\n" +
		"1,2024-01-02 09:00:00,BUY,100,586,20,100,586.2\n" +
		"2,2024-01-03 09:00:00,SELL,40,600,5,60,586.2\n"
	if got := buf.String(); got != want {
		t.Errorf("ExportTimelineCSV() =\n%s\nwant\n%s", got, want)
	}
}

func TestExportHoldingsCSV(t *testing.T) {
	l := NewLedger(lot("1", "2024-01-02 09:00:00", "005930", Buy, 3, 100, 1))
	var buf bytes.Buffer
	if err := ExportHoldingsCSV(&buf, Aggregate(l)); err != nil {
		t.Fatalf("ExportHoldingsCSV() unexpected error: %v", err)
	}
	want := "market,symbol,currency,qty,avgCost,costBasis,realized,trades,lastTrade\n" +
		"KR,005930,KRW,3,100.333333,301,0,1,2024-01-02 09:00:00\n"
	if got := buf.String(); got != want {
		t.Errorf("ExportHoldingsCSV() =\n%s\nwant\n%s", got, want)
	}
}
