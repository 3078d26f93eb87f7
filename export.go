package tradeledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// ExportTimelineCSV writes a timeline as CSV with the columns
// idx,date,side,qty,price,fee,afterQty,avgCostAfter.
func ExportTimelineCSV(w io.Writer, tl Timeline) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"idx", "date", "side", "qty", "price", "fee", "afterQty", "avgCostAfter"})
	for _, e := range tl.Entries {
		cw.Write([]string{
			strconv.Itoa(e.Seq),
			e.Trade.Timestamp.String(),
			string(e.Trade.Side),
			e.Trade.Quantity.String(),
			e.Trade.Price.Decimal().String(),
			e.Trade.Fee.Decimal().String(),
			e.After.Quantity.String(),
			e.After.AverageCost.Amount(6),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cannot write timeline: %w", err)
	}
	return nil
}

// ExportHoldingsCSV writes position summaries as CSV with the columns
// market,symbol,currency,qty,avgCost,costBasis,realized,trades,lastTrade.
func ExportHoldingsCSV(w io.Writer, summaries []PositionSummary) error {
	cw := csv.NewWriter(w)
	cw.Write([]string{"market", "symbol", "currency", "qty", "avgCost", "costBasis", "realized", "trades", "lastTrade"})
	for _, s := range summaries {
		cw.Write([]string{
			s.Instrument.Market,
			s.Instrument.Symbol,
			s.Currency,
			s.Quantity.String(),
			s.AverageCost.Amount(6),
			s.CostBasis.Amount(6),
			s.Realized.Amount(6),
			strconv.Itoa(s.Trades),
			s.LastTrade.String(),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("cannot write holdings: %w", err)
	}
	return nil
}
