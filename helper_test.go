package tradeledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

// KRW is a helper for test to create won money from const
func KRW(v float64) Money { return M(v, "KRW") }

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// lot is a helper for test to create a trade on the KR market.
func lot(id, ts, symbol string, side Side, qty, price, fee float64) Trade {
	return Trade{
		ID:        id,
		Timestamp: MustParseTimestamp(ts),
		Market:    "KR",
		Symbol:    symbol,
		Side:      side,
		Quantity:  Q(qty),
		Price:     KRW(price),
		Fee:       KRW(fee),
	}
}

// usLot is a helper for test to create a trade on the US market.
func usLot(id, ts, symbol string, side Side, qty, price, fee float64) Trade {
	t := lot(id, ts, symbol, side, qty, price, fee)
	t.Market = "US"
	t.Price = USD(price)
	t.Fee = USD(fee)
	return t
}

// mustInsert inserts trades one by one, failing the test on error.
func mustInsert(t *testing.T, l Ledger, trades ...Trade) Ledger {
	t.Helper()
	for _, tr := range trades {
		var err error
		l, _, err = l.Insert(tr)
		if err != nil {
			t.Fatalf("Insert(%v) returned unexpected error: %v", tr, err)
		}
	}
	return l
}

// near reports whether a and b differ by at most 1e-9.
func near(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(epsilon)
}
