package tradeledger

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Side is the direction of a trade.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide parses "BUY" or "SELL", case-insensitively.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Instrument identifies one independent accounting timeline.
type Instrument struct {
	Market string
	Symbol string
}

// String returns "MARKET:SYMBOL".
func (i Instrument) String() string { return i.Market + ":" + i.Symbol }

// Compare orders instruments by market then symbol.
func (i Instrument) Compare(j Instrument) int {
	if c := strings.Compare(i.Market, j.Market); c != 0 {
		return c
	}
	return strings.Compare(i.Symbol, j.Symbol)
}

// Trade is one buy or sell lot. Trades are values: they only change through
// Ledger.Edit, which keeps the ID.
type Trade struct {
	ID        string
	Timestamp Timestamp
	Market    string
	Symbol    string
	Side      Side
	Quantity  Quantity
	Price     Money // per unit
	Fee       Money
}

// Instrument returns the instrument key of the trade.
func (t Trade) Instrument() Instrument { return Instrument{Market: t.Market, Symbol: t.Symbol} }

// Amount returns quantity times price, fee excluded.
func (t Trade) Amount() Money { return t.Price.Mul(t.Quantity) }

// DedupKey identifies a trade by every field but its ID. Two trades with the
// same key are considered the same real-world execution.
func (t Trade) DedupKey() string {
	return strings.Join([]string{
		t.Market,
		t.Symbol,
		string(t.Side),
		t.Timestamp.String(),
		t.Quantity.String(),
		t.Price.Decimal().String(),
		t.Fee.Decimal().String(),
	}, "|")
}

// Equal reports whether both trades are identical, ID included.
func (t Trade) Equal(o Trade) bool {
	return t.ID == o.ID && t.DedupKey() == o.DedupKey()
}

// MarshalJSON writes the persisted lot format, with a stable field order.
func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", t.ID)
	w.Append("timestamp", t.Timestamp)
	w.Append("market", t.Market)
	w.Append("symbol", t.Symbol)
	w.Append("type", t.Side)
	w.Append("qty", t.Quantity)
	w.Append("price", t.Price)
	w.Append("fee", t.Fee)
	return w.MarshalJSON()
}

// UnmarshalJSON reads the persisted lot format. A missing fee is 0. Values are
// not validated here, see DecodeDocument.
func (t *Trade) UnmarshalJSON(data []byte) error {
	var temp struct {
		ID        string    `json:"id"`
		Timestamp Timestamp `json:"timestamp"`
		Market    string    `json:"market"`
		Symbol    string    `json:"symbol"`
		Side      Side      `json:"type"`
		Quantity  Quantity  `json:"qty"`
		Price     Money     `json:"price"`
		Fee       *Money    `json:"fee"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	*t = Trade{
		ID:        temp.ID,
		Timestamp: temp.Timestamp,
		Market:    temp.Market,
		Symbol:    temp.Symbol,
		Side:      temp.Side,
		Quantity:  temp.Quantity,
		Price:     temp.Price,
	}
	if temp.Fee != nil {
		t.Fee = *temp.Fee
	}
	return nil
}
