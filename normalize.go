package tradeledger

import (
	"strings"
)

// RawTrade holds trade fields as typed by a user or read from a file.
type RawTrade struct {
	ID       string // optional, kept as is when set
	Market   string
	Symbol   string
	Side     string
	Date     string // YYYY-MM-DD, may also hold the time
	Time     string // optional HH:MM or HH:MM:SS
	Quantity string
	Price    string
	Fee      string // optional, blank means 0
}

// RawFromTrade returns the raw fields of a canonical trade. Normalizing the
// result returns the same trade.
func RawFromTrade(t Trade) RawTrade {
	return RawTrade{
		ID:       t.ID,
		Market:   t.Market,
		Symbol:   t.Symbol,
		Side:     string(t.Side),
		Date:     t.Timestamp.String(),
		Quantity: t.Quantity.String(),
		Price:    t.Price.Decimal().String(),
		Fee:      t.Fee.Decimal().String(),
	}
}

// Normalizer validates and canonicalizes raw trades.
type Normalizer struct {
	Markets *Markets
}

// NewNormalizer returns a Normalizer for the given markets, or the default
// ones when nil.
func NewNormalizer(markets *Markets) Normalizer {
	if markets == nil {
		markets = DefaultMarkets()
	}
	return Normalizer{Markets: markets}
}

// Normalize validates raw and returns the canonical Trade. It returns a
// *FieldError for the first invalid field.
func (n Normalizer) Normalize(raw RawTrade) (Trade, error) {
	code := strings.ToUpper(strings.TrimSpace(raw.Market))
	market, ok := n.Markets.Lookup(code)
	if !ok {
		return Trade{}, &FieldError{Field: "market", Value: raw.Market, Err: ErrInvalidMarket}
	}

	symbol := strings.TrimSpace(raw.Symbol)
	if market.UppercaseSymbols {
		symbol = strings.ToUpper(symbol)
	}
	if symbol == "" {
		return Trade{}, &FieldError{Field: "symbol", Value: raw.Symbol, Err: ErrMissingSymbol}
	}

	side, err := ParseSide(raw.Side)
	if err != nil {
		return Trade{}, &FieldError{Field: "side", Value: raw.Side, Err: ErrInvalidSide}
	}

	ts, err := ParseTimestamp(raw.Date, raw.Time)
	if err != nil {
		value := strings.TrimSpace(raw.Date + " " + raw.Time)
		return Trade{}, &FieldError{Field: "timestamp", Value: value, Err: ErrInvalidTimestamp, cause: err}
	}

	qty, err := parseNumber(raw.Quantity)
	if err != nil || !qty.IsPositive() {
		return Trade{}, &FieldError{Field: "qty", Value: raw.Quantity, Err: ErrInvalidQuantity, cause: err}
	}

	price, err := parseNumber(raw.Price)
	if err != nil || !price.IsPositive() {
		return Trade{}, &FieldError{Field: "price", Value: raw.Price, Err: ErrInvalidPrice, cause: err}
	}

	fee := M(0, market.Currency)
	if strings.TrimSpace(raw.Fee) != "" {
		v, err := parseNumber(raw.Fee)
		if err != nil || v.IsNegative() {
			return Trade{}, &FieldError{Field: "fee", Value: raw.Fee, Err: ErrInvalidFee, cause: err}
		}
		fee = M(v, market.Currency)
	}

	return Trade{
		ID:        strings.TrimSpace(raw.ID),
		Timestamp: ts,
		Market:    market.Code,
		Symbol:    symbol,
		Side:      side,
		Quantity:  Q(qty),
		Price:     M(price, market.Currency),
		Fee:       fee,
	}, nil
}
