package tradeledger

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
)

// Market describes a market code accepted by the ledger.
type Market struct {
	Code             string // e.g. "KR", always uppercase
	Currency         string // ISO 4217 code of prices and fees
	UppercaseSymbols bool   // symbols are case-normalized to uppercase
	Domestic         bool   // target of the numeric symbol heuristic, see InferMarket
}

// Markets is the registry of known markets, in declaration order.
type Markets struct {
	markets []Market
	index   map[string]int
}

// DefaultMarkets returns the two markets the ledger supports out of the box:
// the domestic KR market (KRW, numeric symbols kept as typed) and the foreign
// US market (USD, uppercase tickers).
func DefaultMarkets() *Markets {
	m, _ := NewMarkets(
		Market{Code: "KR", Currency: "KRW", Domestic: true},
		Market{Code: "US", Currency: "USD", UppercaseSymbols: true},
	)
	return m
}

// NewMarkets creates a registry. Codes are uppercased; duplicates, empty codes
// and unknown currencies are rejected.
func NewMarkets(markets ...Market) (*Markets, error) {
	m := &Markets{index: make(map[string]int)}
	for _, mk := range markets {
		mk.Code = strings.ToUpper(strings.TrimSpace(mk.Code))
		mk.Currency = strings.ToUpper(strings.TrimSpace(mk.Currency))
		if mk.Code == "" {
			return nil, fmt.Errorf("market code is missing")
		}
		if _, exists := m.index[mk.Code]; exists {
			return nil, fmt.Errorf("market %q is declared twice", mk.Code)
		}
		if money.GetCurrency(mk.Currency) == nil {
			return nil, fmt.Errorf("market %q: unknown currency %q", mk.Code, mk.Currency)
		}
		m.index[mk.Code] = len(m.markets)
		m.markets = append(m.markets, mk)
	}
	return m, nil
}

// Lookup returns the market for a code, which must already be canonical.
func (m *Markets) Lookup(code string) (Market, bool) {
	i, ok := m.index[code]
	if !ok {
		return Market{}, false
	}
	return m.markets[i], true
}

// Currency returns the currency of a market code, or "" when unknown.
func (m *Markets) Currency(code string) string {
	mk, _ := m.Lookup(code)
	return mk.Currency
}

// All iterates over markets in declaration order.
func (m *Markets) All() iter.Seq[Market] {
	return slices.Values(m.markets)
}

var domesticSymbolRE = regexp.MustCompile(`^[0-9]{4,6}$`)

// InferMarket guesses the market of a symbol when the input does not say.
//
// A purely numeric symbol of 4 to 6 digits is a domestic one, anything else is
// foreign. It is a convenience default only: an explicit market always wins.
// It returns false if the registry has no market for the guessed kind.
func (m *Markets) InferMarket(symbol string) (Market, bool) {
	domestic := domesticSymbolRE.MatchString(strings.TrimSpace(symbol))
	for _, mk := range m.markets {
		if mk.Domestic == domestic {
			return mk, true
		}
	}
	return Market{}, false
}

// Resolve returns the canonical instrument for a market and symbol as typed by
// a user: the market code is uppercased, or inferred from the symbol when
// blank, and the symbol is uppercased when its market says so.
func (m *Markets) Resolve(market, symbol string) (Instrument, error) {
	var mk Market
	var ok bool
	if strings.TrimSpace(market) == "" {
		mk, ok = m.InferMarket(symbol)
	} else {
		mk, ok = m.Lookup(strings.ToUpper(strings.TrimSpace(market)))
	}
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %q", ErrInvalidMarket, market)
	}
	symbol = strings.TrimSpace(symbol)
	if mk.UppercaseSymbols {
		symbol = strings.ToUpper(symbol)
	}
	return Instrument{Market: mk.Code, Symbol: symbol}, nil
}
