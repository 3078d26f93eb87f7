package tradeledger

import (
	"errors"
	"testing"
)

func TestNewMarkets(t *testing.T) {
	testCases := []struct {
		name      string
		markets   []Market
		expectErr bool
	}{
		{"Defaults", []Market{{Code: "KR", Currency: "KRW"}, {Code: "US", Currency: "USD"}}, false},
		{"Lowercase code", []Market{{Code: "jp", Currency: "jpy"}}, false},
		{"Duplicate code", []Market{{Code: "KR", Currency: "KRW"}, {Code: "kr", Currency: "KRW"}}, true},
		{"Empty code", []Market{{Code: " ", Currency: "KRW"}}, true},
		{"Unknown currency", []Market{{Code: "XX", Currency: "ABC"}}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewMarkets(tc.markets...)
			if hasErr := err != nil; hasErr != tc.expectErr {
				t.Errorf("NewMarkets() returned error: %v, want error: %v", err, tc.expectErr)
			}
		})
	}
}

func TestMarkets_InferMarket(t *testing.T) {
	m := DefaultMarkets()
	testCases := []struct {
		symbol string
		want   string
	}{
		{"005930", "KR"},
		{"0001", "KR"},
		{"123456", "KR"},
		{"1234567", "US"},
		{"123", "US"},
		{"AAPL", "US"},
		{"00593A", "US"},
		{" 005930 ", "KR"},
	}
	for _, tc := range testCases {
		got, ok := m.InferMarket(tc.symbol)
		if !ok || got.Code != tc.want {
			t.Errorf("InferMarket(%q) = %q, %v; want %q", tc.symbol, got.Code, ok, tc.want)
		}
	}

	domesticOnly, err := NewMarkets(Market{Code: "KR", Currency: "KRW", Domestic: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := domesticOnly.InferMarket("AAPL"); ok {
		t.Errorf("InferMarket(AAPL) found a market in a registry without foreign market")
	}
}

func TestMarkets_Lookup(t *testing.T) {
	m, err := NewMarkets(Market{Code: "jp", Currency: "jpy"})
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Currency("JP"); got != "JPY" {
		t.Errorf("Currency(JP) = %q, want JPY", got)
	}
	if _, ok := m.Lookup("jp"); ok {
		t.Errorf("Lookup(jp) found a market, codes are canonical")
	}
}

func TestMarkets_Resolve(t *testing.T) {
	m := DefaultMarkets()
	testCases := []struct {
		market, symbol string
		want           Instrument
	}{
		{"US", "AAPL", Instrument{Market: "US", Symbol: "AAPL"}},
		{"us", "aapl", Instrument{Market: "US", Symbol: "AAPL"}},
		{" kr ", " 005930 ", Instrument{Market: "KR", Symbol: "005930"}},
		{"", "005930", Instrument{Market: "KR", Symbol: "005930"}},
		{"", "msft", Instrument{Market: "US", Symbol: "MSFT"}},
	}
	for _, tc := range testCases {
		got, err := m.Resolve(tc.market, tc.symbol)
		if err != nil || got != tc.want {
			t.Errorf("Resolve(%q, %q) = %v, %v; want %v", tc.market, tc.symbol, got, err, tc.want)
		}
	}

	if _, err := m.Resolve("XX", "AAPL"); !errors.Is(err, ErrInvalidMarket) {
		t.Errorf("Resolve(XX) error = %v, want %v", err, ErrInvalidMarket)
	}
}
