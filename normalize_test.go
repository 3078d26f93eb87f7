package tradeledger

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(nil)
	valid := RawTrade{Market: " kr ", Symbol: " 005930 ", Side: "buy", Date: "2024-01-05", Time: "10:30", Quantity: "1,000", Price: "71_500", Fee: ""}

	got, err := n.Normalize(valid)
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}
	if got.Market != "KR" || got.Symbol != "005930" || got.Side != Buy {
		t.Errorf("Normalize() = %s %s %s, want KR 005930 BUY", got.Market, got.Symbol, got.Side)
	}
	if got.Timestamp.String() != "2024-01-05 10:30:00" {
		t.Errorf("Normalize() timestamp = %q, want %q", got.Timestamp, "2024-01-05 10:30:00")
	}
	if !got.Quantity.Equal(Q(1000)) || !got.Price.Equal(KRW(71500)) || !got.Fee.Equal(KRW(0)) {
		t.Errorf("Normalize() = %v @ %v fee %v", got.Quantity, got.Price, got.Fee)
	}

	tests := []struct {
		name    string
		modify  func(r *RawTrade)
		want    func(t *testing.T, tr Trade)
		wantErr error
		field   string
	}{
		{name: "unknown market", modify: func(r *RawTrade) { r.Market = "JP" }, wantErr: ErrInvalidMarket, field: "market"},
		{name: "blank symbol", modify: func(r *RawTrade) { r.Symbol = "  " }, wantErr: ErrMissingSymbol, field: "symbol"},
		{name: "bad side", modify: func(r *RawTrade) { r.Side = "hold" }, wantErr: ErrInvalidSide, field: "side"},
		{name: "missing date", modify: func(r *RawTrade) { r.Date = "" }, wantErr: ErrInvalidTimestamp, field: "timestamp"},
		{name: "lenient date", modify: func(r *RawTrade) { r.Date = "2024/01/05" }, wantErr: ErrInvalidTimestamp, field: "timestamp"},
		{name: "impossible day", modify: func(r *RawTrade) { r.Date = "2023-02-29" }, wantErr: ErrInvalidTimestamp, field: "timestamp"},
		{name: "bad time", modify: func(r *RawTrade) { r.Time = "9:30" }, wantErr: ErrInvalidTimestamp, field: "timestamp"},
		{name: "zero quantity", modify: func(r *RawTrade) { r.Quantity = "0" }, wantErr: ErrInvalidQuantity, field: "qty"},
		{name: "text quantity", modify: func(r *RawTrade) { r.Quantity = "ten" }, wantErr: ErrInvalidQuantity, field: "qty"},
		{name: "negative price", modify: func(r *RawTrade) { r.Price = "-1" }, wantErr: ErrInvalidPrice, field: "price"},
		{name: "blank price", modify: func(r *RawTrade) { r.Price = "" }, wantErr: ErrInvalidPrice, field: "price"},
		{name: "negative fee", modify: func(r *RawTrade) { r.Fee = "-0.5" }, wantErr: ErrInvalidFee, field: "fee"},
		{name: "huge exponent quantity", modify: func(r *RawTrade) { r.Quantity = "1e20000000" }, wantErr: ErrInvalidQuantity, field: "qty"},
		{name: "tiny exponent quantity", modify: func(r *RawTrade) { r.Quantity = "1e-400" }, wantErr: ErrInvalidQuantity, field: "qty"},
		{name: "huge exponent price", modify: func(r *RawTrade) { r.Price = "5E999999999" }, wantErr: ErrInvalidPrice, field: "price"},
		{name: "huge exponent fee", modify: func(r *RawTrade) { r.Fee = "1e19" }, wantErr: ErrInvalidFee, field: "fee"},
		{name: "too many digits", modify: func(r *RawTrade) { r.Price = "1" + strings.Repeat("0", 40) }, wantErr: ErrInvalidPrice, field: "price"},
		{
			name:   "small exponents are fine",
			modify: func(r *RawTrade) { r.Quantity = "1e3"; r.Price = "2.5e-2" },
			want: func(t *testing.T, tr Trade) {
				if !tr.Quantity.Equal(Q(1000)) || !tr.Price.Equal(KRW(0.025)) {
					t.Errorf("Normalize() = %v @ %v, want 1000 @ 0.025", tr.Quantity, tr.Price)
				}
			},
		},
		{
			name:   "us symbols are uppercased",
			modify: func(r *RawTrade) { r.Market = "us"; r.Symbol = "aapl" },
			want: func(t *testing.T, tr Trade) {
				if tr.Symbol != "AAPL" || tr.Price.Currency() != "USD" {
					t.Errorf("Normalize() = %s in %s, want AAPL in USD", tr.Symbol, tr.Price.Currency())
				}
			},
		},
		{
			name:   "kr symbols keep their case",
			modify: func(r *RawTrade) { r.Symbol = "kodex200" },
			want: func(t *testing.T, tr Trade) {
				if tr.Symbol != "kodex200" {
					t.Errorf("Normalize() symbol = %s, want kodex200", tr.Symbol)
				}
			},
		},
		{
			name:   "time in the date field",
			modify: func(r *RawTrade) { r.Date = "2024-01-05 15:20:01"; r.Time = "" },
			want: func(t *testing.T, tr Trade) {
				if tr.Timestamp.String() != "2024-01-05 15:20:01" {
					t.Errorf("Normalize() timestamp = %s", tr.Timestamp)
				}
			},
		},
		{
			name:   "no time is midnight",
			modify: func(r *RawTrade) { r.Time = "" },
			want: func(t *testing.T, tr Trade) {
				if tr.Timestamp.String() != "2024-01-05 00:00:00" {
					t.Errorf("Normalize() timestamp = %s", tr.Timestamp)
				}
			},
		},
		{
			name:   "fee with decimals",
			modify: func(r *RawTrade) { r.Fee = "12.5" },
			want: func(t *testing.T, tr Trade) {
				if !tr.Fee.Equal(KRW(12.5)) {
					t.Errorf("Normalize() fee = %v", tr.Fee.Decimal())
				}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := valid
			tc.modify(&raw)
			tr, err := n.Normalize(raw)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Normalize() unexpected error: %v", err)
				}
				tc.want(t, tr)
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Normalize() error = %v, want %v", err, tc.wantErr)
			}
			var fe *FieldError
			if !errors.As(err, &fe) || fe.Field != tc.field {
				t.Errorf("Normalize() error = %#v, want a FieldError on %q", err, tc.field)
			}
		})
	}
}

func TestRawFromTrade(t *testing.T) {
	want := usLot("id1", "2024-02-03 04:05:06", "MSFT", Sell, 1.5, 410.25, 0.99)
	got, err := NewNormalizer(nil).Normalize(RawFromTrade(want))
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("Normalize(RawFromTrade(t)) = %v, want %v", got, want)
	}
}
