package tradeledger

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// DocumentVersion is the schema version of the ledger document.
const DocumentVersion = 1

// document is the persisted form of a Ledger.
type document struct {
	Version   int     `json:"version"`
	Lots      []Trade `json:"lots"`
	LastSaved string  `json:"lastSaved,omitempty"`
}

// EncodeDocument writes the ledger document to w: a JSON object with the
// schema version, the lots in insertion order, and the last saved time when
// known. The same document is used for persistence and for full exports.
func EncodeDocument(w io.Writer, l Ledger) error {
	doc := document{Version: DocumentVersion, Lots: l.trades}
	if doc.Lots == nil {
		doc.Lots = []Trade{}
	}
	if !l.lastSaved.IsZero() {
		doc.LastSaved = l.lastSaved.UTC().Format(time.RFC3339)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("cannot encode ledger: %w", err)
	}
	return nil
}

// DecodeDocument reads a ledger document.
//
// Each lot is checked with the same rules as user input, and prices and fees
// get the currency of their market. A lot without ID gets a new one. Every
// error wraps ErrMalformedLedgerDocument. Oversells are not checked here, see
// ValidateAll.
func DecodeDocument(r io.Reader, markets *Markets) (Ledger, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Ledger{}, fmt.Errorf("%w: %v", ErrMalformedLedgerDocument, err)
	}
	if doc.Version != DocumentVersion {
		return Ledger{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedLedgerDocument, doc.Version)
	}

	n := NewNormalizer(markets)
	ids := make(map[string]bool, len(doc.Lots))
	trades := make([]Trade, 0, len(doc.Lots))
	for i, lot := range doc.Lots {
		if lot.Timestamp.IsZero() {
			return Ledger{}, fmt.Errorf("%w: lot #%d: %w", ErrMalformedLedgerDocument, i+1, ErrInvalidTimestamp)
		}
		t, err := n.Normalize(RawFromTrade(lot))
		if err != nil {
			return Ledger{}, fmt.Errorf("%w: lot #%d: %w", ErrMalformedLedgerDocument, i+1, err)
		}
		if t.ID == "" {
			t.ID = NewID()
		}
		if ids[t.ID] {
			return Ledger{}, fmt.Errorf("%w: lot #%d: %w: %q", ErrMalformedLedgerDocument, i+1, ErrDuplicateID, t.ID)
		}
		ids[t.ID] = true
		trades = append(trades, t)
	}

	l := Ledger{trades: trades}
	if doc.LastSaved != "" {
		if ts, err := time.Parse(time.RFC3339, doc.LastSaved); err == nil {
			l.lastSaved = ts
		}
	}
	return l, nil
}
