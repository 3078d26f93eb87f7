package tradeledger

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultImportTime is the time given to imported rows without one.
const DefaultImportTime = "09:00:00"

// RowError is an import row that could not be normalized.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e RowError) Unwrap() error { return e.Err }

// ImportReport is the outcome of a bulk import.
type ImportReport struct {
	Accepted []Trade    // trades added to the ledger, with their new IDs
	Skipped  int        // rows already in the ledger, or earlier in the batch
	Errors   []RowError // rows that could not be normalized
}

// Reconciler merges imported rows into a ledger.
type Reconciler struct {
	Normalizer  Normalizer
	DefaultTime string // "HH:MM:SS" for rows without a time, DefaultImportTime if empty
}

// NewReconciler returns a Reconciler for the given markets, or the default
// ones when nil.
func NewReconciler(markets *Markets) Reconciler {
	return Reconciler{Normalizer: NewNormalizer(markets), DefaultTime: DefaultImportTime}
}

// Reconcile merges rows into l, all or nothing.
//
// Rows are canonicalized with lenient rules then normalized; invalid rows are
// reported in ImportReport.Errors and left out. When the market cell is blank
// it is inferred from the symbol, see Markets.InferMarket: an explicit market
// column always takes precedence. A row identical to a trade of the ledger,
// or to a row earlier in the batch, on every field but the ID is skipped.
//
// Once staged, the whole resulting ledger is replayed strictly. If any
// instrument is oversold the batch is discarded: Reconcile returns l itself
// and an *ImportRejectedError naming the instrument and the timestamp.
func (r Reconciler) Reconcile(l Ledger, rows []ImportRow) (Ledger, ImportReport, error) {
	defaultTime := r.DefaultTime
	if defaultTime == "" {
		defaultTime = DefaultImportTime
	}

	known := make(map[string]bool, l.Len()+len(rows))
	for t := range l.Trades() {
		known[t.DedupKey()] = true
	}

	var report ImportReport
	var staged []Trade
	for _, row := range rows {
		raw := canonicalize(row.Raw, defaultTime)
		raw.ID = ""
		if strings.TrimSpace(raw.Market) == "" {
			mk, ok := r.Normalizer.Markets.InferMarket(raw.Symbol)
			if !ok {
				report.Errors = append(report.Errors, RowError{Line: row.Line, Err: &FieldError{Field: "market", Value: raw.Market, Err: ErrInvalidMarket}})
				continue
			}
			raw.Market = mk.Code
		}
		t, err := r.Normalizer.Normalize(raw)
		if err != nil {
			report.Errors = append(report.Errors, RowError{Line: row.Line, Err: err})
			continue
		}
		key := t.DedupKey()
		if known[key] {
			report.Skipped++
			continue
		}
		known[key] = true
		t.ID = NewID()
		staged = append(staged, t)
	}

	next := l.with(append(slices.Clone(l.trades), staged...))
	if err := ValidateAll(next); err != nil {
		return l, ImportReport{Skipped: report.Skipped, Errors: report.Errors}, &ImportRejectedError{Err: err}
	}
	report.Accepted = staged
	return next, report, nil
}
