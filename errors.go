package tradeledger

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers match them with errors.Is, the concrete errors
// returned by this package carry more context.
var (
	ErrInvalidMarket           = errors.New("invalid market")
	ErrMissingSymbol           = errors.New("missing symbol")
	ErrInvalidSide             = errors.New("invalid side")
	ErrInvalidTimestamp        = errors.New("invalid timestamp")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInvalidPrice            = errors.New("invalid price")
	ErrInvalidFee              = errors.New("invalid fee")
	ErrOversell                = errors.New("oversell rejected")
	ErrRecordNotFound          = errors.New("record not found")
	ErrDuplicateID             = errors.New("duplicate trade id")
	ErrMalformedLedgerDocument = errors.New("malformed ledger document")
)

// FieldError reports a field of a raw trade that could not be normalized.
type FieldError struct {
	Field string // "market", "symbol", "side", "timestamp", "qty", "price" or "fee"
	Value string // the raw value
	Err   error  // one of the sentinel errors
	cause error
}

func (e *FieldError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%v %q: %v", e.Err, e.Value, e.cause)
	}
	return fmt.Sprintf("%v %q", e.Err, e.Value)
}

func (e *FieldError) Unwrap() error { return e.Err }

// OversellError reports a sell whose quantity exceeds the holding at its point
// in the instrument timeline.
type OversellError struct {
	Instrument Instrument
	Timestamp  Timestamp
	TradeID    string
	Requested  Quantity // quantity of the sell
	Holding    Quantity // holding immediately before the sell
}

func (e *OversellError) Error() string {
	return fmt.Sprintf("on %s, cannot sell %v of %s, position is only %v", e.Timestamp, e.Requested, e.Instrument, e.Holding)
}

func (e *OversellError) Is(target error) bool { return target == ErrOversell }

// ImportRejectedError reports a bulk import discarded as a whole.
type ImportRejectedError struct {
	Err error // the invariant violation, usually an *OversellError
}

func (e *ImportRejectedError) Error() string {
	return fmt.Sprintf("import rejected, ledger left unchanged: %v", e.Err)
}

func (e *ImportRejectedError) Unwrap() error { return e.Err }

// notFound returns an error matching ErrRecordNotFound for the given id.
func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrRecordNotFound, id)
}
