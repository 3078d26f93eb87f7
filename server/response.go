package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/etnz/tradeledger"
	"github.com/etnz/tradeledger/store"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// errorResponse is the body of every error response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// WriteError writes an error response with a machine readable code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeLedgerError maps engine and store errors to HTTP responses.
func writeLedgerError(w http.ResponseWriter, err error) {
	var fieldErr *tradeledger.FieldError
	switch {
	case errors.As(err, &fieldErr):
		WriteJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_error", Message: err.Error(), Field: fieldErr.Field})
	case errors.Is(err, tradeledger.ErrRecordNotFound):
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, tradeledger.ErrOversell):
		WriteError(w, http.StatusConflict, "oversell", err.Error())
	case errors.Is(err, tradeledger.ErrDuplicateID):
		WriteError(w, http.StatusConflict, "duplicate_id", err.Error())
	case errors.Is(err, store.ErrRestoreRequired):
		WriteError(w, http.StatusConflict, "restore_required", err.Error())
	case errors.Is(err, tradeledger.ErrMalformedLedgerDocument):
		WriteError(w, http.StatusBadRequest, "malformed_document", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// ParseJSON decodes the request body as JSON into v.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("request body must be JSON with Content-Type: application/json")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// field is a request value given either as a JSON string or a JSON number.
type field string

func (f *field) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = field(s)
		return nil
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = field(n)
	return nil
}
