package server

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/etnz/tradeledger"
	"github.com/etnz/tradeledger/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type handler struct {
	book *store.Book
	log  *zap.Logger
}

// tradeRequest is the body of POST /trades and PATCH /trades/{id}. On PATCH,
// absent fields keep their current value.
type tradeRequest struct {
	ID       *field `json:"id"`
	Market   *field `json:"market"`
	Symbol   *field `json:"symbol"`
	Side     *field `json:"type"`
	Date     *field `json:"date"`
	Time     *field `json:"time"`
	Quantity *field `json:"qty"`
	Price    *field `json:"price"`
	Fee      *field `json:"fee"`
}

// apply copies the fields present in the request onto raw.
func (req tradeRequest) apply(raw *tradeledger.RawTrade) {
	set := func(dst *string, f *field) {
		if f != nil {
			*dst = string(*f)
		}
	}
	set(&raw.Market, req.Market)
	set(&raw.Symbol, req.Symbol)
	set(&raw.Side, req.Side)
	if req.Date != nil {
		// the stored date carries the time, a new date starts from scratch
		raw.Date, raw.Time = string(*req.Date), ""
	}
	if req.Time != nil {
		if req.Date == nil {
			raw.Date, _, _ = strings.Cut(raw.Date, " ")
		}
		raw.Time = string(*req.Time)
	}
	set(&raw.Quantity, req.Quantity)
	set(&raw.Price, req.Price)
	set(&raw.Fee, req.Fee)
}

type holdingResponse struct {
	Market      string                `json:"market"`
	Symbol      string                `json:"symbol"`
	Currency    string                `json:"currency"`
	Quantity    tradeledger.Quantity  `json:"qty"`
	AverageCost tradeledger.Money     `json:"avgCost"`
	CostBasis   tradeledger.Money     `json:"costBasis"`
	Realized    tradeledger.Money     `json:"realized"`
	Trades      int                   `json:"trades"`
	LastTrade   tradeledger.Timestamp `json:"lastTrade"`
}

type totalResponse struct {
	Currency  string            `json:"currency"`
	CostBasis tradeledger.Money `json:"costBasis"`
	Realized  tradeledger.Money `json:"realized"`
}

type holdingsResponse struct {
	Holdings []holdingResponse `json:"holdings"`
	Totals   []totalResponse   `json:"totals"`
}

type timelineEntryResponse struct {
	Seq         int                   `json:"idx"`
	Trade       tradeledger.Trade     `json:"trade"`
	Quantity    tradeledger.Quantity  `json:"afterQty"`
	AverageCost tradeledger.Money     `json:"avgCostAfter"`
	Realized    tradeledger.Money     `json:"realized"`
}

type rowErrorResponse struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

type importResponse struct {
	Accepted []tradeledger.Trade `json:"accepted"`
	Skipped  int                 `json:"skipped"`
	Errors   []rowErrorResponse  `json:"errors"`
	Rejected string              `json:"rejected,omitempty"`
}

// load reads the ledger, writing an error response on failure.
func (h *handler) load(w http.ResponseWriter, r *http.Request) (tradeledger.Ledger, bool) {
	l, status, err := h.book.Load(r.Context())
	if err != nil {
		writeLedgerError(w, err)
		return l, false
	}
	if status == store.Malformed {
		h.log.Warn("serving an empty ledger, the stored document is malformed", zap.Stringer("status", status))
	}
	return l, true
}

// listTrades handles GET /trades.
func (h *handler) listTrades(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	trades := l.Slice()
	if trades == nil {
		trades = []tradeledger.Trade{}
	}
	WriteJSON(w, http.StatusOK, trades)
}

// addTrade handles POST /trades.
func (h *handler) addTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var raw tradeledger.RawTrade
	if req.ID != nil {
		raw.ID = string(*req.ID)
	}
	req.apply(&raw)

	t, err := h.book.Add(r.Context(), raw)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, t)
}

// getTrade handles GET /trades/{id}.
func (h *handler) getTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	t, found := l.Trade(id)
	if !found {
		WriteError(w, http.StatusNotFound, "not_found", "no trade with id "+id)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// editTrade handles PATCH /trades/{id}.
func (h *handler) editTrade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.ID != nil && string(*req.ID) != id {
		WriteError(w, http.StatusBadRequest, "invalid_request", "the id of a trade cannot change")
		return
	}

	t, err := h.book.Edit(r.Context(), id, req.apply)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// deleteTrade handles DELETE /trades/{id}.
func (h *handler) deleteTrade(w http.ResponseWriter, r *http.Request) {
	t, err := h.book.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// holdings handles GET /holdings.
func (h *handler) holdings(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	summaries := tradeledger.Aggregate(l)
	resp := holdingsResponse{Holdings: []holdingResponse{}, Totals: []totalResponse{}}
	for _, s := range summaries {
		resp.Holdings = append(resp.Holdings, holdingResponse{
			Market:      s.Instrument.Market,
			Symbol:      s.Instrument.Symbol,
			Currency:    s.Currency,
			Quantity:    s.Quantity,
			AverageCost: s.AverageCost,
			CostBasis:   s.CostBasis,
			Realized:    s.Realized,
			Trades:      s.Trades,
			LastTrade:   s.LastTrade,
		})
	}
	for _, t := range tradeledger.Totals(summaries) {
		resp.Totals = append(resp.Totals, totalResponse{Currency: t.Currency, CostBasis: t.CostBasis, Realized: t.Realized})
	}
	WriteJSON(w, http.StatusOK, resp)
}

// timeline handles GET /instruments/{market}/{symbol}/timeline.
func (h *handler) timeline(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	inst, err := h.book.Markets().Resolve(chi.URLParam(r, "market"), chi.URLParam(r, "symbol"))
	if err != nil {
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	tl := l.Timeline(inst)
	if tl.Len() == 0 {
		WriteError(w, http.StatusNotFound, "not_found", "no trade for "+inst.String())
		return
	}
	entries := make([]timelineEntryResponse, 0, tl.Len())
	for _, e := range tl.Entries {
		entries = append(entries, timelineEntryResponse{
			Seq:         e.Seq,
			Trade:       e.Trade,
			Quantity:    e.After.Quantity,
			AverageCost: e.After.AverageCost,
			Realized:    e.Realized,
		})
	}
	WriteJSON(w, http.StatusOK, entries)
}

// importTrades handles POST /import. The body is a delimited trade list.
func (h *handler) importTrades(w http.ResponseWriter, r *http.Request) {
	report, err := h.book.Import(r.Context(), r.Body)
	resp := importResponse{Accepted: report.Accepted, Skipped: report.Skipped, Errors: []rowErrorResponse{}}
	if resp.Accepted == nil {
		resp.Accepted = []tradeledger.Trade{}
	}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, rowErrorResponse{Line: e.Line, Error: e.Err.Error()})
	}

	var rejected *tradeledger.ImportRejectedError
	switch {
	case errors.As(err, &rejected):
		resp.Rejected = rejected.Error()
		WriteJSON(w, http.StatusConflict, resp)
	case err != nil:
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		WriteJSON(w, http.StatusOK, resp)
	}
}

// dump handles GET /ledger: the full ledger document.
func (h *handler) dump(w http.ResponseWriter, r *http.Request) {
	l, ok := h.load(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := tradeledger.EncodeDocument(&buf, l); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// restore handles PUT /ledger: replaces the ledger with a full document.
func (h *handler) restore(w http.ResponseWriter, r *http.Request) {
	l, err := h.book.Restore(r.Context(), r.Body)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"trades": l.Len()})
}
