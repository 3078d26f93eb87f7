// Package server exposes a Book over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/etnz/tradeledger/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter returns the routes of the ledger API.
func NewRouter(book *store.Book, log *zap.Logger) chi.Router {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{book: book, log: log}

	r := chi.NewRouter()
	r.Use(requestLogging(log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/trades", h.listTrades)
	r.Post("/trades", h.addTrade)
	r.Get("/trades/{id}", h.getTrade)
	r.Patch("/trades/{id}", h.editTrade)
	r.Delete("/trades/{id}", h.deleteTrade)

	r.Get("/holdings", h.holdings)
	r.Get("/instruments/{market}/{symbol}/timeline", h.timeline)

	r.Post("/import", h.importTrades)
	r.Get("/ledger", h.dump)
	r.Put("/ledger", h.restore)

	return r
}

// requestLogging logs each request's method, path, status code and duration.
func requestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter captures the status code of a response.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}
