// Package tradeledger provides the accounting engine of a personal stock-trade
// ledger. It records buy and sell lots per instrument (a market and a symbol),
// and derives holdings, weighted-average cost and realized profit and loss.
//
// The engine is stateless and works on explicit values:
//   - Normalizer: turns raw user or file input into a canonical Trade.
//   - Replay: the single arithmetic authority. It replays the trades of one
//     instrument in timestamp order and produces a Timeline of positions.
//   - Aggregate: replays every instrument of a Ledger to summarize holdings.
//   - Ledger.Insert, Ledger.Edit and Ledger.Delete: mutations that return a new
//     Ledger, or reject the change when a sell would exceed the holding at its
//     point in time.
//   - Reconciler: merges an externally supplied trade list, all or nothing.
//
// Persistence is not part of this package. Callers load a Ledger (see
// DecodeDocument), apply a mutation and write the complete document back (see
// EncodeDocument). The store package implements that cycle.
package tradeledger
