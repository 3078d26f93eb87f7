// Package store persists ledger documents.
//
// The engine in package tradeledger never performs I/O. A Book runs every
// mutation as load, compute, write: it reads the full document from a Primary
// store, applies the engine, and rewrites the full document. A Backup store
// receives a copy of every write asynchronously, and is read back only when
// the primary is found empty or on explicit request.
package store

import "context"

// Primary is a synchronous key-value store holding the ledger document.
type Primary interface {
	// Get returns the value of key, and false if there is none.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value of key.
	Set(ctx context.Context, key string, value []byte) error
}

// Backup is a secondary key-value store. A Book writes to it in the
// background and reads from it to recover the document.
type Backup interface {
	// Load returns the last saved value of key, and false if there is none.
	Load(ctx context.Context, key string) ([]byte, bool, error)
	// Save replaces the value of key.
	Save(ctx context.Context, key string, value []byte) error
}
