// Package storage defines the Storage interface, a contract that any
// durable backend must satisfy to hold the student collection.
//
// WHY SO SMALL?
// ─────────────
// The record store never asks the backend to find, filter or update a
// single student. It keeps the whole collection in memory and rewrites it
// as ONE serialized blob under ONE key after every change. A backend is
// therefore nothing more than a key → bytes slot:
//
//   - Read the blob at startup.
//   - Write the blob after every mutation.
//
// Because of that, switching from SQLite to Redis (or to an in-memory map
// in tests) is a one-line change in main.go.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when nothing was ever written under key.
// Callers check it with errors.Is and treat it as "empty collection".
var ErrNotFound = errors.New("storage: key not found")

// Storage is the durable key-value slot contract.
type Storage interface {
	// Read returns the blob stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the blob stored under key. It is all-or-nothing:
	// a failed Write leaves the previous blob in place.
	Write(ctx context.Context, key string, blob []byte) error

	// Close releases the backend's connections.
	Close() error
}
