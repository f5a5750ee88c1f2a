// Package store provides the interface for the content store of a node together
// with a unified error type.
//
// The package focuses on:
//   - A unified interface (IStore) for the few operations a node needs: storing a
//     value under a key, reading it back and deleting batches of keys
//   - Pluggable storage backends created through the Factory function type
//
// Key Components:
//
//   - IStore Interface: The core abstraction shared by all backends. Keys and values
//     are opaque, the store never interprets either. Every implementation is safe
//     for concurrent use since one instance is shared by all connection handlers.
//
//   - Error System: A structured error reporting mechanism using typed return codes
//     and descriptive messages. Errors compare equal with errors.Is when their codes match.
//
// Implementations:
//
//	- Memory Store (mstore): a volatile store backed by a concurrent hash map.
//	  Available in the "github.com/ValentinKolb/dShare/lib/store/mstore" package.
//
//	- Badger Store (bstore): a persistent store backed by BadgerDB. Deletes are
//	  applied through a single write batch.
//	  Available in the "github.com/ValentinKolb/dShare/lib/store/bstore" package.
//
// Both implementations are verified with the shared test suite in the
// "github.com/ValentinKolb/dShare/lib/store/testing" package.
package store
