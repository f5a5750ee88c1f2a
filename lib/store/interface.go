package store

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Factory creates the store used by a node
type Factory func() (IStore, error)

// IStore is the interface for the content store of a node.
// Keys and values are opaque. Implementations must be safe for concurrent use,
// a single instance is shared by every connection handler of a node.
type IStore interface {
	// Set inserts or replaces the value for a key.
	Set(key string, value []byte) (err error)
	// Get returns the value for a key. The boolean return value indicates whether a value for the key was found.
	Get(key string) (value []byte, loaded bool, err error)
	// Delete removes all given keys in one batch. Missing keys are ignored.
	Delete(keys ...string) (err error)
	// Info returns metadata about the store.
	// It is not guaranteed that the information is up-to-date!
	Info() (info Info, err error)
	// Close releases all resources held by the store.
	Close() (err error)
}

// Info holds metadata about a store
type Info struct {
	Engine string `json:"engine"`
	Keys   int    `json:"keys"`
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// ErrClosed is returned by operations on a closed store
var ErrClosed = NewError(RetCClosed, "store is closed")

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("StoreError (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is a store error with the same code
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new store Error with the given code for err
func WrapError(code RetCode, op string, err error) *Error {
	return NewError(code, fmt.Sprintf("%s: %v", op, err))
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess          RetCode = iota // 0: Command executed successfully.
	RetCInternalError                   // 1: Command failed due to an internal error.
	RetCInvalidOperation                // 2: Invalid operation.
	RetCClosed                          // 3: The store has been closed.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}
