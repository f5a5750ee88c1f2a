package common

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/dShare/lib/key"
)

// Protocol errors are reported to the caller as a failure response, the
// connection stays open.
var (
	ErrEmptyBuffer       = errors.New("empty buffer: create requires a payload")
	ErrEmptyKeys         = errors.New("empty keys: at least one key is required")
	ErrMetadataForbidden = errors.New("metadata is not available on this node")
)

// InvalidKeyError is returned when a key has not the length of a key
type InvalidKeyError struct {
	Key string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %q: expected %d characters, got %d", e.Key, key.Len, len(e.Key))
}
