// Package key generates and validates the identifiers under which content is stored.
//
// Keys are ULIDs in their canonical 26 character text form. They sort
// lexicographically by creation time and are unique with overwhelming probability,
// so nodes never need to coordinate when creating content.
package key

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Len is the length of a key in its text form
const Len = ulid.EncodedSize

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh key
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether k has the length of a key.
// The content of the key is not inspected, keys created by other nodes are
// only required to have the correct length.
func Valid(k string) bool {
	return len(k) == Len
}
