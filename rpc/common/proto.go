package common

import (
	"bytes"
	"time"
)

// Version is the protocol and software version reported by nodes
const Version = "0.3.1"

// --------------------------------------------------------------------------
// Command Codes
// --------------------------------------------------------------------------

// CommandCode is the first byte of every request
type CommandCode byte

const (
	// CmdUnknown is the sentinel code answered for every unregistered command
	CmdUnknown CommandCode = 0x00
	// CmdCreate stores the payload under a new key and returns the key
	CmdCreate CommandCode = 0x01
	// CmdRemove deletes a NUL separated list of keys
	CmdRemove CommandCode = 0x02
	// CmdAggregate collects `key:value` entries for local and remote keys
	CmdAggregate CommandCode = 0x03
	// CmdMetadata returns a JSON description of the node
	CmdMetadata CommandCode = 0x04
)

func (c CommandCode) String() string {
	switch c {
	case CmdCreate:
		return "create"
	case CmdRemove:
		return "remove"
	case CmdAggregate:
		return "aggregate"
	case CmdMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Status Codes
// --------------------------------------------------------------------------

const (
	// StatusOK is the success code of every registered command
	StatusOK byte = 0x00
	// StatusFail is the failure code of every registered command
	StatusFail byte = 0x01
	// FailureMarker follows the failure code in a failure response
	FailureMarker byte = 0x01
)

// TargetSeparator separates keys and targets in request payloads and entries in aggregate responses
const TargetSeparator byte = 0x00

// AddressSeparator separates a key from the address of the node holding it
const AddressSeparator = "@"

// UnknownKeyValue is the value reported by aggregate for keys the node does not hold
var UnknownKeyValue = []byte("Unknown key")

// UnknownCommandResponse is sent for every unregistered command code
var UnknownCommandResponse = []byte{0x01, 0x01}

// --------------------------------------------------------------------------
// Sync Protocol
// --------------------------------------------------------------------------

// The sync messages live outside the command table. A message equal to
// ProtoSyncReq is answered with ProtoSyncOK or ProtoSyncNA, every other message
// starting with 0x10 is an unknown command.
var (
	// ProtoSyncReq asks a peer to acknowledge this node
	ProtoSyncReq = []byte{0x10, 0x01}
	// ProtoSyncOK grants full interaction
	ProtoSyncOK = []byte{0x10, 0x10}
	// ProtoSyncNA grants restricted access only
	ProtoSyncNA = []byte{0x10, 0x11}
)

// IsSyncRequest reports whether a message is a sync request
func IsSyncRequest(msg []byte) bool {
	return bytes.Equal(msg, ProtoSyncReq)
}

// --------------------------------------------------------------------------
// Transport Defaults
// --------------------------------------------------------------------------

const (
	// ReadChunkSize is the number of bytes the server reads per chunk
	ReadChunkSize = 8
	// ClientReadChunkSize is the number of bytes the client reads per chunk
	ClientReadChunkSize = 16

	DefaultReadGraceMillisecond = 25
	DefaultDialTimeoutSecond    = 5

	// DefaultReadGrace is DefaultReadGraceMillisecond as a duration
	DefaultReadGrace = DefaultReadGraceMillisecond * time.Millisecond
)
