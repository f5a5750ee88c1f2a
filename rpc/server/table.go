package server

import (
	"context"
	"fmt"
	"net"
	"sort"

	"github.com/ValentinKolb/dShare/lib/store"
	"github.com/ValentinKolb/dShare/rpc/common"
)

// Packet is the context of one inbound request. It lives for a single handler invocation.
type Packet struct {
	Ctx     context.Context
	Code    common.CommandCode
	Payload []byte
	Conn    net.Conn
	Store   store.IStore
}

// HandlerFunc executes a command and returns the response body
type HandlerFunc func(p *Packet) ([]byte, error)

// ResponseCodes are the status bytes a command answers with
type ResponseCodes struct {
	Success byte
	Failure byte
}

// Command describes one entry of the command table
type Command struct {
	Code    common.CommandCode
	Name    string
	Handler HandlerFunc
	ResponseCodes
}

// CommandTable maps command codes to their handler and response codes.
// It is immutable once built.
type CommandTable struct {
	handlers map[common.CommandCode]HandlerFunc
	codes    map[common.CommandCode]ResponseCodes
	names    map[common.CommandCode]string
}

// NewCommandTable builds the table from an explicit list of commands.
// Duplicate codes, the sentinel code and missing handlers are rejected.
func NewCommandTable(commands ...Command) (*CommandTable, error) {
	t := &CommandTable{
		handlers: make(map[common.CommandCode]HandlerFunc, len(commands)),
		codes:    make(map[common.CommandCode]ResponseCodes, len(commands)+1),
		names:    make(map[common.CommandCode]string, len(commands)),
	}

	for _, cmd := range commands {
		switch {
		case cmd.Code == common.CmdUnknown:
			return nil, fmt.Errorf("command %q uses the reserved code %#02x", cmd.Name, byte(cmd.Code))
		case cmd.Handler == nil:
			return nil, fmt.Errorf("command %q (%#02x) has no handler", cmd.Name, byte(cmd.Code))
		}
		if _, dup := t.handlers[cmd.Code]; dup {
			return nil, fmt.Errorf("duplicate command code %#02x (%s, %s)", byte(cmd.Code), t.names[cmd.Code], cmd.Name)
		}

		t.handlers[cmd.Code] = cmd.Handler
		t.codes[cmd.Code] = cmd.ResponseCodes
		t.names[cmd.Code] = cmd.Name
	}

	t.codes[common.CmdUnknown] = ResponseCodes{
		Success: common.UnknownCommandResponse[0],
		Failure: common.UnknownCommandResponse[1],
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// validate checks that every handler has response codes and the response codes
// contain nothing but the handlers and the sentinel
func (t *CommandTable) validate() error {
	if len(t.codes) != len(t.handlers)+1 {
		return fmt.Errorf("command table mismatch: %d handlers, %d response codes", len(t.handlers), len(t.codes))
	}
	for code := range t.handlers {
		if _, ok := t.codes[code]; !ok {
			return fmt.Errorf("command %#02x has no response codes", byte(code))
		}
	}
	return nil
}

// Lookup returns the handler and response codes of a command
func (t *CommandTable) Lookup(code common.CommandCode) (HandlerFunc, ResponseCodes, bool) {
	h, ok := t.handlers[code]
	if !ok {
		return nil, t.codes[common.CmdUnknown], false
	}
	return h, t.codes[code], true
}

// Name returns the registered name of a command, or "unknown"
func (t *CommandTable) Name(code common.CommandCode) string {
	if name, ok := t.names[code]; ok {
		return name
	}
	return common.CmdUnknown.String()
}

// Codes returns all registered command codes in ascending order
func (t *CommandTable) Codes() []common.CommandCode {
	codes := make([]common.CommandCode, 0, len(t.handlers))
	for code := range t.handlers {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Len returns the number of registered commands
func (t *CommandTable) Len() int {
	return len(t.handlers)
}

// Dispatch runs the handler for p.Code and returns the complete response.
// Unregistered codes yield the unknown command response, failing handlers
// yield the failure code followed by the failure marker.
//
// The exact message common.ProtoSyncReq never reaches the table. The
// connection handler answers it with the sync reply, so code 0x10 followed by
// 0x01 and nothing else is the one unregistered message not answered with [1,1].
func (t *CommandTable) Dispatch(p *Packet) (resp []byte, err error) {
	handler, codes, ok := t.Lookup(p.Code)
	if !ok {
		return []byte{codes.Success, codes.Failure}, nil
	}

	result, err := handler(p)
	if err != nil {
		return []byte{codes.Failure, common.FailureMarker}, err
	}

	resp = make([]byte, 0, len(result)+1)
	resp = append(resp, codes.Success)
	return append(resp, result...), nil
}
