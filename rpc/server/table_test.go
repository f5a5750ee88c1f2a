package server

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okCodes = ResponseCodes{Success: common.StatusOK, Failure: common.StatusFail}

func echo(p *Packet) ([]byte, error) {
	return p.Payload, nil
}

func TestCommandTableFromHandlers(t *testing.T) {
	h := &handlers{settings: common.DefaultSettings()}
	table, err := NewCommandTable(h.commands()...)
	require.NoError(t, err)

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []common.CommandCode{common.CmdCreate, common.CmdRemove, common.CmdAggregate, common.CmdMetadata}, table.Codes())
	for _, code := range table.Codes() {
		_, codes, ok := table.Lookup(code)
		assert.True(t, ok)
		assert.Equal(t, okCodes, codes)
	}

	assert.Equal(t, "aggregate", table.Name(common.CmdAggregate))
	assert.Equal(t, "unknown", table.Name(0x42))
}

func TestCommandTableRejectsInvalidEntries(t *testing.T) {
	tests := []struct {
		name     string
		commands []Command
	}{
		{"duplicate", []Command{
			{Code: 0x01, Name: "a", Handler: echo, ResponseCodes: okCodes},
			{Code: 0x01, Name: "b", Handler: echo, ResponseCodes: okCodes},
		}},
		{"sentinel", []Command{
			{Code: common.CmdUnknown, Name: "zero", Handler: echo, ResponseCodes: okCodes},
		}},
		{"nil handler", []Command{
			{Code: 0x05, Name: "nothing", ResponseCodes: okCodes},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			table, err := NewCommandTable(tc.commands...)
			assert.Error(t, err)
			assert.Nil(t, table)
		})
	}
}

func TestDispatch(t *testing.T) {
	boom := errors.New("boom")
	table, err := NewCommandTable(
		Command{Code: 0x01, Name: "echo", Handler: echo, ResponseCodes: okCodes},
		Command{Code: 0x02, Name: "fail", Handler: func(*Packet) ([]byte, error) { return nil, boom }, ResponseCodes: ResponseCodes{Success: 0x20, Failure: 0x21}},
	)
	require.NoError(t, err)

	resp, err := table.Dispatch(&Packet{Code: 0x01, Payload: []byte("hi")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 'h', 'i'}, resp)

	resp, err = table.Dispatch(&Packet{Code: 0x02})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []byte{0x21, common.FailureMarker}, resp)

	for _, code := range []common.CommandCode{0x00, 0x03, 0x7f, 0xff} {
		resp, err = table.Dispatch(&Packet{Code: code, Payload: []byte("ignored")})
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 1}, resp, "code %#02x", byte(code))
	}
}
