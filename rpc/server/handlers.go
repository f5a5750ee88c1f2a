package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ValentinKolb/dShare/lib/key"
	"github.com/ValentinKolb/dShare/rpc/common"
)

// RemoteAggregator resolves a key on another node. It returns the response body
// of the remote aggregate command.
type RemoteAggregator interface {
	AggregateKey(ctx context.Context, addr, key string) ([]byte, error)
}

// handlers holds what the commands need besides the packet
type handlers struct {
	settings *common.Settings
	remote   RemoteAggregator
	addr     func() string
	peers    func() []common.PeerInfo
}

// commands returns the entries of the command table
func (h *handlers) commands() []Command {
	ok := ResponseCodes{Success: common.StatusOK, Failure: common.StatusFail}
	return []Command{
		{Code: common.CmdCreate, Name: common.CmdCreate.String(), Handler: h.create, ResponseCodes: ok},
		{Code: common.CmdRemove, Name: common.CmdRemove.String(), Handler: h.remove, ResponseCodes: ok},
		{Code: common.CmdAggregate, Name: common.CmdAggregate.String(), Handler: h.aggregate, ResponseCodes: ok},
		{Code: common.CmdMetadata, Name: common.CmdMetadata.String(), Handler: h.metadata, ResponseCodes: ok},
	}
}

// --------------------------------------------------------------------------
// Command Handlers
// --------------------------------------------------------------------------

// create stores the payload under a new key and returns the key
func (h *handlers) create(p *Packet) ([]byte, error) {
	if len(p.Payload) == 0 {
		return nil, common.ErrEmptyBuffer
	}

	k := key.New()
	if err := p.Store.Set(k, p.Payload); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}
	return []byte(k), nil
}

// remove deletes all listed keys in one batch. Only local keys are removed.
func (h *handlers) remove(p *Packet) ([]byte, error) {
	keys := splitTargets(p.Payload)
	if len(keys) == 0 {
		return nil, common.ErrEmptyKeys
	}

	if err := p.Store.Delete(keys...); err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	return []byte{}, nil
}

// aggregate resolves every target in order. Local keys contribute a
// `key:value\0` entry. Remote targets contribute the remote node's response
// body with its status byte stripped, so the result stays a flat list of
// entries. A remote failure status is not appended: like an invalid key or an
// unreachable node it aborts the whole command.
func (h *handlers) aggregate(p *Packet) ([]byte, error) {
	targets := splitTargets(p.Payload)
	if len(targets) == 0 {
		return nil, common.ErrEmptyKeys
	}

	var out bytes.Buffer
	for _, target := range targets {
		k, addr, remote := strings.Cut(target, common.AddressSeparator)
		if !key.Valid(k) {
			return nil, &common.InvalidKeyError{Key: k}
		}

		if remote {
			body, err := h.remote.AggregateKey(p.Ctx, addr, k)
			if err != nil {
				return nil, fmt.Errorf("aggregate %s@%s: %w", k, addr, err)
			}
			out.Write(body)
			continue
		}

		value, found, err := p.Store.Get(k)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", k, err)
		}
		if !found {
			value = common.UnknownKeyValue
		}
		out.WriteString(k)
		out.WriteByte(':')
		out.Write(value)
		out.WriteByte(common.TargetSeparator)
	}

	return out.Bytes(), nil
}

// metadata describes the node as JSON if the node allows it
func (h *handlers) metadata(p *Packet) ([]byte, error) {
	if !h.settings.Permissions.AllowMetadata {
		return nil, common.ErrMetadataForbidden
	}

	info, err := p.Store.Info()
	if err != nil {
		return nil, fmt.Errorf("metadata: %w", err)
	}

	return json.Marshal(common.NodeMetadata{
		Name:              h.settings.Name,
		Version:           h.settings.Version,
		Address:           h.addr(),
		Peers:             h.peers(),
		AllowInteractions: h.settings.Permissions.AllowInteractions,
		Store:             info,
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// splitTargets splits a payload at every separator byte, empty segments are dropped
func splitTargets(payload []byte) []string {
	var targets []string
	for _, seg := range bytes.Split(payload, []byte{common.TargetSeparator}) {
		if len(seg) > 0 {
			targets = append(targets, string(seg))
		}
	}
	return targets
}
