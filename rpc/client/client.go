package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/ValentinKolb/dShare/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("client")

var (
	// ErrEmptyResponse is returned when a node answered with an empty message
	ErrEmptyResponse = errors.New("empty response")
	// ErrUnexpectedSyncReply is returned when a peer answered a sync request with neither OK nor NA
	ErrUnexpectedSyncReply = errors.New("unexpected sync reply")
)

// RemoteError is returned when a node answered a request with a failure status
type RemoteError struct {
	Addr   string
	Code   common.CommandCode
	Status byte
	Body   []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s on %s failed with status %d", e.Code, e.Addr, e.Status)
}

// SyncResult is the answer of a peer to a sync request
type SyncResult int

const (
	SyncAcknowledged SyncResult = iota
	SyncRestricted
)

func (r SyncResult) String() string {
	if r == SyncAcknowledged {
		return "acknowledged"
	}
	return "restricted"
}

// Options configures a Client
type Options struct {
	// DialTimeout bounds connection setup, 0 means no timeout
	DialTimeout time.Duration
	// ReadGrace is the continuation grace of the chunked reader
	ReadGrace time.Duration
}

// DefaultOptions returns the options used by the command line tool
func DefaultOptions() Options {
	return Options{
		DialTimeout: common.DefaultDialTimeoutSecond * time.Second,
		ReadGrace:   common.DefaultReadGrace,
	}
}

// OptionsFromSettings derives client options from node settings
func OptionsFromSettings(s *common.Settings) Options {
	return Options{
		DialTimeout: s.DialTimeout(),
		ReadGrace:   s.ReadGrace(),
	}
}

// Client opens sessions to nodes. It is safe for concurrent use.
type Client struct {
	opts Options
}

// New creates a client
func New(opts Options) *Client {
	if opts.ReadGrace <= 0 {
		opts.ReadGrace = common.DefaultReadGrace
	}
	return &Client{opts: opts}
}

// --------------------------------------------------------------------------
// Session
// --------------------------------------------------------------------------

// Session is one connection to a node. It is not safe for concurrent use.
type Session struct {
	ctx   context.Context
	addr  string
	conn  net.Conn
	grace time.Duration
	stop  func() bool
}

// Open connects to the node at addr. Cancelling ctx closes the session.
func (c *Client) Open(ctx context.Context, addr string) (*Session, error) {
	conn, err := tcp.Dial(ctx, addr, c.opts.DialTimeout)
	if err != nil {
		return nil, err
	}

	return &Session{
		ctx:   ctx,
		addr:  addr,
		conn:  conn,
		grace: c.opts.ReadGrace,
		stop:  context.AfterFunc(ctx, func() { _ = conn.Close() }),
	}, nil
}

// Addr returns the address of the remote node
func (s *Session) Addr() string {
	return s.addr
}

// RoundTrip sends a raw message and returns the raw reply
func (s *Session) RoundTrip(msg []byte) ([]byte, error) {
	if err := tcp.Write(s.conn, msg); err != nil {
		return nil, s.cause(err)
	}
	reply, err := tcp.Read(s.conn, common.ClientReadChunkSize, s.grace)
	if err != nil {
		return nil, s.cause(fmt.Errorf("failed to read reply from %s: %w", s.addr, err))
	}
	return reply, nil
}

// Call sends a command and returns the response body without the status byte
func (s *Session) Call(code common.CommandCode, payload []byte) ([]byte, error) {
	msg := make([]byte, 0, len(payload)+1)
	msg = append(msg, byte(code))
	msg = append(msg, payload...)

	reply, err := s.RoundTrip(msg)
	if err != nil {
		return nil, err
	}
	if len(reply) == 0 {
		return nil, ErrEmptyResponse
	}

	if status := reply[0]; status != common.StatusOK {
		return nil, &RemoteError{Addr: s.addr, Code: code, Status: status, Body: reply[1:]}
	}
	return reply[1:], nil
}

// cause prefers the context error, a cancelled session fails with a closed connection
func (s *Session) cause(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}

// Close closes the connection
func (s *Session) Close() error {
	s.stop()
	return s.conn.Close()
}

// --------------------------------------------------------------------------
// Single Request Helpers
// --------------------------------------------------------------------------

// call opens a session, sends one command and closes the session
func (c *Client) call(ctx context.Context, addr string, code common.CommandCode, payload []byte) ([]byte, error) {
	s, err := c.Open(ctx, addr)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	Logger.Debugf("%s -> %s (%d bytes)", code, addr, len(payload))
	return s.Call(code, payload)
}

// Create stores value on the node and returns its key
func (c *Client) Create(ctx context.Context, addr string, value []byte) (string, error) {
	body, err := c.call(ctx, addr, common.CmdCreate, value)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Remove deletes keys on the node
func (c *Client) Remove(ctx context.Context, addr string, keys ...string) error {
	_, err := c.call(ctx, addr, common.CmdRemove, JoinTargets(keys...))
	return err
}

// Aggregate resolves targets (`key` or `key@host:port`) on the node and returns
// the NUL terminated `key:value` entries
func (c *Client) Aggregate(ctx context.Context, addr string, targets ...string) ([]byte, error) {
	return c.call(ctx, addr, common.CmdAggregate, JoinTargets(targets...))
}

// AggregateKey resolves a single key on the node at addr. The request carries
// the key followed by one separator.
func (c *Client) AggregateKey(ctx context.Context, addr, key string) ([]byte, error) {
	payload := make([]byte, 0, len(key)+1)
	payload = append(payload, key...)
	payload = append(payload, common.TargetSeparator)
	return c.call(ctx, addr, common.CmdAggregate, payload)
}

// Metadata queries the node's metadata
func (c *Client) Metadata(ctx context.Context, addr string) (*common.NodeMetadata, error) {
	body, err := c.call(ctx, addr, common.CmdMetadata, nil)
	if err != nil {
		return nil, err
	}
	md := &common.NodeMetadata{}
	if err := json.Unmarshal(body, md); err != nil {
		return nil, fmt.Errorf("invalid metadata from %s: %w", addr, err)
	}
	return md, nil
}

// Sync runs the sync handshake against the node at addr
func (c *Client) Sync(ctx context.Context, addr string) (SyncResult, error) {
	s, err := c.Open(ctx, addr)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	reply, err := s.RoundTrip(common.ProtoSyncReq)
	if err != nil {
		return 0, err
	}

	switch {
	case bytes.Equal(reply, common.ProtoSyncOK):
		return SyncAcknowledged, nil
	case bytes.Equal(reply, common.ProtoSyncNA):
		return SyncRestricted, nil
	default:
		return 0, fmt.Errorf("%w from %s: %v", ErrUnexpectedSyncReply, addr, reply)
	}
}

// --------------------------------------------------------------------------
// Payload Helpers
// --------------------------------------------------------------------------

// Target builds an address qualified target, an empty addr yields the plain key
func Target(key, addr string) string {
	if addr == "" {
		return key
	}
	return key + common.AddressSeparator + addr
}

// JoinTargets joins keys or targets with the target separator
func JoinTargets(targets ...string) []byte {
	return []byte(strings.Join(targets, string(common.TargetSeparator)))
}

// Entry is one `key:value` entry of an aggregate response
type Entry struct {
	Key   string
	Value []byte
}

// ParseEntries splits an aggregate response into its entries.
// Values containing a separator byte can not be recovered and are split as well.
func ParseEntries(body []byte) []Entry {
	var entries []Entry
	for _, raw := range bytes.Split(body, []byte{common.TargetSeparator}) {
		if len(raw) == 0 {
			continue
		}
		k, v, _ := bytes.Cut(raw, []byte(":"))
		entries = append(entries, Entry{Key: string(k), Value: v})
	}
	return entries
}
