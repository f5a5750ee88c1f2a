package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dShare/lib/pool"
	"github.com/ValentinKolb/dShare/lib/store"
	"github.com/ValentinKolb/dShare/rpc/client"
	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/ValentinKolb/dShare/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/multierr"
)

var (
	Logger         = logger.GetLogger("node")
	DispatchLogger = logger.GetLogger("dispatch")
)

// ErrNodeClosed is returned by Bind and Serve after Close
var ErrNodeClosed = errors.New("node is closed")

// Option customises a node
type Option func(n *Node)

// WithRemote replaces the client used to resolve remote keys during aggregation
func WithRemote(r RemoteAggregator) Option {
	return func(n *Node) { n.remote = r }
}

// WithSyncer replaces the client used for the sync handshake with peers
func WithSyncer(s Syncer) Option {
	return func(n *Node) { n.syncer = s }
}

// Node is one member of the network. It owns the listener, the worker pool,
// the command table and the sync daemon. The store is shared with the caller
// and not closed by the node.
type Node struct {
	settings *common.Settings
	store    store.IStore
	table    *CommandTable
	pool     *pool.Pool
	remote   RemoteAggregator
	syncer   Syncer
	peers    *peerRegistry
	metrics  *nodeMetrics

	mu            sync.Mutex
	listener      net.Listener
	metricsServer *metricsServer
	closed        atomic.Bool

	conns  *xsync.MapOf[uint64, net.Conn]
	connID atomic.Uint64

	// ctx is cancelled on Close and bounds all outbound calls made by handlers
	ctx    context.Context
	cancel context.CancelFunc

	syncCancel context.CancelFunc
	synced     chan struct{}
	syncOnce   sync.Once
	serving    sync.WaitGroup
}

// NewNode validates the settings and creates a node. A command table that
// fails validation is a fatal construction error.
//
// Usage:
//
//	n, err := server.NewNode(settings, mstore.NewMemoryStore())
//	if err != nil {
//		return err
//	}
//	defer n.Close()
//
//	if err := n.Start(); err != nil {
//		return err
//	}
func NewNode(settings *common.Settings, s store.IStore, opts ...Option) (*Node, error) {
	if settings == nil {
		return nil, errors.New("settings must not be nil")
	}
	if s == nil {
		return nil, errors.New("store must not be nil")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if err := common.InitLoggers(settings.LogLevel); err != nil {
		return nil, err
	}

	c := client.New(client.OptionsFromSettings(settings))
	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		ctx:      ctx,
		cancel:   cancel,
		settings: settings,
		store:    s,
		remote:   c,
		syncer:   c,
		peers:    newPeerRegistry(settings.Peers),
		conns:    xsync.NewMapOf[uint64, net.Conn](),
		synced:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	h := &handlers{
		settings: settings,
		remote:   n.remote,
		addr:     n.address,
		peers:    n.Peers,
	}
	table, err := NewCommandTable(h.commands()...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("invalid command table: %w", err)
	}
	n.table = table

	p, err := pool.New(settings.Workers)
	if err != nil {
		cancel()
		return nil, err
	}
	n.pool = p
	n.metrics = newNodeMetrics(n)

	Logger.Infof("created node %s", settings.Name)
	Logger.Infof("%s", settings.String())
	return n, nil
}

// Bind creates the listener (and the metrics endpoint if configured)
func (n *Node) Bind() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed.Load() {
		return ErrNodeClosed
	}
	if n.listener != nil {
		return errors.New("node is already bound")
	}

	listener, err := tcp.Listen(n.settings)
	if err != nil {
		return err
	}

	if n.settings.MetricsEndpoint != "" {
		ms, err := startMetricsServer(n.settings.MetricsEndpoint, n.metrics)
		if err != nil {
			_ = listener.Close()
			return err
		}
		n.metricsServer = ms
	}

	n.listener = listener
	Logger.Infof("node %s listening on %s with %d workers", n.settings.Name, listener.Addr(), n.pool.Size())
	return nil
}

// Serve starts the sync daemon and accepts connections until the node is closed.
// Every accepted connection becomes one job of the worker pool.
func (n *Node) Serve() error {
	n.mu.Lock()
	listener := n.listener
	if n.closed.Load() {
		n.mu.Unlock()
		return ErrNodeClosed
	}
	if listener == nil {
		n.mu.Unlock()
		return errors.New("node is not bound")
	}
	n.serving.Add(1)
	n.mu.Unlock()
	defer n.serving.Done()

	n.startSync()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if n.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("accept error: %v", err)
			continue
		}

		if err := tcp.UpgradeConnection(conn, n.settings); err != nil {
			Logger.Warningf("failed to apply socket options for %s: %v", conn.RemoteAddr(), err)
		}

		id := n.connID.Add(1)
		n.conns.Store(id, conn)
		n.metrics.connections.Inc()

		if err := n.pool.Submit(func() { n.handleConnection(id, conn) }); err != nil {
			Logger.Warningf("rejected connection from %s: %v", conn.RemoteAddr(), err)
			n.conns.Delete(id)
			_ = conn.Close()
		}
	}
}

// Start binds the node and serves until it is closed
func (n *Node) Start() error {
	if err := n.Bind(); err != nil {
		return err
	}
	return n.Serve()
}

// Close stops accepting connections, cancels the sync daemon, closes all open
// connections and waits for the workers to finish
func (n *Node) Close() error {
	n.mu.Lock()
	if n.closed.Swap(true) {
		n.mu.Unlock()
		return nil
	}

	var err error
	if n.listener != nil {
		err = multierr.Append(err, n.listener.Close())
	}
	if n.metricsServer != nil {
		err = multierr.Append(err, n.metricsServer.Close())
	}
	n.mu.Unlock()

	n.serving.Wait()
	n.cancel()

	if n.syncCancel != nil {
		n.syncCancel()
		<-n.synced
	}

	n.conns.Range(func(id uint64, conn net.Conn) bool {
		if cerr := conn.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = multierr.Append(err, cerr)
		}
		return true
	})

	n.pool.Close()
	Logger.Infof("node %s stopped", n.settings.Name)
	return err
}

// Addr returns the address the node listens on, nil before Bind
func (n *Node) Addr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listener == nil {
		return nil
	}
	return n.listener.Addr()
}

// MetricsAddr returns the address of the metrics endpoint, nil if disabled
func (n *Node) MetricsAddr() net.Addr {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.metricsServer == nil {
		return nil
	}
	return n.metricsServer.Addr()
}

// Settings returns the node's settings. They must not be modified.
func (n *Node) Settings() *common.Settings {
	return n.settings
}

// Peers returns the sync state of every configured peer
func (n *Node) Peers() []common.PeerInfo {
	return n.peers.list()
}

// Synced is closed once the sync daemon finished its pass over the peers
func (n *Node) Synced() <-chan struct{} {
	return n.synced
}

// WritePrometheus writes the node's metrics in Prometheus text format
func (n *Node) WritePrometheus(w io.Writer) {
	n.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// startSync spawns the sync daemon exactly once
func (n *Node) startSync() {
	n.syncOnce.Do(func() {
		ctx, cancel := context.WithCancel(n.ctx)
		n.mu.Lock()
		n.syncCancel = cancel
		n.mu.Unlock()
		go n.runSync(ctx)
	})
}

// address returns the bound address, or the configured one before Bind
func (n *Node) address() string {
	if addr := n.Addr(); addr != nil {
		return addr.String()
	}
	return n.settings.Address
}

// handleConnection serves requests on one connection until the peer
// disconnects, an I/O error occurs or the node is closed
func (n *Node) handleConnection(id uint64, conn net.Conn) {
	defer func() {
		n.conns.Delete(id)
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr()
	Logger.Debugf("connection %d from %s opened", id, remote)

	ctx, cancel := context.WithCancel(n.ctx)
	defer cancel()

	for {
		msg, err := tcp.Read(conn, common.ReadChunkSize, n.settings.ReadGrace())
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				Logger.Debugf("connection %d closed by %s", id, remote)
			case n.closed.Load():
				Logger.Debugf("connection %d closed on shutdown", id)
			default:
				Logger.Warningf("connection %d from %s failed: %v", id, remote, err)
			}
			return
		}

		if len(msg) == 0 {
			continue
		}

		if common.IsSyncRequest(msg) {
			if err := n.respondSync(conn); err != nil {
				Logger.Warningf("connection %d: %v", id, err)
				return
			}
			continue
		}

		resp := n.dispatch(&Packet{
			Ctx:     ctx,
			Code:    common.CommandCode(msg[0]),
			Payload: msg[1:],
			Conn:    conn,
			Store:   n.store,
		})

		if err := tcp.Write(conn, resp); err != nil {
			Logger.Warningf("connection %d: %v", id, err)
			return
		}
	}
}

// dispatch runs a command through the table and records its metrics
func (n *Node) dispatch(p *Packet) []byte {
	start := time.Now()
	name := n.table.Name(p.Code)

	resp, err := n.table.Dispatch(p)
	if err != nil {
		DispatchLogger.Errorf("%s from %s failed: %v", name, p.Conn.RemoteAddr(), err)
	} else {
		DispatchLogger.Debugf("%s from %s took %s", name, p.Conn.RemoteAddr(), time.Since(start))
	}

	n.metrics.observeRequest(name, err, start)
	return resp
}
