package server

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/ValentinKolb/dShare/rpc/client"
	"github.com/ValentinKolb/dShare/rpc/common"
	"github.com/ValentinKolb/dShare/rpc/transport/tcp"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var SyncLogger = logger.GetLogger("sync")

// --------------------------------------------------------------------------
// Peer Registry
// --------------------------------------------------------------------------

// peerRegistry records the sync outcome per peer. The configured peer list
// itself stays immutable in the settings.
type peerRegistry struct {
	order []string
	state *xsync.MapOf[string, common.PeerInfo]
}

func newPeerRegistry(peers []string) *peerRegistry {
	r := &peerRegistry{
		state: xsync.NewMapOf[string, common.PeerInfo](),
	}
	for _, addr := range peers {
		if _, dup := r.state.LoadOrStore(addr, common.PeerInfo{Address: addr, Status: common.PeerUnknown}); !dup {
			r.order = append(r.order, addr)
		}
	}
	return r
}

// record stores the outcome of a handshake
func (r *peerRegistry) record(addr string, status common.PeerStatus, attempts int, err error) {
	info := common.PeerInfo{
		Address:   addr,
		Status:    status,
		Attempts:  attempts,
		UpdatedAt: time.Now().Unix(),
	}
	if err != nil {
		info.LastError = err.Error()
	}
	r.state.Store(addr, info)
}

// list returns the state of every peer in configuration order
func (r *peerRegistry) list() []common.PeerInfo {
	out := make([]common.PeerInfo, 0, len(r.order))
	for _, addr := range r.order {
		if info, ok := r.state.Load(addr); ok {
			out = append(out, info)
		}
	}
	return out
}

// count returns the number of peers with the given status
func (r *peerRegistry) count(status common.PeerStatus) int {
	n := 0
	r.state.Range(func(_ string, info common.PeerInfo) bool {
		if info.Status == status {
			n++
		}
		return true
	})
	return n
}

// --------------------------------------------------------------------------
// Sync Daemon
// --------------------------------------------------------------------------

// Syncer runs the sync handshake against a peer
type Syncer interface {
	Sync(ctx context.Context, addr string) (client.SyncResult, error)
}

// runSync performs one pass over all configured peers, one at a time. Each peer
// is retried according to the node's retry policy.
func (n *Node) runSync(ctx context.Context) {
	defer close(n.synced)

	peers := n.peers.order
	if len(peers) == 0 {
		SyncLogger.Infof("no peers configured, nothing to sync")
		if n.settings.Permissions.AllowInteractions {
			SyncLogger.Infof("interactions are allowed, waiting for inbound sync requests")
		}
		return
	}

	policy := n.settings.RetryPolicy()
	SyncLogger.Infof("syncing with %d peers (%d attempts, %s backoff unit)", len(peers), policy.Attempts, policy.Unit)

	var failing []string
	for _, addr := range peers {
		if ctx.Err() != nil {
			return
		}

		attempts := 0
		var result client.SyncResult

		err := policy.Do(ctx, func(ctx context.Context) error {
			attempts++
			n.metrics.syncAttempts.Inc()

			attemptCtx, cancel := n.attemptContext(ctx)
			defer cancel()

			r, err := n.syncer.Sync(attemptCtx, addr)
			if err != nil {
				SyncLogger.Debugf("sync attempt %d with %s failed: %v", attempts, addr, err)
				return err
			}
			result = r
			return nil
		}, func(err error) {
			SyncLogger.Errorf("peer %s is unavailable after %d attempts: %v", addr, attempts, err)
			n.peers.record(addr, common.PeerUnavailable, attempts, err)
		})

		switch {
		case err == nil && result == client.SyncAcknowledged:
			SyncLogger.Infof("peer %s acknowledged this node", addr)
			n.peers.record(addr, common.PeerAcknowledged, attempts, nil)
		case err == nil:
			SyncLogger.Infof("peer %s granted restricted access", addr)
			n.peers.record(addr, common.PeerRestricted, attempts, nil)
		case ctx.Err() != nil:
			SyncLogger.Debugf("sync cancelled while waiting for %s", addr)
			return
		default:
			failing = append(failing, addr)
		}
	}

	if len(failing) > 0 {
		SyncLogger.Warningf("sync finished, %d of %d peers unavailable: %s", len(failing), len(peers), strings.Join(failing, ", "))
		return
	}
	SyncLogger.Infof("sync finished, all %d peers reachable", len(peers))
}

// attemptContext bounds a single handshake by the dial timeout
func (n *Node) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if timeout := n.settings.DialTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// --------------------------------------------------------------------------
// Sync Responder
// --------------------------------------------------------------------------

// respondSync answers an inbound sync request according to the node's permissions
func (n *Node) respondSync(conn net.Conn) error {
	n.metrics.syncRequests.Inc()

	reply := common.ProtoSyncNA
	if n.settings.Permissions.AllowInteractions {
		reply = common.ProtoSyncOK
		SyncLogger.Debugf("sync request from %s accepted", conn.RemoteAddr())
	} else {
		SyncLogger.Debugf("sync request from %s denied", conn.RemoteAddr())
	}
	return tcp.Write(conn, reply)
}
