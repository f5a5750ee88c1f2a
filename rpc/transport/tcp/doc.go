// Package tcp implements the TCP transport of a dShare node.
//
// Key Components:
//
//   - Read / Write: chunked message framing over any byte stream. Read returns
//     io.EOF only if the peer closed the stream before sending anything.
//
//   - Listen / UpgradeConnection: the node's listener and the socket options
//     (TCP_NODELAY, keep-alive) applied to each accepted connection.
//
//   - Dial: outbound connections used by the client and the sync daemon.
package tcp
