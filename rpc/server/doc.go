// Package server implements a dShare node: the command table, the command
// handlers, the per-connection request loop, the sync daemon and the node that
// ties them together.
//
// The package focuses on:
//   - Dispatching requests by their first byte through an immutable CommandTable
//   - Running every accepted connection as one job of a fixed size worker pool
//   - Resolving `key@host:port` targets on other nodes during aggregation
//   - Introducing the node to its configured peers with the sync handshake
//
// Key Components:
//
//   - CommandTable: Built once from an explicit list of Commands. Construction
//     fails for duplicate codes, the reserved sentinel code 0x00 or a missing
//     handler, so an inconsistent table is detected before the node starts.
//
//   - Handlers: create (0x01), remove (0x02), aggregate (0x03) and metadata (0x04).
//     A successful command answers with its success code followed by its result,
//     a failing one with its failure code followed by the failure marker. Unknown
//     codes are always answered with [1, 1]. Errors never close the connection.
//
//   - Node: Owns the listener, the pool, the metrics and the peer registry. Serve
//     spawns exactly one sync daemon and then accepts connections until Close.
//
//   - Sync daemon: Contacts the configured peers one after another. Each peer is
//     retried with linear backoff, the outcome (acknowledged, restricted or
//     unavailable) is recorded in the peer registry and exposed through Node.Peers.
//
// Usage Example:
//
//	settings := common.DefaultSettings()
//	settings.Peers = []string{"10.0.0.2:7000"}
//
//	n, err := server.NewNode(settings, mstore.NewMemoryStore())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer n.Close()
//
//	if err := n.Start(); err != nil {
//		log.Fatal(err)
//	}
//
// Limitations:
//
//	The job queue is unbounded and idle connections have no read timeout, a silent
//	client keeps its worker busy until it disconnects or the node is closed.
package server
