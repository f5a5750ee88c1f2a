// Package rpc contains the network side of a dShare node: the chunked TCP
// protocol, the node that serves it and the client that speaks it.
//
// The package is organized into several subpackages:
//
//   - common: Protocol constants, node settings, metadata types and logging.
//
//   - transport: The chunked message framing and TCP connection helpers.
//
//   - client: The client SDK used by the command line tool and by nodes
//     resolving address qualified aggregate targets.
//
//   - server: The node with its command table, worker pool backed connection
//     handling, sync daemon and metrics endpoint.
package rpc
