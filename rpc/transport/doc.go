// Package transport contains the network layer of a dShare node.
//
// Messages on the wire carry no length prefix. A reader consumes fixed size chunks
// and treats the first chunk that comes back short as the end of the message.
// Since a message whose length is a multiple of the chunk size never produces a
// short chunk, readers on connections that support deadlines wait only a short
// grace period for the next chunk after every full one; if nothing arrives the
// message is complete. The wire format itself is unchanged by this.
//
// Subpackages:
//
//   - tcp: chunked Read and Write, the node listener, socket tuning and outbound dialing
package transport
