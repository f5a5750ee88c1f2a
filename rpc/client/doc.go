// Package client implements the outbound side of the dShare protocol. It is used
// by nodes to resolve remote keys during aggregation and to run the sync handshake
// against peers, and by the command line tool to talk to a node.
//
// A Session wraps one connection and sends any number of requests over it. The
// helper methods of Client (Create, Remove, Aggregate, Metadata, Sync) each open
// a session for a single request.
//
// Responses of registered commands start with a status byte. Call strips it and
// returns the body on success, a non-zero status is reported as *RemoteError.
//
// Usage:
//
//	c := client.New(client.DefaultOptions())
//	key, err := c.Create(ctx, "127.0.0.1:7000", []byte("hello"))
//	if err != nil {
//		return err
//	}
//	body, err := c.Aggregate(ctx, "127.0.0.1:7000", key)
package client
