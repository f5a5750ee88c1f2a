// Package common provides the protocol constants, settings and logging shared by
// the client and server side of a dShare node.
//
// The package focuses on:
//   - Wire protocol definition: command codes, status codes and the sync handshake
//   - The node Settings and their JSON representation
//   - Custom logging implementation integrated with Dragonboat's logger package
//   - The protocol error taxonomy
//
// Key Components:
//
//   - CommandCode: The first byte of every request. Registered commands answer
//     with StatusOK or StatusFail followed by their result, every other code is
//     answered with UnknownCommandResponse.
//
//   - ProtoSyncReq, ProtoSyncOK, ProtoSyncNA: The two byte messages exchanged
//     when a node asks a peer to acknowledge it.
//
//   - Settings: The immutable configuration of a node. It is created by
//     `dshare setup`, loaded from settings.json and can be overridden by flags and
//     DSHARE_ environment variables.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
