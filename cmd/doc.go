// Package cmd implements the command-line interface of dShare. It provides a
// hierarchical command structure for running a node and talking to it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts a node from a settings file, flags and environment variables
//   - setup: Writes the settings file for a new node
//   - content: Client commands (create, remove, aggregate, sync, metadata, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dshare -help for a list of all commands.
package cmd
