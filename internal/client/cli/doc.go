// Package cli provides the interactive shelfkeeper command-line client.
//
// It wires configuration, local storage, the gRPC and realtime transports,
// the session orchestrator and an interactive REPL. On start the REPL tries
// to resume the stored session; the user can then log in, register, reset a
// password, inspect their profile, reading history and bookshelf.
//
// NewRootCommand builds the cobra command tree: the root command runs the
// REPL, and login, register, resume, logout and reset-password run a single
// action and exit.
package cli
