// Package tokens holds the two credential stores of a client session.
//
// Volatile keeps the short-lived session token in process memory only. It is
// an owned value injected into every component that needs the current
// credential (the gRPC interceptor, the realtime channel handshake, the
// session orchestrator); there is no package-level token state.
//
// Durable persists the long-lived token used to mint new session tokens
// without a password. The SQLite-backed implementation (MetadataDurable)
// writes through the local metadata table.
package tokens
