// Package realtime manages the persistent websocket channel to the
// shelfkeeper backend.
//
// A Manager holds at most one live connection. Reboot tears it down and
// opens a new one authenticated with the current session token; every
// reboot gets a new Generation. Calls issued through CallOn are bound to
// the generation they were planned for: once a newer reboot has started
// they fail with ErrSuperseded instead of running on a connection that
// belongs to someone else's session.
//
// The wire protocol lives in internal/contracts/realtime/v1.
package realtime
