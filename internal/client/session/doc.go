// Package session bootstraps and maintains an authenticated session.
//
// # Bootstrap
//
// Login and Register run the same strict sequence; the first failing step
// ends the bootstrap and nothing is retried:
//
//	Exchanging       trade credentials for a session token and a long-term token
//	                 (the session token is stored in memory right after)
//	PersistingToken  write the long-term token to durable storage
//	RebootingChannel reconnect the realtime channel with the new session token
//	FetchingIdentity GetMyInfo over the rebooted channel
//	Live             done
//
// A failure is reported as *Failure carrying a Kind (auth, persistence,
// channel) and the state it happened in. Tokens written before the failing
// step are not rolled back; Snapshot().TokensMutated tells the caller that
// the stores already hold the new pair.
//
// # Refresh
//
// RefreshToken only swaps the in-memory session token. It never touches the
// durable store or the realtime channel, and it reports failure as a plain
// boolean.
//
// # Concurrency
//
// Concurrent bootstraps are not serialized: the last writer wins in the
// token stores. The realtime channel's generation counter makes an
// overtaken bootstrap fail with KindChannel instead of fetching an identity
// over a connection opened for the other one.
package session
