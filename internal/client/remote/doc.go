// Package remote is the request/response side of the shelfkeeper backend.
//
// # Overview
//
// API is the transport-agnostic contract used by the session orchestrator
// and the account wrappers: credential exchange (Login, Register), session
// token refresh, and the one-shot mail/password calls. GRPCClient implements
// it over gRPC against the shelfkeeper.v1.UserService service, using
// google.protobuf.Struct messages so request and response shapes stay as
// loose as the service defines them.
//
// Every outbound call carries the current session token (access_token
// metadata, read from an injected TokenSource) and a fresh x-request-id.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors callers match with
// errors.Is: ErrUnauthorized, ErrUnavailable, ErrMalformedResponse.
// No call is retried here.
package remote
