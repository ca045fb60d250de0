// Package v1 defines the shelfkeeper realtime protocol v1 contract.
//
// It is shared by the channel manager and test servers and has no
// dependencies beyond the standard library.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Subprotocol is negotiated during the websocket handshake.
const Subprotocol = "shelfkeeper.realtime.v1"

// Type constants (wire-stable).
const (
	// TypeHello authenticates the connection with a session token (client -> server).
	TypeHello = "hello"
	// TypeHelloAck accepts the session (server -> client).
	TypeHelloAck = "hello_ack"

	// TypeInvoke calls a server method (client -> server).
	TypeInvoke = "invoke"
	// TypeResult carries the method result, ID echoes the invoke (server -> client).
	TypeResult = "result"

	// TypeError rejects a hello or an invoke (server -> client).
	TypeError = "error"
)

// Server methods reachable with TypeInvoke.
const (
	MethodGetMyInfo              = "GetMyInfo"
	MethodGetReadHistory         = "GetReadHistory"
	MethodSaveBookShelf          = "SaveBookShelf"
	MethodGetBookShelfBinaryGzip = "GetBookShelfBinaryGzip"
	MethodClearHistory           = "ClearHistory"
	MethodSetAvatar              = "SetAvatar"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Target  string          `json:"target,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeInvoke:
		if e.ID == "" {
			return errors.New("missing field: id")
		}
		if strings.TrimSpace(e.Target) == "" {
			return errors.New("missing field: target")
		}
		return nil
	case TypeResult:
		if e.ID == "" {
			return errors.New("missing field: id")
		}
		return nil
	case TypeHello, TypeHelloAck, TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// ---- Payloads ----

// HelloPayload carries the session token the connection is bound to.
type HelloPayload struct {
	Token string `json:"token"`
}

// HelloAckPayload must carry SessionID.
type HelloAckPayload struct {
	SessionID string `json:"session_id"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes the server sends in ErrorPayload.Code.
const (
	CodeUnauthorized  = "unauthorized"
	CodeUnknownMethod = "unknown_method"
	CodeBadRequest    = "bad_request"
	CodeInternal      = "internal"
)
