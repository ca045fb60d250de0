package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrSuperseded     = errors.New("realtime channel superseded by a newer reboot")
	ErrChannelClosed  = errors.New("realtime channel closed")
	ErrNotConnected   = errors.New("realtime channel not connected")
	ErrNoSessionToken = errors.New("no session token for realtime channel")
)

// RemoteError is an error envelope returned by the server.
type RemoteError struct {
	Target  string
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("realtime: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("realtime %s: %s: %s", e.Target, e.Code, e.Message)
}
