package session

import "github.com/dmitrijs2005/shelfkeeper/internal/client/realtime"

type State int

const (
	StateIdle State = iota
	StateExchanging
	StatePersistingToken
	StateRebootingChannel
	StateFetchingIdentity
	StateLive
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExchanging:
		return "exchanging"
	case StatePersistingToken:
		return "persisting_token"
	case StateRebootingChannel:
		return "rebooting_channel"
	case StateFetchingIdentity:
		return "fetching_identity"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Operation names used in snapshots, transitions and metrics.
const (
	OperationLogin    = "login"
	OperationRegister = "register"
	OperationResume   = "resume"
	OperationLogout   = "logout"
)

// Snapshot is the state of the most recent bootstrap step.
type Snapshot struct {
	Operation  string
	State      State
	Kind       Kind
	Generation realtime.Generation
	// TokensMutated is set once the session token of this bootstrap has been
	// stored. It stays set on failure: no rollback is attempted.
	TokensMutated bool
}

// Transition is emitted to a TransitionHook on every state change.
type Transition struct {
	Operation string
	From      State
	To        State
	Kind      Kind
}

type TransitionHook func(Transition)
