package session

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNone Kind = iota
	KindAuth
	KindPersistence
	KindChannel
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindPersistence:
		return "persistence"
	case KindChannel:
		return "channel"
	default:
		return ""
	}
}

// Sentinels matched with errors.Is against a *Failure.
var (
	ErrAuth        = errors.New("authentication failed")
	ErrPersistence = errors.New("token persistence failed")
	ErrChannel     = errors.New("realtime channel failed")
)

var (
	ErrNoStoredSession = errors.New("no stored session")
	ErrLoginRequired   = errors.New("stored session rejected, login required")
)

// Failure is the typed error of a bootstrap step.
type Failure struct {
	Kind  Kind
	State State
	Err   error
}

func (f *Failure) sentinel() error {
	switch f.Kind {
	case KindAuth:
		return ErrAuth
	case KindPersistence:
		return ErrPersistence
	default:
		return ErrChannel
	}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.sentinel(), f.State, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.sentinel(), f.Err}
}

// KindOf returns the Kind of the first *Failure in err's chain.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return KindNone
}
