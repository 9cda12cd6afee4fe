package feed

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NetworkFailure   Kind = "network"
	MalformedPayload Kind = "malformed"
)

var (
	ErrNetwork   = errors.New("feed network failure")
	ErrMalformed = errors.New("feed malformed payload")
)

// Error is returned by Fetch. Both kinds are recovered by the poller: the
// tick is skipped and the next tick is the retry.
type Error struct {
	Kind Kind
	Feed string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s feed %s: %v", e.Feed, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == NetworkFailure
	case ErrMalformed:
		return e.Kind == MalformedPayload
	}
	return false
}

// KindOf returns the failure kind of err, or "" when err did not come from Fetch.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
