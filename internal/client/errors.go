package client

import (
	"errors"
	"fmt"
)

// Kind tells apart the ways a prediction call can fail.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransport: the request never produced a response.
	KindTransport
	// KindStatus: the service answered with a non-2xx status.
	KindStatus
	// KindSchema: the body is not a prediction result.
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Kind == KindStatus {
		return fmt.Sprintf("predict: unexpected status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("predict: %s failure: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}
