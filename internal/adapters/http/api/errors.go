package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrPathParamInvalid = errors.New("invalid path parameter")
	ErrMalformedBody    = errors.New("malformed body")
	ErrBodyTooLarge     = errors.New("body too large")
	ErrBadRequest       = errors.New("bad request")
	ErrBackpressure     = errors.New("backpressure")
)

// opError tags an error kind with the operation that produced it.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	if e.err == nil {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.kind, e.err)
}

func (e *opError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// Op returns the operation name, e.g. "api.echo".
func (e *opError) Op() string { return e.op }

// NewKind returns an error of the given kind raised by op.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind classifies err under kind for op. Both remain reachable via errors.Is.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}
