package probe

import "errors"

var (
	ErrChecksFailed     = errors.New("conformance checks failed")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrServerError      = errors.New("server error")
	ErrMismatch         = errors.New("response mismatch")
	ErrInvalidConfig    = errors.New("invalid probe config")
)
