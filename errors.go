package adwatch

import "errors"

var (
	// ErrNoTarget is returned when a run request carries no URL.
	ErrNoTarget = errors.New("adwatch: no target URL")
	// ErrSessionClosed is returned when an operation hits a session that
	// was already torn down.
	ErrSessionClosed = errors.New("adwatch: session closed")
)
