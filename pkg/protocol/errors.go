package protocol

import (
	"errors"
	"fmt"
)

// ErrDisposed marks requests abandoned because the client was disposed
// before their acknowledgement arrived.
var ErrDisposed = errors.New("client disposed")

// ErrAckTimeout is returned when a configured request timeout elapses before
// the server acknowledges.
var ErrAckTimeout = errors.New("acknowledgement timed out")

// ConnectionError reports a transport-level failure: dial error, connect
// timeout, or a write that failed mid-flight.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection: %s failed", e.Op)
	}
	return fmt.Sprintf("connection: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotConnectedError is returned when a request is attempted while the
// transport is not in the Connected state. Nothing was sent.
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s: not connected to server", e.Op)
}

// NoActiveSessionError is returned when an in-game action is attempted with
// no cached session, regardless of connection status. Nothing was sent.
type NoActiveSessionError struct {
	Op string
}

func (e *NoActiveSessionError) Error() string {
	return fmt.Sprintf("%s: no active game session", e.Op)
}

// OperationError carries the server-supplied message of an acknowledgement
// with success=false.
type OperationError struct {
	Op      string
	Message string
}

func (e *OperationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected by server", e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}
