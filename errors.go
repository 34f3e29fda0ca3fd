package arcanum

import "github.com/mhweir/arcanum-client/pkg/protocol"

// Error taxonomy, re-exported from the protocol package so callers can
// match with errors.As/errors.Is against this package alone.
type (
	// ConnectionError reports a transport failure or connect timeout.
	ConnectionError = protocol.ConnectionError
	// NotConnectedError reports a request attempted while not connected.
	NotConnectedError = protocol.NotConnectedError
	// NoActiveSessionError reports an in-game action with no cached session.
	NoActiveSessionError = protocol.NoActiveSessionError
	// OperationError carries a server-reported failure message.
	OperationError = protocol.OperationError
)

var (
	// ErrDisposed rejects requests left in flight when Dispose is called.
	ErrDisposed = protocol.ErrDisposed
	// ErrAckTimeout fires when Options.RequestTimeout elapses unacknowledged.
	ErrAckTimeout = protocol.ErrAckTimeout
)
