package arcanum

import (
	"time"

	"go.uber.org/zap"
)

// Options configures a Client. The zero value is usable: production
// protocol defaults plus a no-op logger.
type Options struct {
	// ConnectTimeout bounds Connect, covering both the dial and the server
	// hello. Default 10s.
	ConnectTimeout time.Duration

	// HeartbeatInterval is the ping cadence while connected. Default 30s.
	HeartbeatInterval time.Duration

	// MaxReconnectAttempts bounds automatic redials after a transport drop
	// before the client gives up with connectionLost. Default 5.
	MaxReconnectAttempts int

	// ReconnectBackoff is the delay before the first redial; it doubles per
	// attempt up to ReconnectBackoffCap. Defaults 1s and 5s.
	ReconnectBackoff    time.Duration
	ReconnectBackoffCap time.Duration

	// RequestTimeout bounds every correlated request. Zero means requests
	// wait until their context is done or the acknowledgement arrives.
	RequestTimeout time.Duration

	// Logger receives connection and dispatch diagnostics. Default no-op.
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}
