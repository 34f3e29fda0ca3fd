// Package gateway correlates outbound requests with their single
// asynchronous acknowledgement.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mhweir/arcanum-client/pkg/protocol"
)

// Sender is the slice of the connection manager the gateway needs: a way to
// put an envelope on the wire and a connectivity check.
type Sender interface {
	Send(ctx context.Context, env protocol.Envelope) error
	Connected() bool
}

type outcome struct {
	data json.RawMessage
	err  error
}

type pending struct {
	op string
	ch chan outcome
}

// Gateway tracks in-flight requests by correlation ID. Each request is
// resolved exactly once: the pending entry is removed under the table lock
// before its outcome is delivered, so a racing resolve/timeout/reset pair
// cannot both complete the same request.
type Gateway struct {
	sender  Sender
	timeout time.Duration
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]pending
}

// New builds a gateway. timeout bounds every correlated call when non-zero;
// zero means a call waits until its context is done or an ack arrives.
func New(sender Sender, timeout time.Duration, logger *zap.Logger) *Gateway {
	return &Gateway{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
		pending: make(map[string]pending),
	}
}

// Call sends a request that expects an acknowledgement and blocks until the
// ack arrives, the context is done, or the configured timeout elapses. On a
// success=false ack it returns an *protocol.OperationError carrying the
// server's message; on success it returns the raw ack payload for the
// caller to decode.
func (g *Gateway) Call(ctx context.Context, op string, payload any) (json.RawMessage, error) {
	if !g.sender.Connected() {
		return nil, &protocol.NotConnectedError{Op: op}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	id := uuid.NewString()
	ch := make(chan outcome, 1)
	g.mu.Lock()
	g.pending[id] = pending{op: op, ch: ch}
	g.mu.Unlock()

	env := protocol.Envelope{Type: op, ID: id, Data: data}
	if err := g.sender.Send(ctx, env); err != nil {
		g.drop(id)
		return nil, &protocol.ConnectionError{Op: op, Err: err}
	}

	var timeoutC <-chan time.Time
	if g.timeout > 0 {
		timer := time.NewTimer(g.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case out := <-ch:
		return out.data, out.err
	case <-ctx.Done():
		g.drop(id)
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case <-timeoutC:
		g.drop(id)
		return nil, fmt.Errorf("%s: %w", op, protocol.ErrAckTimeout)
	}
}

// Notify sends a fire-and-forget message: no correlation ID, no ack awaited.
func (g *Gateway) Notify(ctx context.Context, op string, payload any) error {
	if !g.sender.Connected() {
		return &protocol.NotConnectedError{Op: op}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}
	if err := g.sender.Send(ctx, protocol.Envelope{Type: op, Data: data}); err != nil {
		return &protocol.ConnectionError{Op: op, Err: err}
	}
	return nil
}

// Resolve completes the pending request matching id with the ack payload.
// Unknown or already-completed ids are ignored; acks arriving after a
// timeout or reset land here.
func (g *Gateway) Resolve(id string, data json.RawMessage) {
	g.mu.Lock()
	p, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
	}
	g.mu.Unlock()
	if !ok {
		g.logger.Debug("ack for unknown request", zap.String("id", id))
		return
	}

	var ack protocol.Ack
	if err := json.Unmarshal(data, &ack); err != nil {
		p.ch <- outcome{err: fmt.Errorf("%s: decode ack: %w", p.op, err)}
		return
	}
	if !ack.Success {
		p.ch <- outcome{err: &protocol.OperationError{Op: p.op, Message: ack.Error}}
		return
	}
	p.ch <- outcome{data: data}
}

// Reset rejects every in-flight request with err. Used at dispose time so
// no caller stays parked on an ack that can never arrive.
func (g *Gateway) Reset(err error) {
	g.mu.Lock()
	taken := g.pending
	g.pending = make(map[string]pending)
	g.mu.Unlock()

	for _, p := range taken {
		p.ch <- outcome{err: fmt.Errorf("%s: %w", p.op, err)}
	}
}

func (g *Gateway) drop(id string) {
	g.mu.Lock()
	delete(g.pending, id)
	g.mu.Unlock()
}
