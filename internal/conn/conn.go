// Package conn owns the websocket transport: the connection state machine,
// the heartbeat, bounded reconnection, and routing of inbound envelopes.
package conn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/mhweir/arcanum-client/internal/bus"
	"github.com/mhweir/arcanum-client/internal/latency"
	"github.com/mhweir/arcanum-client/pkg/protocol"
)

// State of the connection machine.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateConnecting     State = "connecting"
	StateConnected      State = "connected"
	StateReconnecting   State = "reconnecting"
	StateConnectionLost State = "connectionLost"
)

// Config carries the transport knobs. Zero values take the defaults below.
type Config struct {
	ConnectTimeout       time.Duration
	HeartbeatInterval    time.Duration
	MaxReconnectAttempts int
	ReconnectBackoff     time.Duration
	ReconnectBackoffCap  time.Duration
	WriteTimeout         time.Duration
}

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultMaxReconnects     = 5
	defaultBackoff           = time.Second
	defaultBackoffCap        = 5 * time.Second
	defaultWriteTimeout      = 3 * time.Second
)

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = defaultMaxReconnects
	}
	if c.ReconnectBackoff <= 0 {
		c.ReconnectBackoff = defaultBackoff
	}
	if c.ReconnectBackoffCap <= 0 {
		c.ReconnectBackoffCap = defaultBackoffCap
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	return c
}

// Router receives every inbound envelope that is not handled by the manager
// itself (pongs are consumed here).
type Router func(env protocol.Envelope)

// Manager drives one websocket connection through the
// Disconnected/Connecting/Connected/Reconnecting/ConnectionLost machine.
// Pumps are tied to a generation counter so a stale read loop from a
// replaced connection can never mutate current state.
type Manager struct {
	cfg     Config
	logger  *zap.Logger
	bus     *bus.Bus
	tracker *latency.Tracker
	route   Router

	mu         sync.Mutex
	state      State
	ws         *websocket.Conn
	url        string
	token      string
	gen        int
	pumpCancel context.CancelFunc
	sessCtx    context.Context
	sessCancel context.CancelFunc
}

func NewManager(cfg Config, logger *zap.Logger, b *bus.Bus, tracker *latency.Tracker) *Manager {
	return &Manager{
		cfg:     cfg.withDefaults(),
		logger:  logger,
		bus:     b,
		tracker: tracker,
		state:   StateDisconnected,
	}
}

// SetRouter wires the inbound envelope sink. Must be called before Connect.
func (m *Manager) SetRouter(r Router) { m.route = r }

// State returns the current machine state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the machine is in StateConnected.
func (m *Manager) Connected() bool { return m.State() == StateConnected }

// Connect dials the server and waits for its hello, bounded by the connect
// timeout. Legal only from Disconnected or ConnectionLost.
func (m *Manager) Connect(ctx context.Context, url, token string) (*protocol.Hello, error) {
	m.mu.Lock()
	if m.state != StateDisconnected && m.state != StateConnectionLost {
		state := m.state
		m.mu.Unlock()
		return nil, &protocol.ConnectionError{Op: "connect", Err: fmt.Errorf("already %s", state)}
	}
	m.state = StateConnecting
	m.url = url
	m.token = token
	if m.sessCancel != nil {
		m.sessCancel()
	}
	sessCtx, sessCancel := context.WithCancel(context.Background())
	m.sessCtx = sessCtx
	m.sessCancel = sessCancel
	m.mu.Unlock()

	hello, ws, err := m.dial(ctx)
	if err != nil {
		m.mu.Lock()
		m.state = StateDisconnected
		m.sessCancel = nil
		m.mu.Unlock()
		sessCancel()
		return nil, &protocol.ConnectionError{Op: "connect", Err: err}
	}

	if !m.adopt(ws) {
		return nil, &protocol.ConnectionError{Op: "connect", Err: errors.New("closed while connecting")}
	}
	m.logger.Info("connected", zap.String("url", url), zap.String("player", hello.PlayerID))
	m.bus.Emit(protocol.EventConnected, hello)
	return hello, nil
}

// dial opens the transport and reads the server hello, both within the
// connect timeout.
func (m *Manager) dial(ctx context.Context) (*protocol.Hello, *websocket.Conn, error) {
	m.mu.Lock()
	url, token := m.url, m.token
	m.mu.Unlock()

	dctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+token)
	}
	ws, resp, err := websocket.Dial(dctx, url, opts)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, nil, err
	}
	ws.SetReadLimit(1 << 20)

	_, data, err := ws.Read(dctx)
	if err != nil {
		_ = ws.Close(websocket.StatusPolicyViolation, "no hello")
		return nil, nil, fmt.Errorf("awaiting hello: %w", err)
	}
	var env protocol.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != protocol.EventConnected {
		_ = ws.Close(websocket.StatusPolicyViolation, "bad hello")
		return nil, nil, errors.New("server did not send connected hello")
	}
	hello := &protocol.Hello{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, hello); err != nil {
			_ = ws.Close(websocket.StatusPolicyViolation, "bad hello")
			return nil, nil, fmt.Errorf("decode hello: %w", err)
		}
	}
	return hello, ws, nil
}

// adopt installs a freshly dialed connection and starts its pumps. It
// refuses if the machine left the connecting/reconnecting path meanwhile,
// so a dial racing Close cannot resurrect a closed client.
func (m *Manager) adopt(ws *websocket.Conn) bool {
	m.mu.Lock()
	if m.state != StateConnecting && m.state != StateReconnecting {
		m.mu.Unlock()
		_ = ws.Close(websocket.StatusNormalClosure, "client closed")
		return false
	}
	m.gen++
	gen := m.gen
	m.ws = ws
	m.state = StateConnected
	pumpCtx, pumpCancel := context.WithCancel(m.sessCtx)
	m.pumpCancel = pumpCancel
	m.mu.Unlock()

	go m.readPump(pumpCtx, ws, gen)
	go m.heartbeat(pumpCtx)
	return true
}

func (m *Manager) readPump(ctx context.Context, ws *websocket.Conn, gen int) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.handleDrop(gen, err)
			return
		}
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		m.dispatch(env)
	}
}

func (m *Manager) dispatch(env protocol.Envelope) {
	if env.Type == protocol.MsgPong {
		var p protocol.Ping
		if err := json.Unmarshal(env.Data, &p); err != nil || p.Timestamp == 0 {
			return
		}
		rtt := time.Now().UnixMilli() - p.Timestamp
		if rtt < 0 {
			rtt = 0
		}
		m.tracker.Record(rtt)
		m.bus.Emit(protocol.EventLatencyUpdate, &protocol.LatencyUpdateEvent{
			LatencyMS: rtt,
			AverageMS: m.tracker.Average(),
		})
		return
	}
	if m.route != nil {
		m.route(env)
	}
}

func (m *Manager) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			data, _ := json.Marshal(protocol.Ping{Timestamp: time.Now().UnixMilli()})
			if err := m.Send(ctx, protocol.Envelope{Type: protocol.MsgPing, Data: data}); err != nil {
				m.logger.Debug("heartbeat send failed", zap.Error(err))
			}
		}
	}
}

// handleDrop moves Connected -> Reconnecting and starts the bounded retry
// loop. Stale generations are ignored.
func (m *Manager) handleDrop(gen int, cause error) {
	m.mu.Lock()
	if gen != m.gen || m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = StateReconnecting
	if m.pumpCancel != nil {
		m.pumpCancel()
		m.pumpCancel = nil
	}
	m.ws = nil
	sessCtx := m.sessCtx
	m.mu.Unlock()

	m.logger.Info("transport dropped", zap.Error(cause))
	m.bus.Emit(protocol.EventDisconnected, &protocol.DisconnectedEvent{Reason: cause.Error()})
	go m.reconnect(sessCtx, cause)
}

func (m *Manager) reconnect(ctx context.Context, cause error) {
	lastErr := cause
	backoff := m.cfg.ReconnectBackoff
	for attempt := 1; attempt <= m.cfg.MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if m.State() != StateReconnecting {
			return
		}

		hello, ws, err := m.dial(ctx)
		if err == nil {
			if !m.adopt(ws) {
				return
			}
			m.logger.Info("reconnected", zap.Int("attempt", attempt), zap.String("player", hello.PlayerID))
			m.bus.Emit(protocol.EventReconnected, &protocol.ReconnectedEvent{AttemptNumber: attempt})
			return
		}
		lastErr = err
		m.logger.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))

		backoff *= 2
		if backoff > m.cfg.ReconnectBackoffCap {
			backoff = m.cfg.ReconnectBackoffCap
		}
	}

	m.mu.Lock()
	if m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateConnectionLost
	m.mu.Unlock()

	m.logger.Error("reconnect attempts exhausted", zap.Error(lastErr))
	m.bus.Emit(protocol.EventConnectionLost, &protocol.ConnectionLostEvent{Error: lastErr.Error()})
}

// Send writes one envelope. The write is bounded by the configured write
// timeout on top of the caller's context.
func (m *Manager) Send(ctx context.Context, env protocol.Envelope) error {
	m.mu.Lock()
	ws := m.ws
	state := m.state
	m.mu.Unlock()
	if state != StateConnected || ws == nil {
		return &protocol.NotConnectedError{Op: env.Type}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	wctx, cancel := context.WithTimeout(ctx, m.cfg.WriteTimeout)
	defer cancel()
	return ws.Write(wctx, websocket.MessageText, data)
}

// Close stops the heartbeat and read pump, closes the transport, and
// returns the machine to Disconnected. Safe to call from any state and
// repeatedly.
func (m *Manager) Close() {
	m.mu.Lock()
	m.gen++
	m.state = StateDisconnected
	ws := m.ws
	m.ws = nil
	pumpCancel := m.pumpCancel
	m.pumpCancel = nil
	sessCancel := m.sessCancel
	m.sessCancel = nil
	m.mu.Unlock()

	if pumpCancel != nil {
		pumpCancel()
	}
	if sessCancel != nil {
		sessCancel()
	}
	if ws != nil {
		_ = ws.Close(websocket.StatusNormalClosure, "client closed")
	}
}
