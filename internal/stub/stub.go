// Package stub is a minimal in-process game server speaking just enough of
// the wire protocol to exercise every client path: scripted
// acknowledgements, push injection, pong echo, and connection dropping. It
// backs the integration tests and the standalone stubserver binary.
package stub

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mhweir/arcanum-client/pkg/protocol"
)

// Handler scripts the acknowledgement for one request name. The returned
// value is marshaled as the ack payload; returning nil suppresses the ack
// entirely (a server that drops its reply).
type Handler func(data json.RawMessage) any

type client struct {
	ws  *websocket.Conn
	out chan protocol.Envelope
}

// Server accepts websocket clients on /ws and answers requests from its
// handler table. Everything unscripted is acknowledged with success=true.
type Server struct {
	logger *zap.Logger

	mu       sync.Mutex
	silent   bool
	refuse   bool
	handlers map[string]Handler
	conns    map[*client]struct{}
	accepted int
	nextID   int
}

func NewServer(logger *zap.Logger) *Server {
	return &Server{
		logger:   logger,
		handlers: make(map[string]Handler),
		conns:    make(map[*client]struct{}),
	}
}

// Router exposes /ws plus a health probe.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ws", s.handleWS)
	return r
}

// Handle scripts the ack for one request name.
func (s *Server) Handle(msg string, h Handler) {
	s.mu.Lock()
	s.handlers[msg] = h
	s.mu.Unlock()
}

// SetSilent makes the server accept connections without ever sending the
// hello, so a connecting client times out.
func (s *Server) SetSilent(v bool) {
	s.mu.Lock()
	s.silent = v
	s.mu.Unlock()
}

// SetRefuse makes the server close every new connection immediately after
// the websocket handshake.
func (s *Server) SetRefuse(v bool) {
	s.mu.Lock()
	s.refuse = v
	s.mu.Unlock()
}

// Accepted returns how many websocket connections completed the handshake.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Push broadcasts an event to every connected client.
func (s *Server) Push(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("push encode failed", zap.String("event", event), zap.Error(err))
		return
	}
	env := protocol.Envelope{Type: event, Data: data}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		select {
		case c.out <- env:
		default:
			// Slow client; drop it like a real server would.
			delete(s.conns, c)
			close(c.out)
		}
	}
}

// DropAll severs every live connection, simulating a transport failure.
func (s *Server) DropAll() {
	s.mu.Lock()
	conns := make([]*client, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
		delete(s.conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.ws.Close(websocket.StatusGoingAway, "dropped")
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.accepted++
	silent, refuse := s.silent, s.refuse
	s.nextID++
	playerID := fmt.Sprintf("player-%d", s.nextID)
	s.mu.Unlock()

	if refuse {
		_ = ws.Close(websocket.StatusGoingAway, "refused")
		return
	}

	c := &client{ws: ws, out: make(chan protocol.Envelope, 16)}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
	}()

	if !silent {
		data, _ := json.Marshal(protocol.Hello{PlayerID: playerID})
		c.out <- protocol.Envelope{Type: protocol.EventConnected, Data: data}
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case env, ok := <-c.out:
				if !ok {
					return nil
				}
				data, err := json.Marshal(env)
				if err != nil {
					continue
				}
				if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
					return err
				}
			}
		}
	})
	g.Go(func() error {
		for {
			_, data, err := ws.Read(ctx)
			if err != nil {
				return err
			}
			var env protocol.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				continue
			}
			s.serve(c, env)
		}
	})
	_ = g.Wait()
	_ = ws.Close(websocket.StatusNormalClosure, "bye")
}

func (s *Server) serve(c *client, env protocol.Envelope) {
	if env.Type == protocol.MsgPing {
		c.out <- protocol.Envelope{Type: protocol.MsgPong, Data: env.Data}
		return
	}

	s.mu.Lock()
	h := s.handlers[env.Type]
	s.mu.Unlock()

	if env.ID == "" {
		// Fire-and-forget; run the script for its side effects only.
		if h != nil {
			h(env.Data)
		}
		return
	}

	var payload any = protocol.Ack{Success: true}
	if h != nil {
		payload = h(env.Data)
		if payload == nil {
			return
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("ack encode failed", zap.String("type", env.Type), zap.Error(err))
		return
	}
	c.out <- protocol.Envelope{Type: protocol.MsgAck, ID: env.ID, Data: data}
}
