// Package arcanum is the real-time multiplayer session client: it keeps a
// persistent connection to a game server, negotiates matchmaking, mirrors
// the authoritative game state, and exposes the in-match request surface.
//
// Construct a Client with New and pass it to whatever needs it; there is no
// package-level instance, so independent clients can coexist in one
// process.
package arcanum

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mhweir/arcanum-client/internal/bus"
	"github.com/mhweir/arcanum-client/internal/conn"
	"github.com/mhweir/arcanum-client/internal/gateway"
	"github.com/mhweir/arcanum-client/internal/latency"
	"github.com/mhweir/arcanum-client/internal/session"
	"github.com/mhweir/arcanum-client/pkg/protocol"
)

// ConnectionState mirrors the transport state machine.
type ConnectionState string

const (
	StateDisconnected   ConnectionState = ConnectionState(conn.StateDisconnected)
	StateConnecting     ConnectionState = ConnectionState(conn.StateConnecting)
	StateConnected      ConnectionState = ConnectionState(conn.StateConnected)
	StateReconnecting   ConnectionState = ConnectionState(conn.StateReconnecting)
	StateConnectionLost ConnectionState = ConnectionState(conn.StateConnectionLost)
)

// EventHandler receives the typed payload of one subscribed event.
type EventHandler = bus.Handler

// Subscription identifies one On registration for later removal with Off.
type Subscription = bus.Subscription

// Client is the facade over the connection manager, request gateway, event
// bus, session cache, and latency tracker. One Client speaks for one
// player; all methods are safe for concurrent use.
type Client struct {
	logger  *zap.Logger
	bus     *bus.Bus
	tracker *latency.Tracker
	session *session.Store
	conn    *conn.Manager
	gw      *gateway.Gateway

	mu       sync.Mutex
	playerID string
}

// New builds a disconnected client from opts.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	logger := opts.Logger

	b := bus.New(logger.Named("bus"))
	tracker := latency.NewTracker()
	mgr := conn.NewManager(conn.Config{
		ConnectTimeout:       opts.ConnectTimeout,
		HeartbeatInterval:    opts.HeartbeatInterval,
		MaxReconnectAttempts: opts.MaxReconnectAttempts,
		ReconnectBackoff:     opts.ReconnectBackoff,
		ReconnectBackoffCap:  opts.ReconnectBackoffCap,
	}, logger.Named("conn"), b, tracker)

	c := &Client{
		logger:  logger,
		bus:     b,
		tracker: tracker,
		session: session.NewStore(),
		conn:    mgr,
		gw:      gateway.New(mgr, opts.RequestTimeout, logger.Named("gateway")),
	}
	mgr.SetRouter(c.route)
	return c
}

// route is the single sink for inbound envelopes: acks resolve their
// pending request, events are decoded, applied to the session cache, and
// fanned out on the bus.
func (c *Client) route(env protocol.Envelope) {
	if env.Type == protocol.MsgAck {
		c.gw.Resolve(env.ID, env.Data)
		return
	}

	payload, err := protocol.DecodeEvent(env.Type, env.Data)
	if err != nil {
		c.logger.Warn("dropping undecodable event", zap.String("event", env.Type), zap.Error(err))
		return
	}

	// Session cache updates happen before fan-out so subscribers observe a
	// consistent snapshot. Join/leave pushes are informational only; the
	// next full snapshot is the source of truth for them.
	switch e := payload.(type) {
	case *protocol.GameFoundEvent:
		c.session.Replace(&e.GameState)
	case *protocol.GameStateUpdateEvent:
		c.session.Replace(&e.GameState)
	case *protocol.GameEndedEvent:
		c.session.Clear()
	}

	c.bus.Emit(env.Type, payload)
}

// Connect dials the server and blocks until the server hello arrives, the
// context is done, or the connect timeout elapses. On success the client's
// player identity is set from the hello.
func (c *Client) Connect(ctx context.Context, url, token string) error {
	hello, err := c.conn.Connect(ctx, url, token)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.playerID = hello.PlayerID
	c.mu.Unlock()
	return nil
}

// Dispose tears the client down: heartbeat and transport first, then the
// session cache, identity, in-flight requests, and finally every
// subscription. The instance is fully reusable after a fresh Connect.
func (c *Client) Dispose() {
	c.conn.Close()
	c.session.Clear()
	c.mu.Lock()
	c.playerID = ""
	c.mu.Unlock()
	c.gw.Reset(protocol.ErrDisposed)
	c.bus.Clear()
}

// On subscribes handler to event. The same handler may be registered more
// than once; each registration is independent.
func (c *Client) On(event string, handler EventHandler) *Subscription {
	return c.bus.On(event, handler)
}

// Off removes one registration. Removing a subscription twice is a no-op.
func (c *Client) Off(sub *Subscription) {
	c.bus.Off(sub)
}

// IsConnectedToServer reports whether the transport is currently connected.
func (c *Client) IsConnectedToServer() bool { return c.conn.Connected() }

// ConnectionState returns the transport state machine's current state.
func (c *Client) ConnectionState() ConnectionState {
	return ConnectionState(c.conn.State())
}

// PlayerID returns the server-assigned identity, or "" when disconnected.
func (c *Client) PlayerID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

// CurrentGame returns the cached session snapshot, or nil outside a match.
func (c *Client) CurrentGame() *protocol.GameState { return c.session.Current() }

// Latency returns the most recent heartbeat round trip in milliseconds.
func (c *Client) Latency() int64 { return c.tracker.Current() }

// AverageLatency returns the mean of the retained latency window.
func (c *Client) AverageLatency() float64 { return c.tracker.Average() }

// StartMatchmaking asks the server to queue this player. The preferences
// are sent once and not retained client-side.
func (c *Client) StartMatchmaking(ctx context.Context, prefs protocol.MatchmakingPreferences) error {
	_, err := c.gw.Call(ctx, protocol.MsgStartMatchmaking, protocol.StartMatchmakingRequest{Preferences: prefs})
	return err
}

// CancelMatchmaking leaves the queue. Fire-and-forget: no ack is awaited,
// and a pending StartMatchmaking ack may still race in afterwards.
func (c *Client) CancelMatchmaking(ctx context.Context) error {
	return c.gw.Notify(ctx, protocol.MsgCancelMatchmaking, struct{}{})
}

// SpectateGame joins a running match as an observer and returns its
// snapshot. The session cache is not touched; the server's pushes drive it.
func (c *Client) SpectateGame(ctx context.Context, gameID string) (*protocol.GameState, error) {
	data, err := c.gw.Call(ctx, protocol.MsgSpectateGame, protocol.SpectateGameRequest{GameID: gameID})
	if err != nil {
		return nil, err
	}
	res, err := decodeResult[protocol.SpectateGameResult](protocol.MsgSpectateGame, data)
	if err != nil {
		return nil, err
	}
	return res.GameState, nil
}

// PlayCardParams names the optional parts of a playCard request.
type PlayCardParams struct {
	CardID   string
	Target   string
	Position int
}

// PlayCard plays a card in the active session.
func (c *Client) PlayCard(ctx context.Context, p PlayCardParams) error {
	gameID, err := c.activeGameID(protocol.MsgPlayCard)
	if err != nil {
		return err
	}
	_, err = c.gw.Call(ctx, protocol.MsgPlayCard, protocol.PlayCardRequest{
		GameID:   gameID,
		CardID:   p.CardID,
		Target:   p.Target,
		Position: p.Position,
	})
	return err
}

// EndTurn passes priority in the active session.
func (c *Client) EndTurn(ctx context.Context) error {
	gameID, err := c.activeGameID(protocol.MsgEndTurn)
	if err != nil {
		return err
	}
	_, err = c.gw.Call(ctx, protocol.MsgEndTurn, protocol.EndTurnRequest{GameID: gameID})
	return err
}

// Mulligan replaces the given cards in the opening hand.
func (c *Client) Mulligan(ctx context.Context, cardIDs []string) error {
	gameID, err := c.activeGameID(protocol.MsgMulligan)
	if err != nil {
		return err
	}
	_, err = c.gw.Call(ctx, protocol.MsgMulligan, protocol.MulliganRequest{
		GameID:         gameID,
		CardsToReplace: cardIDs,
	})
	return err
}

// Concede forfeits the active session.
func (c *Client) Concede(ctx context.Context) error {
	gameID, err := c.activeGameID(protocol.MsgConcede)
	if err != nil {
		return err
	}
	_, err = c.gw.Call(ctx, protocol.MsgConcede, protocol.ConcedeRequest{GameID: gameID})
	return err
}

// RequestPause asks the server to pause the active session.
func (c *Client) RequestPause(ctx context.Context) error {
	gameID, err := c.activeGameID(protocol.MsgRequestPause)
	if err != nil {
		return err
	}
	_, err = c.gw.Call(ctx, protocol.MsgRequestPause, protocol.RequestPauseRequest{GameID: gameID})
	return err
}

// SendChatMessage sends a chat line. Fire-and-forget.
func (c *Client) SendChatMessage(ctx context.Context, message, chatType string) error {
	return c.gw.Notify(ctx, protocol.MsgChatMessage, protocol.ChatMessageRequest{
		GameID:  c.currentGameID(),
		Message: message,
		Type:    chatType,
	})
}

// SendEmote sends an emote, optionally aimed at one player. Fire-and-forget.
func (c *Client) SendEmote(ctx context.Context, emoteID, target string) error {
	return c.gw.Notify(ctx, protocol.MsgSendEmote, protocol.SendEmoteRequest{
		GameID:  c.currentGameID(),
		EmoteID: emoteID,
		Target:  target,
	})
}

// JoinTournament registers the given deck into a tournament.
func (c *Client) JoinTournament(ctx context.Context, tournamentID, deckID string) error {
	_, err := c.gw.Call(ctx, protocol.MsgJoinTournament, protocol.JoinTournamentRequest{
		TournamentID: tournamentID,
		DeckID:       deckID,
	})
	return err
}

// LeaveTournament withdraws from a tournament.
func (c *Client) LeaveTournament(ctx context.Context, tournamentID string) error {
	_, err := c.gw.Call(ctx, protocol.MsgLeaveTournament, protocol.LeaveTournamentRequest{TournamentID: tournamentID})
	return err
}

// TournamentBrackets fetches the current bracket tree of a tournament.
func (c *Client) TournamentBrackets(ctx context.Context, tournamentID string) ([]protocol.BracketMatch, error) {
	data, err := c.gw.Call(ctx, protocol.MsgGetTournamentBrackets, protocol.GetTournamentBracketsRequest{TournamentID: tournamentID})
	if err != nil {
		return nil, err
	}
	res, err := decodeResult[protocol.TournamentBracketsResult](protocol.MsgGetTournamentBrackets, data)
	if err != nil {
		return nil, err
	}
	return res.Brackets, nil
}

// PlayerStats fetches the aggregate record of a player. An empty playerID
// asks for the caller's own stats.
func (c *Client) PlayerStats(ctx context.Context, playerID string) (*protocol.PlayerStats, error) {
	data, err := c.gw.Call(ctx, protocol.MsgGetPlayerStats, protocol.GetPlayerStatsRequest{PlayerID: playerID})
	if err != nil {
		return nil, err
	}
	res, err := decodeResult[protocol.PlayerStatsResult](protocol.MsgGetPlayerStats, data)
	if err != nil {
		return nil, err
	}
	return res.Stats, nil
}

// Leaderboard fetches the ranking of the given type.
func (c *Client) Leaderboard(ctx context.Context, leaderboardType string) ([]protocol.LeaderboardEntry, error) {
	data, err := c.gw.Call(ctx, protocol.MsgGetLeaderboard, protocol.GetLeaderboardRequest{Type: leaderboardType})
	if err != nil {
		return nil, err
	}
	res, err := decodeResult[protocol.LeaderboardResult](protocol.MsgGetLeaderboard, data)
	if err != nil {
		return nil, err
	}
	return res.Leaderboard, nil
}

// activeGameID guards the in-game actions: without a cached session the
// action fails before anything is sent, regardless of connection state.
func (c *Client) activeGameID(op string) (string, error) {
	g := c.session.Current()
	if g == nil {
		return "", &protocol.NoActiveSessionError{Op: op}
	}
	return g.ID, nil
}

func (c *Client) currentGameID() string {
	if g := c.session.Current(); g != nil {
		return g.ID
	}
	return ""
}

func decodeResult[T any](op string, data json.RawMessage) (*T, error) {
	res := new(T)
	if err := json.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", op, err)
	}
	return res, nil
}
