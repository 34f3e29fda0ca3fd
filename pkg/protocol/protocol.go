// Package protocol defines the wire vocabulary spoken between the Arcanum
// client and a game server: the JSON envelope, the message names, the typed
// payloads for every inbound event, and the error taxonomy surfaced to
// callers of the client.
package protocol

import "encoding/json"

// Envelope is the framing for every message in both directions.
//
// Requests that expect an acknowledgement carry a correlation ID; the server
// answers with a MsgAck envelope bearing the same ID. Push events carry no ID.
type Envelope struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Client -> Server request names.
const (
	MsgStartMatchmaking      = "startMatchmaking"
	MsgCancelMatchmaking     = "cancelMatchmaking"
	MsgSpectateGame          = "spectateGame"
	MsgPlayCard              = "playCard"
	MsgEndTurn               = "endTurn"
	MsgMulligan              = "mulligan"
	MsgChatMessage           = "chatMessage"
	MsgSendEmote             = "sendEmote"
	MsgConcede               = "concede"
	MsgRequestPause          = "requestPause"
	MsgJoinTournament        = "joinTournament"
	MsgLeaveTournament       = "leaveTournament"
	MsgGetTournamentBrackets = "getTournamentBrackets"
	MsgGetPlayerStats        = "getPlayerStats"
	MsgGetLeaderboard        = "getLeaderboard"
	MsgPing                  = "ping"
)

// Server -> Client message names that are not application events.
const (
	MsgAck  = "ack"
	MsgPong = "pong"
)

// Server -> Client push event names. Connection lifecycle events
// (EventConnected and friends) are emitted locally by the client as well as
// carried on the wire for the initial hello.
const (
	EventConnected        = "connected"
	EventDisconnected     = "disconnected"
	EventReconnected      = "reconnected"
	EventConnectionLost   = "connectionLost"
	EventGameFound        = "gameFound"
	EventGameStateUpdate  = "gameStateUpdate"
	EventPlayerJoined     = "playerJoined"
	EventPlayerLeft       = "playerLeft"
	EventCardPlayed       = "cardPlayed"
	EventTurnChanged      = "turnChanged"
	EventGameEnded        = "gameEnded"
	EventSpectatorJoined  = "spectatorJoined"
	EventSpectatorLeft    = "spectatorLeft"
	EventChatMessage      = "chatMessage"
	EventEmoteReceived    = "emoteReceived"
	EventTournamentUpdate = "tournamentUpdate"
	EventBracketUpdate    = "bracketUpdate"
	EventLatencyUpdate    = "latencyUpdate"
	EventError            = "error"
	EventGameError        = "gameError"
)

// Ack is the common head of every acknowledgement payload. Domain fields
// (gameState, brackets, ...) ride alongside in the same object and are
// decoded by the caller that knows the request it issued.
type Ack struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Ping is the heartbeat probe; the server echoes the timestamp back in a
// MsgPong envelope with the same shape.
type Ping struct {
	Timestamp int64 `json:"timestamp"`
}

// Hello is the payload of the initial "connected" envelope the server sends
// after accepting the transport. It assigns the client its player identity.
type Hello struct {
	PlayerID string `json:"playerId"`
}
