package protocol

import (
	"encoding/json"
	"fmt"
)

// Payloads for the inbound push events. Each event name maps to exactly one
// of these types; DecodeEvent performs the mapping at the transport boundary
// so the rest of the client works with typed values.

type DisconnectedEvent struct {
	Reason string `json:"reason"`
}

type ReconnectedEvent struct {
	AttemptNumber int `json:"attemptNumber"`
}

type ConnectionLostEvent struct {
	Error string `json:"error"`
}

type GameFoundEvent struct {
	GameState GameState `json:"gameState"`
}

type GameStateUpdateEvent struct {
	GameState GameState `json:"gameState"`
}

type PlayerJoinedEvent struct {
	Player Player `json:"player"`
}

type PlayerLeftEvent struct {
	PlayerID string `json:"playerId"`
}

type CardPlayedEvent struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	CardID   string `json:"cardId"`
	Target   string `json:"target,omitempty"`
	Position int    `json:"position,omitempty"`
}

type TurnChangedEvent struct {
	GameID          string `json:"gameId"`
	Turn            int    `json:"turn"`
	ActivePlayerID  string `json:"activePlayerId"`
	TimeRemainingMS int64  `json:"timeRemainingMs"`
}

type GameEndedEvent struct {
	GameID   string `json:"gameId"`
	Result   string `json:"result"`
	WinnerID string `json:"winnerId,omitempty"`
}

type SpectatorJoinedEvent struct {
	Spectator Spectator `json:"spectator"`
}

type SpectatorLeftEvent struct {
	SpectatorID string `json:"spectatorId"`
}

type ChatMessageEvent struct {
	GameID   string `json:"gameId"`
	SenderID string `json:"senderId"`
	Message  string `json:"message"`
	Type     string `json:"type,omitempty"`
}

type EmoteReceivedEvent struct {
	GameID   string `json:"gameId"`
	SenderID string `json:"senderId"`
	EmoteID  string `json:"emoteId"`
	Target   string `json:"target,omitempty"`
}

type TournamentUpdateEvent struct {
	TournamentID string `json:"tournamentId"`
	Status       string `json:"status"`
	Round        int    `json:"round"`
}

type BracketUpdateEvent struct {
	TournamentID string         `json:"tournamentId"`
	Brackets     []BracketMatch `json:"brackets"`
}

// LatencyUpdateEvent is emitted locally after each heartbeat round trip.
type LatencyUpdateEvent struct {
	LatencyMS int64   `json:"latency"`
	AverageMS float64 `json:"average"`
}

type ErrorEvent struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// DecodeEvent turns the raw payload of a named push event into its typed
// form. Unknown event names pass the payload through untouched so a newer
// server does not break dispatch.
func DecodeEvent(name string, data json.RawMessage) (any, error) {
	var v any
	switch name {
	case EventConnected:
		v = &Hello{}
	case EventDisconnected:
		v = &DisconnectedEvent{}
	case EventReconnected:
		v = &ReconnectedEvent{}
	case EventConnectionLost:
		v = &ConnectionLostEvent{}
	case EventGameFound:
		v = &GameFoundEvent{}
	case EventGameStateUpdate:
		v = &GameStateUpdateEvent{}
	case EventPlayerJoined:
		v = &PlayerJoinedEvent{}
	case EventPlayerLeft:
		v = &PlayerLeftEvent{}
	case EventCardPlayed:
		v = &CardPlayedEvent{}
	case EventTurnChanged:
		v = &TurnChangedEvent{}
	case EventGameEnded:
		v = &GameEndedEvent{}
	case EventSpectatorJoined:
		v = &SpectatorJoinedEvent{}
	case EventSpectatorLeft:
		v = &SpectatorLeftEvent{}
	case EventChatMessage:
		v = &ChatMessageEvent{}
	case EventEmoteReceived:
		v = &EmoteReceivedEvent{}
	case EventTournamentUpdate:
		v = &TournamentUpdateEvent{}
	case EventBracketUpdate:
		v = &BracketUpdateEvent{}
	case EventLatencyUpdate:
		v = &LatencyUpdateEvent{}
	case EventError, EventGameError:
		v = &ErrorEvent{}
	default:
		return data, nil
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return v, nil
}
