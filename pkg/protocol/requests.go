package protocol

// Request payloads. Field names follow the wire contract; zero values are
// omitted so fire-and-forget messages stay small.

type StartMatchmakingRequest struct {
	Preferences MatchmakingPreferences `json:"preferences"`
}

type SpectateGameRequest struct {
	GameID string `json:"gameId"`
}

type PlayCardRequest struct {
	GameID   string `json:"gameId"`
	CardID   string `json:"cardId"`
	Target   string `json:"target,omitempty"`
	Position int    `json:"position,omitempty"`
}

type EndTurnRequest struct {
	GameID string `json:"gameId"`
}

type MulliganRequest struct {
	GameID         string   `json:"gameId"`
	CardsToReplace []string `json:"cardsToReplace"`
}

type ChatMessageRequest struct {
	GameID  string `json:"gameId"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type SendEmoteRequest struct {
	GameID  string `json:"gameId"`
	EmoteID string `json:"emoteId"`
	Target  string `json:"target,omitempty"`
}

type ConcedeRequest struct {
	GameID string `json:"gameId"`
}

type RequestPauseRequest struct {
	GameID string `json:"gameId"`
}

type JoinTournamentRequest struct {
	TournamentID string `json:"tournamentId"`
	DeckID       string `json:"deckId"`
}

type LeaveTournamentRequest struct {
	TournamentID string `json:"tournamentId"`
}

type GetTournamentBracketsRequest struct {
	TournamentID string `json:"tournamentId"`
}

type GetPlayerStatsRequest struct {
	PlayerID string `json:"playerId,omitempty"`
}

type GetLeaderboardRequest struct {
	Type string `json:"type"`
}

// Acknowledgement payloads that carry domain data beyond the Ack head.

type SpectateGameResult struct {
	Ack
	GameState *GameState `json:"gameState,omitempty"`
}

type TournamentBracketsResult struct {
	Ack
	Brackets []BracketMatch `json:"brackets,omitempty"`
}

type PlayerStatsResult struct {
	Ack
	Stats *PlayerStats `json:"stats,omitempty"`
}

type LeaderboardResult struct {
	Ack
	Leaderboard []LeaderboardEntry `json:"leaderboard,omitempty"`
}
