package protocol

// Phase of a running match.
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseMulligan Phase = "mulligan"
	PhasePlaying  Phase = "playing"
	PhaseEnded    Phase = "ended"
)

// GameState is the authoritative snapshot of one match. The server replaces
// it wholesale on every gameStateUpdate; the client never patches it.
type GameState struct {
	ID                  string          `json:"id"`
	Players             []Player        `json:"players"`
	PriorityPlayerID    string          `json:"priorityPlayerId"`
	Phase               Phase           `json:"phase"`
	Turn                int             `json:"turn"`
	TurnTimeRemainingMS int64           `json:"turnTimeRemainingMs"`
	Board               BoardState      `json:"board"`
	Spectators          []Spectator     `json:"spectators"`
	Tournament          *TournamentInfo `json:"tournament,omitempty"`
}

// Player is one seat in a match. Hand entries are card references, opaque to
// this subsystem.
type Player struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Avatar    string   `json:"avatar,omitempty"`
	DeckID    string   `json:"deckId,omitempty"`
	Hand      []string `json:"hand"`
	Health    int      `json:"health"`
	Mana      int      `json:"mana"`
	MaxMana   int      `json:"maxMana"`
	Ready     bool     `json:"ready"`
	Connected bool     `json:"connected"`
	Rating    int      `json:"rating"`
	Wins      int      `json:"wins"`
	Losses    int      `json:"losses"`
}

// BoardState holds per-player zones plus the effects currently in play.
// Zone maps are keyed by player ID; card order within a zone is meaningful.
type BoardState struct {
	Fields        map[string][]string `json:"fields"`
	Graveyards    map[string][]string `json:"graveyards"`
	ActiveEffects []ActiveEffect      `json:"activeEffects,omitempty"`
}

// ActiveEffect is a lingering effect on the board. Source references the
// card that created it; the server guarantees that reference was valid at
// creation time.
type ActiveEffect struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Source     string         `json:"source"`
	Target     string         `json:"target,omitempty"`
	Duration   int            `json:"duration"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Spectator is a non-playing observer of a match.
type Spectator struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// TournamentInfo ties a match to the tournament round it belongs to.
type TournamentInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Round int    `json:"round"`
}

// MatchmakingPreferences is sent once per startMatchmaking request and not
// retained by the client afterwards.
type MatchmakingPreferences struct {
	Mode           string   `json:"mode"`
	SkillRange     string   `json:"skillRange,omitempty"`
	MaxWaitSec     int      `json:"maxWaitSec,omitempty"`
	AllowOpponents []string `json:"allowOpponents,omitempty"`
	BlockOpponents []string `json:"blockOpponents,omitempty"`
}

// BracketMatch is one node of a tournament bracket.
type BracketMatch struct {
	ID       string `json:"id"`
	Round    int    `json:"round"`
	PlayerA  string `json:"playerA"`
	PlayerB  string `json:"playerB"`
	WinnerID string `json:"winnerId,omitempty"`
}

// PlayerStats is the aggregate record returned by getPlayerStats.
type PlayerStats struct {
	PlayerID    string `json:"playerId"`
	Rating      int    `json:"rating"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
	GamesPlayed int    `json:"gamesPlayed"`
	WinStreak   int    `json:"winStreak"`
}

// LeaderboardEntry is one row of a getLeaderboard response.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}
