package arcanum

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mhweir/arcanum-client/internal/stub"
	"github.com/mhweir/arcanum-client/pkg/protocol"
)

func newStubServer(t *testing.T) (*stub.Server, string) {
	t.Helper()
	s := stub.NewServer(zap.NewNop())
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts.URL + "/ws"
}

func testOptions() Options {
	return Options{
		ConnectTimeout:    2 * time.Second,
		HeartbeatInterval: time.Hour, // keep pings out of the way unless a test wants them
		RequestTimeout:    2 * time.Second,
	}
}

// subscribe funnels an event into a channel so tests never hang on a
// missing emit.
func subscribe(c *Client, event string) <-chan any {
	ch := make(chan any, 8)
	c.On(event, func(data any) { ch <- data })
	return ch
}

func awaitEvent(t *testing.T, ch <-chan any, within time.Duration) any {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return nil
	}
}

func awaitNoEvent(t *testing.T, ch <-chan any, within time.Duration) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("expected no event within %v, got %+v", within, v)
	case <-time.After(within):
	}
}

func connectedClient(t *testing.T, url string) *Client {
	t.Helper()
	c := New(testOptions())
	t.Cleanup(c.Dispose)
	require.NoError(t, c.Connect(context.Background(), url, "test-token"))
	return c
}

func pushGameFound(t *testing.T, s *stub.Server, c *Client, gameID string) {
	t.Helper()
	found := subscribe(c, protocol.EventGameFound)
	s.Push(protocol.EventGameFound, protocol.GameFoundEvent{
		GameState: protocol.GameState{
			ID:    gameID,
			Phase: protocol.PhasePlaying,
			Turn:  1,
		},
	})
	awaitEvent(t, found, 2*time.Second)
}

func TestConnect_ResolvesAgainstStub(t *testing.T) {
	_, url := newStubServer(t)
	c := connectedClient(t, url)

	assert.True(t, c.IsConnectedToServer())
	assert.Equal(t, StateConnected, c.ConnectionState())
	assert.NotEmpty(t, c.PlayerID())
}

func TestConnect_TimesOutWhenServerNeverResponds(t *testing.T) {
	s, url := newStubServer(t)
	s.SetSilent(true)

	opts := testOptions()
	opts.ConnectTimeout = 200 * time.Millisecond
	c := New(opts)
	t.Cleanup(c.Dispose)

	err := c.Connect(context.Background(), url, "")
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, StateDisconnected, c.ConnectionState())
	assert.False(t, c.IsConnectedToServer())
}

func TestPlayCard_ServerRejectionIsOperationError(t *testing.T) {
	s, url := newStubServer(t)
	s.Handle(protocol.MsgPlayCard, func(json.RawMessage) any {
		return protocol.Ack{Success: false, Error: "not your turn"}
	})

	c := connectedClient(t, url)
	pushGameFound(t, s, c, "g-1")

	err := c.PlayCard(context.Background(), PlayCardParams{CardID: "c-42"})
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "not your turn", opErr.Message)
}

func TestGuardedActions_FailWithoutSessionBeforeSending(t *testing.T) {
	s, url := newStubServer(t)
	var sent atomic.Int32
	for _, msg := range []string{
		protocol.MsgPlayCard, protocol.MsgEndTurn, protocol.MsgMulligan,
		protocol.MsgConcede, protocol.MsgRequestPause,
	} {
		s.Handle(msg, func(json.RawMessage) any {
			sent.Add(1)
			return protocol.Ack{Success: true}
		})
	}

	c := connectedClient(t, url)
	ctx := context.Background()

	var nsErr *NoActiveSessionError
	assert.ErrorAs(t, c.PlayCard(ctx, PlayCardParams{CardID: "c-1"}), &nsErr)
	assert.ErrorAs(t, c.EndTurn(ctx), &nsErr)
	assert.ErrorAs(t, c.Mulligan(ctx, []string{"c-1"}), &nsErr)
	assert.ErrorAs(t, c.Concede(ctx), &nsErr)
	assert.ErrorAs(t, c.RequestPause(ctx), &nsErr)
	assert.Zero(t, sent.Load())
}

func TestRequests_NotConnectedFailsImmediately(t *testing.T) {
	c := New(testOptions())
	var ncErr *NotConnectedError
	err := c.StartMatchmaking(context.Background(), protocol.MatchmakingPreferences{Mode: "ranked"})
	assert.ErrorAs(t, err, &ncErr)
}

func TestSpectateGame_ReturnsSnapshot(t *testing.T) {
	s, url := newStubServer(t)
	s.Handle(protocol.MsgSpectateGame, func(data json.RawMessage) any {
		var req protocol.SpectateGameRequest
		_ = json.Unmarshal(data, &req)
		return protocol.SpectateGameResult{
			Ack:       protocol.Ack{Success: true},
			GameState: &protocol.GameState{ID: req.GameID, Phase: protocol.PhasePlaying},
		}
	})

	c := connectedClient(t, url)
	gs, err := c.SpectateGame(context.Background(), "g-77")
	require.NoError(t, err)
	require.NotNil(t, gs)
	assert.Equal(t, "g-77", gs.ID)
	// Spectating does not adopt the snapshot; pushes drive the cache.
	assert.Nil(t, c.CurrentGame())
}

func TestSessionLifecycle_SnapshotsReplaceWholesale(t *testing.T) {
	s, url := newStubServer(t)
	c := connectedClient(t, url)

	pushGameFound(t, s, c, "g-9")
	require.NotNil(t, c.CurrentGame())
	assert.Equal(t, 1, c.CurrentGame().Turn)

	updates := subscribe(c, protocol.EventGameStateUpdate)
	s.Push(protocol.EventGameStateUpdate, protocol.GameStateUpdateEvent{
		GameState: protocol.GameState{ID: "g-9", Phase: protocol.PhasePlaying, Turn: 5},
	})
	awaitEvent(t, updates, 2*time.Second)
	assert.Equal(t, 5, c.CurrentGame().Turn)

	// playerJoined is informational; the cache stays as the last snapshot.
	joined := subscribe(c, protocol.EventPlayerJoined)
	s.Push(protocol.EventPlayerJoined, protocol.PlayerJoinedEvent{Player: protocol.Player{ID: "p-2"}})
	awaitEvent(t, joined, 2*time.Second)
	assert.Empty(t, c.CurrentGame().Players)

	ended := subscribe(c, protocol.EventGameEnded)
	s.Push(protocol.EventGameEnded, protocol.GameEndedEvent{GameID: "g-9", Result: "victory"})
	awaitEvent(t, ended, 2*time.Second)
	assert.Nil(t, c.CurrentGame())
}

func TestTournamentAndStatsQueries(t *testing.T) {
	s, url := newStubServer(t)
	s.Handle(protocol.MsgGetTournamentBrackets, func(json.RawMessage) any {
		return protocol.TournamentBracketsResult{
			Ack:      protocol.Ack{Success: true},
			Brackets: []protocol.BracketMatch{{ID: "m-1", Round: 1, PlayerA: "a", PlayerB: "b"}},
		}
	})
	s.Handle(protocol.MsgGetPlayerStats, func(json.RawMessage) any {
		return protocol.PlayerStatsResult{
			Ack:   protocol.Ack{Success: true},
			Stats: &protocol.PlayerStats{PlayerID: "p-1", Rating: 1800, Wins: 40},
		}
	})
	s.Handle(protocol.MsgGetLeaderboard, func(json.RawMessage) any {
		return protocol.LeaderboardResult{
			Ack:         protocol.Ack{Success: true},
			Leaderboard: []protocol.LeaderboardEntry{{Rank: 1, PlayerID: "p-1", Rating: 2100}},
		}
	})

	c := connectedClient(t, url)
	ctx := context.Background()

	require.NoError(t, c.JoinTournament(ctx, "t-1", "deck-1"))

	brackets, err := c.TournamentBrackets(ctx, "t-1")
	require.NoError(t, err)
	require.Len(t, brackets, 1)
	assert.Equal(t, "m-1", brackets[0].ID)

	stats, err := c.PlayerStats(ctx, "p-1")
	require.NoError(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, 1800, stats.Rating)

	lb, err := c.Leaderboard(ctx, "ranked")
	require.NoError(t, err)
	require.Len(t, lb, 1)
	assert.Equal(t, 1, lb[0].Rank)

	require.NoError(t, c.LeaveTournament(ctx, "t-1"))
}

func TestHeartbeat_EmitsLatencyUpdate(t *testing.T) {
	_, url := newStubServer(t)

	opts := testOptions()
	opts.HeartbeatInterval = 50 * time.Millisecond
	c := New(opts)
	t.Cleanup(c.Dispose)

	latencies := subscribe(c, protocol.EventLatencyUpdate)
	require.NoError(t, c.Connect(context.Background(), url, ""))

	ev := awaitEvent(t, latencies, 3*time.Second)
	update, ok := ev.(*protocol.LatencyUpdateEvent)
	require.True(t, ok)
	assert.GreaterOrEqual(t, update.LatencyMS, int64(0))
	assert.GreaterOrEqual(t, c.AverageLatency(), 0.0)
}

func TestReconnect_RecoversAfterTransportDrop(t *testing.T) {
	s, url := newStubServer(t)

	opts := testOptions()
	opts.ReconnectBackoff = 20 * time.Millisecond
	opts.ReconnectBackoffCap = 40 * time.Millisecond
	c := New(opts)
	t.Cleanup(c.Dispose)

	dropped := subscribe(c, protocol.EventDisconnected)
	recovered := subscribe(c, protocol.EventReconnected)
	require.NoError(t, c.Connect(context.Background(), url, ""))

	s.DropAll()

	awaitEvent(t, dropped, 3*time.Second)
	ev := awaitEvent(t, recovered, 3*time.Second)
	rec, ok := ev.(*protocol.ReconnectedEvent)
	require.True(t, ok)
	assert.Equal(t, 1, rec.AttemptNumber)
	assert.True(t, c.IsConnectedToServer())
}

func TestReconnect_AttemptsAreBoundedThenConnectionLost(t *testing.T) {
	s, url := newStubServer(t)

	opts := testOptions()
	opts.MaxReconnectAttempts = 2
	opts.ReconnectBackoff = 20 * time.Millisecond
	opts.ReconnectBackoffCap = 40 * time.Millisecond
	c := New(opts)
	t.Cleanup(c.Dispose)

	lost := subscribe(c, protocol.EventConnectionLost)
	require.NoError(t, c.Connect(context.Background(), url, ""))
	require.Equal(t, 1, s.Accepted())

	s.SetRefuse(true)
	s.DropAll()

	awaitEvent(t, lost, 5*time.Second)
	assert.Equal(t, StateConnectionLost, c.ConnectionState())
	// Initial connection plus exactly MaxReconnectAttempts redials.
	assert.Equal(t, 3, s.Accepted())

	// An explicit Connect recovers from ConnectionLost.
	s.SetRefuse(false)
	require.NoError(t, c.Connect(context.Background(), url, ""))
	assert.True(t, c.IsConnectedToServer())
}

func TestDispose_ClearsStateAndInstanceIsReusable(t *testing.T) {
	s, url := newStubServer(t)
	c := connectedClient(t, url)
	pushGameFound(t, s, c, "g-1")

	stale := subscribe(c, protocol.EventTurnChanged)

	c.Dispose()
	assert.False(t, c.IsConnectedToServer())
	assert.Nil(t, c.CurrentGame())
	assert.Empty(t, c.PlayerID())

	// Fresh lifecycle: new subscription sees events, the disposed one does
	// not fire again.
	require.NoError(t, c.Connect(context.Background(), url, ""))
	fresh := subscribe(c, protocol.EventTurnChanged)
	s.Push(protocol.EventTurnChanged, protocol.TurnChangedEvent{GameID: "g-2", Turn: 3})

	awaitEvent(t, fresh, 2*time.Second)
	awaitNoEvent(t, stale, 100*time.Millisecond)
}

func TestDispose_RejectsInFlightRequests(t *testing.T) {
	s, url := newStubServer(t)
	// Script a server that never acknowledges.
	s.Handle(protocol.MsgStartMatchmaking, func(json.RawMessage) any { return nil })

	opts := testOptions()
	opts.RequestTimeout = 0 // would otherwise hang forever
	c := New(opts)
	require.NoError(t, c.Connect(context.Background(), url, ""))

	errc := make(chan error, 1)
	go func() {
		errc <- c.StartMatchmaking(context.Background(), protocol.MatchmakingPreferences{Mode: "casual"})
	}()

	// Give the request time to reach the wire, then dispose.
	time.Sleep(100 * time.Millisecond)
	c.Dispose()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrDisposed)
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight request was not rejected by dispose")
	}
}

func TestCancelMatchmaking_IsFireAndForget(t *testing.T) {
	s, url := newStubServer(t)
	var cancels atomic.Int32
	s.Handle(protocol.MsgCancelMatchmaking, func(json.RawMessage) any {
		cancels.Add(1)
		return nil
	})

	c := connectedClient(t, url)
	require.NoError(t, c.CancelMatchmaking(context.Background()))

	assert.Eventually(t, func() bool { return cancels.Load() == 1 },
		2*time.Second, 20*time.Millisecond)
}
