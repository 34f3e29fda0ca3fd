// arcanum-cli is a minimal terminal client: connect, queue for a match,
// and log what the server pushes. Configuration comes from the environment
// (optionally via a .env file).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	arcanum "github.com/mhweir/arcanum-client"
	"github.com/mhweir/arcanum-client/pkg/protocol"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	url := os.Getenv("ARCANUM_SERVER_URL")
	if url == "" {
		url = "ws://localhost:8080/ws"
	}
	token := os.Getenv("ARCANUM_TOKEN")

	client := arcanum.New(arcanum.Options{
		Logger:         logger.Named("client"),
		RequestTimeout: 10 * time.Second,
	})
	defer client.Dispose()

	client.On(protocol.EventGameFound, func(data any) {
		if ev, ok := data.(*protocol.GameFoundEvent); ok {
			logger.Info("match found", zap.String("game", ev.GameState.ID))
		}
	})
	client.On(protocol.EventGameStateUpdate, func(data any) {
		if ev, ok := data.(*protocol.GameStateUpdateEvent); ok {
			logger.Info("state update",
				zap.Int("turn", ev.GameState.Turn),
				zap.String("phase", string(ev.GameState.Phase)))
		}
	})
	client.On(protocol.EventChatMessage, func(data any) {
		if ev, ok := data.(*protocol.ChatMessageEvent); ok {
			logger.Info("chat", zap.String("from", ev.SenderID), zap.String("message", ev.Message))
		}
	})
	client.On(protocol.EventLatencyUpdate, func(data any) {
		if ev, ok := data.(*protocol.LatencyUpdateEvent); ok {
			logger.Debug("latency", zap.Int64("ms", ev.LatencyMS), zap.Float64("avg", ev.AverageMS))
		}
	})
	client.On(protocol.EventConnectionLost, func(any) {
		logger.Warn("connection lost, restart to reconnect")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := client.Connect(ctx, url, token); err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}
	logger.Info("connected", zap.String("player", client.PlayerID()))

	if err := client.StartMatchmaking(ctx, protocol.MatchmakingPreferences{Mode: "casual"}); err != nil {
		logger.Error("matchmaking failed", zap.Error(err))
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
