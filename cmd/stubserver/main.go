// stubserver runs the in-process stub game server standalone so the demo
// client has something local to talk to.
package main

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/mhweir/arcanum-client/internal/stub"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	addr := os.Getenv("STUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	s := stub.NewServer(logger.Named("stub"))
	logger.Info("stub game server listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, s.Router()); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
