// Command mock-upstream runs a deterministic Ollama-compatible chat server
// for local development and end-to-end testing of the relay.
//
// Configuration:
//
//	MOCK_PORT     - Listen port (default: 11434)
//	MOCK_DELAY    - Delay between stream frames, e.g. "50ms" (default: 0)
//	MOCK_SPLIT    - "true" writes every frame in two halves
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rhuss/chatrelay/pkg/upstream/ollama/ollamatest"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "11434"
	}

	h := &ollamatest.Handler{SplitFrames: os.Getenv("MOCK_SPLIT") == "true"}
	if v := os.Getenv("MOCK_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid MOCK_DELAY", "value", v, "error", err)
			os.Exit(1)
		}
		h.Delay = d
	}

	srv := &http.Server{Addr: ":" + port, Handler: h}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock upstream starting", "port", port, "delay", h.Delay, "split", h.SplitFrames)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("mock upstream failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock upstream shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}
