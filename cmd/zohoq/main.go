package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zohoq/cmd/zohoq/commands"
	"zohoq/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.Execute(ctx, os.Args)

	// Flush any buffered log records before deciding the exit code.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := observability.Shutdown(flushCtx); flushErr != nil {
		fmt.Fprintln(os.Stderr, "failed to flush logs:", flushErr)
	}

	if err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
