package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"commander_go/cmd/app/cmd"
)

func main() {
	// Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
