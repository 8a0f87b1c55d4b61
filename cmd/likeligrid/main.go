package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/likeligrid/likeligrid/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Error("likeligrid failed", "error", err)
		stop()
		os.Exit(1)
	}
}
