package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rpattn/placement-timeline/internal/logging"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.LogError(logrus.StandardLogger(), "timeline failed", err)
		os.Exit(1)
	}
}
