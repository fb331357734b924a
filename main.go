package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/davget/davget/cmd"
	"github.com/davget/davget/pkg/logging"
)

func main() {
	logging.SetupLogger()

	// SIGINT/SIGTERM cancel the command context so in-flight chunk
	// workers stop claiming and report cancellation.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCMD := cmd.GetRootCommand()
	if err := rootCMD.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
