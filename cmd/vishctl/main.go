// Command vishctl manages the grounding corpus and exercises the integrity
// pipeline from the terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logrus.WithError(err).Error("vishctl failed")
		os.Exit(1)
	}
}
