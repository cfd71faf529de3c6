// Package main is the viva command: a spoken oral examination run from the
// terminal against the training backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/viva/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(app.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr))
}
