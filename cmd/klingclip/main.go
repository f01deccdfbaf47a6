// Package main provides the entry point for the klingclip command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/maauso/klingclip/internal/cli"
)

func main() {
	// Graceful shutdown handling: an interrupt cancels the running batch and skips the rest.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
