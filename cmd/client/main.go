// Package main is the JobBoard terminal client: browse postings, log in or
// register, apply and track applications. The session is kept in a local
// file so it survives restarts.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(root.ErrOrStderr(), err)
		os.Exit(1)
	}
}
