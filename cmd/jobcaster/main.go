// Command jobcaster is the announcement daemon. It accepts job-posting
// webhooks from the applicant tracking system and fans each new opening
// out to the configured social and chat channels.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"jobcaster/internal/app"
)

func main() {
	configPath := flag.String("config", "config.json", "path to config file (json or yaml)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "jobcaster: %v\n", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "jobcaster: %v\n", err)
		os.Exit(1)
	}
}
