// Package main checks the local web and worker processes and exits non-zero
// when either is unhealthy.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	healthcmd "github.com/louisbranch/addon-demo/internal/cmd/healthcheck"
	"github.com/louisbranch/addon-demo/internal/platform/config"
)

func main() {
	cfg, err := healthcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.ExitCodef(2, "parse flags: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := healthcmd.Run(ctx, cfg); err != nil {
		config.Exitf("unhealthy: %v", err)
	}
}
