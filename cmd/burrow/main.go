package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hegde-atri/ec2-burrow/internal/config"
	"github.com/hegde-atri/ec2-burrow/internal/logging"
	"github.com/hegde-atri/ec2-burrow/internal/registry"
	"github.com/hegde-atri/ec2-burrow/internal/tui"
)

const version = "0.2.0"

// main opens the EC2 Burrow dashboard straight away.
// An optional first argument overrides the config file path.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	path := config.DefaultPath()
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	reg, err := registry.Open(ctx, path, logging.New(false))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing EC2 Burrow: %v\n", err)
		os.Exit(1)
	}

	if err := tui.New(ctx, version, reg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running EC2 Burrow: %v\n", err)
		os.Exit(1)
	}
}
