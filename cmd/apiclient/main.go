package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gofood/internal/client/cli"
	"github.com/dmitrijs2005/gofood/internal/client/config"
	"github.com/dmitrijs2005/gofood/internal/flagx"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[1:]
	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return cli.ExitUsage
	}

	app, err := cli.NewApp(ctx, cfg, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return cli.ExitError
	}
	defer app.Close()

	return app.Run(ctx, flagx.Positional(args, config.ValueFlags, config.BoolFlags))
}
