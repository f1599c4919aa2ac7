package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/server"
)

// serveAction runs the results API until interrupted.
func serveAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.NewServer(cmd.String("results"), log)

	return srv.Start(ctx, cmd.String("addr"))
}

func main() {
	cmd := &cli.Command{
		Name:  "serve",
		Usage: "Serve backtest results over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Directory containing result YAML files",
				Value:   "results",
			},
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Listen address",
				Value:   ":8080",
			},
		},
		Action: serveAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
