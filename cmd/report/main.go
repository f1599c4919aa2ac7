package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"
)

// reportAction loads results and starts the TUI browser.
func reportAction(ctx context.Context, cmd *cli.Command) error {
	results, err := LoadResults(cmd.String("results"))
	if err != nil {
		return err
	}

	program := tea.NewProgram(NewModel(results), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run report UI: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "report",
		Usage: "Browse backtest results in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "results",
				Aliases: []string{"r"},
				Usage:   "Directory containing result YAML files",
				Value:   "results",
			},
		},
		Action: reportAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
