package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/ProjectTradeAI/agentrader/internal/agent"
	"github.com/ProjectTradeAI/agentrader/internal/backtest"
	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/market"
	"github.com/ProjectTradeAI/agentrader/internal/types"
)

// backtestAction loads the config, fetches the series, replays it through
// the chosen strategy, and writes the result file.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	configData, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	config, err := backtest.ParseConfig(configData)
	if err != nil {
		return err
	}

	procedure, err := agent.NewDecisionProcedure(cmd.String("strategy"))
	if err != nil {
		return err
	}

	source, err := market.NewDuckDBDataSource(cmd.String("data"), log)
	if err != nil {
		return err
	}
	defer source.Close()

	series, err := source.GetSeries(ctx, config.Symbol, config.Interval, config.StartTime, config.EndTime)
	if err != nil {
		return err
	}

	engine, err := backtest.NewEngine(config, log)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(series) - config.WarmupBars))
	engine.SetProgressCallback(func(current, total int) {
		bar.Set(current)
	})

	result, err := engine.Run(ctx, series, procedure)
	if err != nil {
		return err
	}

	outputDir := cmd.String("output")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	resultPath := filepath.Join(outputDir, result.ID+".yaml")
	if err := types.WriteBacktestResult(resultPath, result); err != nil {
		return err
	}

	if dbPath := cmd.String("record"); dbPath != "" {
		recorder, err := backtest.NewRecorder(dbPath, log)
		if err != nil {
			return err
		}
		defer recorder.Close()

		if err := recorder.Record(result); err != nil {
			return err
		}
	}

	fmt.Printf("Backtest complete: %s\n", result.ID)
	fmt.Printf("  Final balance:  %.2f (%.2f%%)\n", result.FinalBalance, result.Report.TotalReturnPct)
	fmt.Printf("  Trades:         %d (win rate %.1f%%)\n", result.Report.TotalTrades, result.Report.WinRate*100)
	fmt.Printf("  Max drawdown:   %.2f%%\n", result.Report.MaxDrawdownPct)
	fmt.Printf("  Sharpe:         %.2f\n", result.Report.SharpeRatio)
	fmt.Printf("  Result written: %s\n", resultPath)

	return nil
}

// schemaAction prints the JSON schema for the backtest config, for editor
// integration.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	config := backtest.DefaultConfig()

	schema, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	fmt.Println(schema)

	return nil
}

// initAction writes a starter config file.
func initAction(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	config := backtest.DefaultConfig()
	config.StartTime = optional.Some(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	data := fmt.Sprintf(`symbol: %s
interval: %s
initial_balance: %.0f
warmup_bars: %d
position_size_pct: %.2f
stop_loss_pct: %.2f
take_profit_pct: %.2f
decision_timeout: %s
start_time: %s
`,
		config.Symbol, config.Interval, config.InitialBalance, config.WarmupBars,
		config.PositionSizePct, config.StopLossPct.Unwrap(), config.TakeProfitPct.Unwrap(),
		config.DecisionTimeout, config.StartTime.Unwrap().Format(time.RFC3339))

	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("Wrote starter config to %s\n", path)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay historical market data through a trading strategy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the backtest config YAML",
				Value:   "config/backtest.yaml",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the market data parquet file",
				Value:   "data/market_data.parquet",
			},
			&cli.StringFlag{
				Name:    "strategy",
				Aliases: []string{"s"},
				Usage:   fmt.Sprintf("Strategy to run (%s, %s)", agent.StrategySMACrossover, agent.StrategyCommittee),
				Value:   agent.StrategySMACrossover,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for result files",
				Value:   "results",
			},
			&cli.StringFlag{
				Name:  "record",
				Usage: "Optional DuckDB file to record the run into",
			},
		},
		Action: backtestAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema for the config file",
				Action: schemaAction,
			},
			{
				Name:  "init",
				Usage: "Write a starter config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Value:   "config/backtest.yaml",
					},
				},
				Action: initAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
