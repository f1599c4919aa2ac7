package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/marketdata"
)

// downloadAction downloads historical klines and writes them as Parquet.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	interval := types.Interval(cmd.String("interval"))
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")

	bar := progressbar.Default(100, "downloading")
	onProgress := func(current, total float64, message string) {
		if total > 0 {
			bar.Set(int(current / total * 100))
		}
	}

	client, err := marketdata.NewClient(marketdata.ClientConfig{
		ProviderType: marketdata.ProviderType(cmd.String("provider")),
		WriterType:   marketdata.WriterType(cmd.String("writer")),
		DataPath:     cmd.String("data"),
	}, onProgress)
	if err != nil {
		return err
	}

	path, err := client.Download(ctx, marketdata.DownloadParams{
		Symbol:    symbol,
		Interval:  interval,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return err
	}

	bar.Finish()
	fmt.Printf("Downloaded %s %s klines to %s\n", symbol, interval, path)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "data",
		Usage: "Download historical market data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"t"},
				Usage:    "Trading pair symbol (e.g., BTCUSDT)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Candle interval (1m, 5m, 15m, 30m, 1h, 4h, 1d)",
				Value:   string(types.Interval1h),
			},
			&cli.TimestampFlag{
				Name:    "start",
				Aliases: []string{"s"},
				Usage:   "Start date in `YYYY-MM-DD` format",
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
				Required: true,
			},
			&cli.TimestampFlag{
				Name:    "end",
				Aliases: []string{"e"},
				Usage:   "End date in `YYYY-MM-DD` format. Defaults to today.",
				Value:   time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   fmt.Sprintf("Data provider (%s)", marketdata.ProviderBinance),
				Value:   string(marketdata.ProviderBinance),
			},
			&cli.StringFlag{
				Name:    "writer",
				Aliases: []string{"w"},
				Usage:   fmt.Sprintf("Data writer format (%s)", marketdata.WriterDuckDB),
				Value:   string(marketdata.WriterDuckDB),
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data output directory",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
