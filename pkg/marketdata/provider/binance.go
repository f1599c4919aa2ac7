package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/ProjectTradeAI/agentrader/pkg/marketdata/writer"
)

// binancePageSize is the maximum klines per request the API returns.
const binancePageSize = 500

// BinanceClient downloads historical klines from the public Binance spot
// API. No API key is needed for kline data.
type BinanceClient struct {
	client *binance.Client
	writer writer.BarWriter
}

// NewBinanceClient creates an unauthenticated Binance provider.
func NewBinanceClient() (Provider, error) {
	return &BinanceClient{
		client: binance.NewClient("", ""),
		writer: nil,
	}, nil
}

// ConfigWriter implements Provider.
func (c *BinanceClient) ConfigWriter(w writer.BarWriter) {
	c.writer = w
}

// Download fetches klines page by page and streams them into the writer.
// Binance caps each response at 500 rows, so pagination continues from one
// past the close time of the last kline received.
func (c *BinanceClient) Download(ctx context.Context, symbol string, interval types.Interval, start time.Time, end time.Time, onProgress OnDownloadProgress) (string, error) {
	if c.writer == nil {
		return "", errors.New(errors.ErrCodeMarketDataFetchFailed, "writer is not configured")
	}

	if _, err := interval.Duration(); err != nil {
		return "", err
	}

	if err := c.writer.Initialize(); err != nil {
		return "", err
	}

	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	currentStart := startMillis

	for {
		klines, err := c.client.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(currentStart).
			EndTime(endMillis).
			Do(ctx)
		if err != nil {
			return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
				"failed to fetch %s klines from binance", symbol)
		}

		if onProgress != nil {
			onProgress(float64(currentStart-startMillis), float64(endMillis-startMillis), "downloading "+symbol)
		}

		if err := c.writeKlines(symbol, klines); err != nil {
			return "", err
		}

		if len(klines) < binancePageSize {
			break
		}

		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	outputPath, err := c.writer.Finalize()
	if err != nil {
		return "", err
	}

	return outputPath, nil
}

// writeKlines converts one page of Binance klines to bars and writes them.
// The bar timestamp is the kline open time.
func (c *BinanceClient) writeKlines(symbol string, klines []*binance.Kline) error {
	for _, k := range klines {
		bar, err := klineToBar(symbol, k)
		if err != nil {
			return err
		}

		if err := c.writer.Write(bar); err != nil {
			return err
		}
	}

	return nil
}

func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	bar := types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(k.OpenTime).UTC(),
	}

	for _, field := range []struct {
		raw  string
		dest *float64
	}{
		{k.Open, &bar.Open},
		{k.High, &bar.High},
		{k.Low, &bar.Low},
		{k.Close, &bar.Close},
		{k.Volume, &bar.Volume},
	} {
		value, err := strconv.ParseFloat(field.raw, 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err,
				"failed to parse kline field %q", field.raw)
		}

		*field.dest = value
	}

	if err := bar.Validate(); err != nil {
		return types.Bar{}, err
	}

	return bar, nil
}
