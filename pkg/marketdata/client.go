// Package marketdata downloads historical OHLCV data from an exchange and
// stores it as Parquet files that the backtest data source reads directly.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/ProjectTradeAI/agentrader/pkg/marketdata/provider"
	"github.com/ProjectTradeAI/agentrader/pkg/marketdata/writer"
)

// ProviderType defines the market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
)

// WriterType defines the storage format for downloaded data.
type WriterType string

const (
	WriterDuckDB WriterType = "duckdb"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType ProviderType `validate:"required,oneof=binance"`
	WriterType   WriterType   `validate:"required,oneof=duckdb"`
	DataPath     string       `validate:"required"`
}

// DownloadParams holds the parameters for one download request.
type DownloadParams struct {
	Symbol    string         `validate:"required"`
	Interval  types.Interval `validate:"required"`
	StartDate time.Time      `validate:"required"`
	EndDate   time.Time      `validate:"required,gtfield=StartDate"`
}

// Client downloads market data from a provider and stores it with a writer.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var marketProvider provider.Provider

	var err error

	switch config.ProviderType {
	case ProviderBinance:
		marketProvider, err = provider.NewBinanceClient()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "failed to create binance client", err)
		}
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported provider type: %s", config.ProviderType)
	}

	return &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches the requested range and writes it under DataPath. Returns
// the path of the written file.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	barWriter, err := c.setupWriter(params)
	if err != nil {
		return "", err
	}
	defer barWriter.Close()

	c.provider.ConfigWriter(barWriter)

	path, err := c.provider.Download(ctx, params.Symbol, params.Interval, params.StartDate, params.EndDate, c.onProgress)
	if err != nil {
		return "", err
	}

	return path, nil
}

// OutputPath returns the file path a download request resolves to.
// Filename layout: SYMBOL_START_END_INTERVAL.parquet.
func (c *Client) OutputPath(params DownloadParams) string {
	name := fmt.Sprintf("%s_%s_%s_%s.parquet",
		params.Symbol,
		params.StartDate.Format("2006-01-02"),
		params.EndDate.Format("2006-01-02"),
		params.Interval)

	return filepath.Join(c.config.DataPath, name)
}

func (c *Client) setupWriter(params DownloadParams) (writer.BarWriter, error) {
	switch c.config.WriterType {
	case WriterDuckDB:
		if _, err := os.Stat(c.config.DataPath); os.IsNotExist(err) {
			if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
				return nil, errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to create data path", err)
			}
		}

		return writer.NewDuckDBWriter(c.OutputPath(params)), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported writer type: %s", c.config.WriterType)
	}
}
