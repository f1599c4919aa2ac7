package market

import (
	"context"
	"time"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/moznion/go-optional"
)

// DataSource is a read-only, ordered source of OHLCV bars keyed by
// (symbol, interval, timestamp). A backtest fetches its series once, up
// front, through this interface.
type DataSource interface {
	// GetSeries returns bars for the symbol and interval, ordered by time
	// ascending, optionally bounded by start/end (inclusive).
	GetSeries(ctx context.Context, symbol string, interval types.Interval, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error)
	// Count returns the number of bars available for the symbol and interval
	// within the optional bounds.
	Count(ctx context.Context, symbol string, interval types.Interval, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the data source.
	Close() error
}
