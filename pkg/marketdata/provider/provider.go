package provider

import (
	"context"
	"time"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/marketdata/writer"
)

// OnDownloadProgress reports download progress. current and total are in the
// provider's native units (Binance uses epoch milliseconds).
type OnDownloadProgress func(current float64, total float64, message string)

// Provider downloads historical bars for one symbol and interval and feeds
// them to the configured writer.
type Provider interface {
	ConfigWriter(w writer.BarWriter)
	Download(ctx context.Context, symbol string, interval types.Interval, start time.Time, end time.Time, onProgress OnDownloadProgress) (path string, err error)
}
