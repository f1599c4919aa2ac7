package market

import (
	"context"
	"time"

	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	"github.com/moznion/go-optional"
)

// MemoryDataSource serves a pre-loaded bar series from memory. Used by tests
// and by callers that already hold a series.
type MemoryDataSource struct {
	bars map[string][]types.Bar
}

// NewMemoryDataSource creates an empty in-memory data source.
func NewMemoryDataSource() *MemoryDataSource {
	return &MemoryDataSource{
		bars: make(map[string][]types.Bar),
	}
}

// AddSeries registers a series for a symbol. The series must already be
// ordered; it is validated on read, not here.
func (m *MemoryDataSource) AddSeries(symbol string, series []types.Bar) {
	m.bars[symbol] = series
}

// GetSeries implements DataSource.
func (m *MemoryDataSource) GetSeries(ctx context.Context, symbol string, interval types.Interval, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	series, ok := m.bars[symbol]
	if !ok || len(series) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s interval %s", symbol, interval)
	}

	filtered := make([]types.Bar, 0, len(series))

	for _, bar := range series {
		if start.IsSome() && bar.Time.Before(start.Unwrap()) {
			continue
		}

		if end.IsSome() && bar.Time.After(end.Unwrap()) {
			continue
		}

		filtered = append(filtered, bar)
	}

	if len(filtered) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s in requested range", symbol)
	}

	if err := types.ValidateSeries(filtered); err != nil {
		return nil, err
	}

	return filtered, nil
}

// Count implements DataSource.
func (m *MemoryDataSource) Count(ctx context.Context, symbol string, interval types.Interval, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	series, err := m.GetSeries(ctx, symbol, interval, start, end)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeDataNotFound) {
			return 0, nil
		}

		return 0, err
	}

	return len(series), nil
}

// Close implements DataSource.
func (m *MemoryDataSource) Close() error {
	return nil
}
