package market

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"
)

// DuckDBDataSource reads bars from a parquet file through a DuckDB view.
type DuckDBDataSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBDataSource opens an in-memory DuckDB instance and exposes the
// parquet file at dataPath as the market_data view.
func NewDuckDBDataSource(dataPath string, log *logger.Logger) (DataSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	source := &DuckDBDataSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}

	if err := source.initialize(dataPath); err != nil {
		db.Close()

		return nil, err
	}

	return source, nil
}

func (d *DuckDBDataSource) initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	_, err := d.db.Exec(`DROP VIEW IF EXISTS market_data;`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	// Raw SQL: Squirrel doesn't support CREATE VIEW.
	query := fmt.Sprintf(`
		CREATE VIEW market_data AS
		SELECT * FROM read_parquet('%s');
	`, path)

	_, err = d.db.Exec(query)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to create view over %s", path)
	}

	return nil
}

// GetSeries implements DataSource. Bars are screened with ValidateSeries so a
// corrupt parquet file surfaces as ErrCodeInvalidMarketData here, before any
// replay begins.
func (d *DuckDBDataSource) GetSeries(ctx context.Context, symbol string, interval types.Interval, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Bar, error) {
	query, params := buildSeriesQuery("SELECT time, symbol, open, high, low, close, volume FROM market_data", symbol, start, end)
	query += " ORDER BY time ASC"

	rows, err := d.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query market data", err)
	}
	defer rows.Close()

	bars := make([]types.Bar, 0, 1000)

	for rows.Next() {
		var (
			timestamp                      time.Time
			open, high, low, close, volume float64
			rowSymbol                      string
		)

		if err := rows.Scan(&timestamp, &rowSymbol, &open, &high, &low, &close, &volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, types.Bar{
			Symbol: rowSymbol,
			Time:   timestamp,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: volume,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "no bars for symbol %s interval %s", symbol, interval)
	}

	if err := types.ValidateSeries(bars); err != nil {
		return nil, err
	}

	return bars, nil
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(ctx context.Context, symbol string, interval types.Interval, start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	builder := d.sq.
		Select("COUNT(*)").
		From("market_data").
		Where(squirrel.Eq{"symbol": symbol})

	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func buildSeriesQuery(base string, symbol string, start optional.Option[time.Time], end optional.Option[time.Time]) (string, []interface{}) {
	var conditions []string

	var params []interface{}

	paramCount := 0

	paramCount++
	conditions = append(conditions, fmt.Sprintf("symbol = $%d", paramCount))
	params = append(params, symbol)

	if start.IsSome() {
		paramCount++
		conditions = append(conditions, fmt.Sprintf("time >= $%d", paramCount))
		params = append(params, start.Unwrap())
	}

	if end.IsSome() {
		paramCount++
		conditions = append(conditions, fmt.Sprintf("time <= $%d", paramCount))
		params = append(params, end.Unwrap())
	}

	return base + " WHERE " + strings.Join(conditions, " AND "), params
}
