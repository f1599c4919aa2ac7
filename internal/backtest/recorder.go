package backtest

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// Recorder persists finished runs into an embedded DuckDB database so they
// can be compared across strategies and exported as Parquet for notebook
// analysis.
type Recorder struct {
	db     *sql.DB
	logger *logger.Logger
}

// RunSummary is one row of the runs table.
type RunSummary struct {
	ID             string
	Symbol         string
	StrategyName   string
	StartTime      time.Time
	EndTime        time.Time
	InitialBalance float64
	FinalBalance   float64
	TotalTrades    int
	WinRate        float64
}

// NewRecorder opens an in-memory DuckDB store. Pass a file path to persist
// across processes.
func NewRecorder(path string, log *logger.Logger) (*Recorder, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	recorder := &Recorder{
		db:     db,
		logger: log,
	}

	if err := recorder.createTables(); err != nil {
		db.Close()

		return nil, err
	}

	return recorder, nil
}

func (r *Recorder) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR PRIMARY KEY,
			schema_version VARCHAR,
			symbol VARCHAR,
			interval VARCHAR,
			strategy_name VARCHAR,
			start_time TIMESTAMP,
			end_time TIMESTAMP,
			initial_balance DOUBLE,
			final_balance DOUBLE,
			decision_failures INTEGER,
			total_trades INTEGER,
			win_rate DOUBLE,
			max_drawdown_pct DOUBLE,
			sharpe_ratio DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id VARCHAR PRIMARY KEY,
			run_id VARCHAR,
			trade_id VARCHAR,
			symbol VARCHAR,
			direction VARCHAR,
			entry_price DOUBLE,
			exit_price DOUBLE,
			size DOUBLE,
			entry_timestamp TIMESTAMP,
			exit_timestamp TIMESTAMP,
			exit_reason VARCHAR,
			realized_pnl DOUBLE,
			realized_pnl_pct DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS equity (
			id VARCHAR PRIMARY KEY,
			run_id VARCHAR,
			time TIMESTAMP,
			cash_balance DOUBLE,
			equity DOUBLE
		)`,
	}

	for _, statement := range statements {
		if _, err := r.db.Exec(statement); err != nil {
			return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to create recorder tables", err)
		}
	}

	return nil
}

// Record writes one finished run with all its trades and equity points.
// Recording the same run ID twice replaces the previous rows.
func (r *Recorder) Record(result types.BacktestResult) error {
	for _, table := range []string{"runs", "trades", "equity"} {
		column := "id"
		if table != "runs" {
			column = "run_id"
		}

		if _, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column), result.ID); err != nil {
			return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to clear previous run rows", err)
		}
	}

	runInsert := squirrel.Insert("runs").
		Columns("id", "schema_version", "symbol", "interval", "strategy_name",
			"start_time", "end_time", "initial_balance", "final_balance",
			"decision_failures", "total_trades", "win_rate", "max_drawdown_pct", "sharpe_ratio").
		Values(result.ID, result.SchemaVersion, result.Symbol, string(result.Interval), result.StrategyName,
			result.StartTime, result.EndTime, result.InitialBalance, result.FinalBalance,
			result.DecisionFailures, result.Report.TotalTrades, result.Report.WinRate,
			result.Report.MaxDrawdownPct, result.Report.SharpeRatio)

	if err := r.exec(runInsert); err != nil {
		return err
	}

	for _, trade := range result.ClosedTrades {
		tradeInsert := squirrel.Insert("trades").
			Columns("id", "run_id", "trade_id", "symbol", "direction",
				"entry_price", "exit_price", "size", "entry_timestamp", "exit_timestamp",
				"exit_reason", "realized_pnl", "realized_pnl_pct").
			Values(uuid.New().String(), result.ID, trade.ID, trade.Symbol, string(trade.Direction),
				trade.EntryPrice, trade.ExitPrice, trade.Size, trade.EntryTimestamp, trade.ExitTimestamp,
				string(trade.ExitReason), trade.RealizedPnL, trade.RealizedPnLPct)

		if err := r.exec(tradeInsert); err != nil {
			return err
		}
	}

	for _, point := range result.EquityCurve {
		equityInsert := squirrel.Insert("equity").
			Columns("id", "run_id", "time", "cash_balance", "equity").
			Values(uuid.New().String(), result.ID, point.Time, point.CashBalance, point.Equity)

		if err := r.exec(equityInsert); err != nil {
			return err
		}
	}

	r.logger.Info("Recorded backtest run",
		zap.String("run_id", result.ID),
		zap.Int("trades", len(result.ClosedTrades)),
		zap.Int("equity_points", len(result.EquityCurve)),
	)

	return nil
}

func (r *Recorder) exec(builder squirrel.InsertBuilder) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to build insert", err)
	}

	if _, err := r.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFailed, "failed to insert run rows", err)
	}

	return nil
}

// Runs lists all recorded runs, newest start first.
func (r *Recorder) Runs() ([]RunSummary, error) {
	query, args, err := squirrel.Select("id", "symbol", "strategy_name", "start_time", "end_time",
		"initial_balance", "final_balance", "total_trades", "win_rate").
		From("runs").
		OrderBy("start_time DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build runs query", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query runs", err)
	}
	defer rows.Close()

	var runs []RunSummary

	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.ID, &run.Symbol, &run.StrategyName, &run.StartTime, &run.EndTime,
			&run.InitialBalance, &run.FinalBalance, &run.TotalTrades, &run.WinRate); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan run row", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating runs", err)
	}

	return runs, nil
}

// TradeCount returns how many trades are stored for a run.
func (r *Recorder) TradeCount(runID string) (int, error) {
	return r.count("trades", runID)
}

// EquityCount returns how many equity points are stored for a run.
func (r *Recorder) EquityCount(runID string) (int, error) {
	return r.count("equity", runID)
}

func (r *Recorder) count(table, runID string) (int, error) {
	query, args, err := squirrel.Select("COUNT(*)").
		From(table).
		Where(squirrel.Eq{"run_id": runID}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := r.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count rows", err)
	}

	return count, nil
}

// Export writes each table as a Parquet file under dir.
func (r *Recorder) Export(dir string) error {
	for _, table := range []string{"runs", "trades", "equity"} {
		target := filepath.Join(dir, table+".parquet")

		statement := fmt.Sprintf("COPY %s TO '%s' (FORMAT 'parquet')", table, target)
		if _, err := r.db.Exec(statement); err != nil {
			return errors.Wrapf(errors.ErrCodeResultWriteFailed, err, "failed to export %s", table)
		}

		r.logger.Debug("Exported table", zap.String("table", table), zap.String("path", target))
	}

	return nil
}

// Close releases the database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}
