// Package server exposes finished backtest results over a small JSON API so
// dashboards and notebooks can pull runs without touching result files
// directly.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ProjectTradeAI/agentrader/internal/logger"
	"github.com/ProjectTradeAI/agentrader/internal/types"
	"github.com/ProjectTradeAI/agentrader/internal/version"
	"github.com/ProjectTradeAI/agentrader/pkg/errors"
)

// Server serves backtest result files from a directory. Results are
// re-scanned on every request; the result set is small and the server is an
// operator tool, not a hot path.
type Server struct {
	resultsDir string
	logger     *logger.Logger
	httpServer *http.Server
}

// RunSummary is the list-endpoint view of one run.
type RunSummary struct {
	ID             string    `json:"id"`
	Symbol         string    `json:"symbol"`
	Interval       string    `json:"interval"`
	StrategyName   string    `json:"strategy_name"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	InitialBalance float64   `json:"initial_balance"`
	FinalBalance   float64   `json:"final_balance"`
	TotalTrades    int       `json:"total_trades"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server over the given results directory.
func NewServer(resultsDir string, log *logger.Logger) *Server {
	return &Server{
		resultsDir: resultsDir,
		logger:     log,
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/v1/runs", s.handleListRuns).Methods("GET")
	router.HandleFunc("/api/v1/runs/{id}", s.handleGetRun).Methods("GET")
	router.HandleFunc("/api/v1/runs/{id}/report", s.handleGetReport).Methods("GET")
	router.HandleFunc("/api/v1/runs/{id}/trades", s.handleGetTrades).Methods("GET")
	router.HandleFunc("/api/v1/runs/{id}/equity", s.handleGetEquity).Methods("GET")

	return router
}

// Start serves on addr until the context is cancelled or ListenAndServe
// fails.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("Results server listening", zap.String("addr", addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}

		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	results, err := s.loadResults()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)

		return
	}

	summaries := make([]RunSummary, 0, len(results))
	for _, result := range results {
		summaries = append(summaries, RunSummary{
			ID:             result.ID,
			Symbol:         result.Symbol,
			Interval:       string(result.Interval),
			StrategyName:   result.StrategyName,
			StartTime:      result.StartTime,
			EndTime:        result.EndTime,
			InitialBalance: result.InitialBalance,
			FinalBalance:   result.FinalBalance,
			TotalTrades:    result.Report.TotalTrades,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartTime.After(summaries[j].StartTime)
	})

	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.findRun(mux.Vars(r)["id"])
	if err != nil {
		s.writeNotFoundOrError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	result, err := s.findRun(mux.Vars(r)["id"])
	if err != nil {
		s.writeNotFoundOrError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, result.Report)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	result, err := s.findRun(mux.Vars(r)["id"])
	if err != nil {
		s.writeNotFoundOrError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, result.ClosedTrades)
}

func (s *Server) handleGetEquity(w http.ResponseWriter, r *http.Request) {
	result, err := s.findRun(mux.Vars(r)["id"])
	if err != nil {
		s.writeNotFoundOrError(w, err)

		return
	}

	s.writeJSON(w, http.StatusOK, result.EquityCurve)
}

// loadResults reads every parseable result file in the directory. Files with
// an incompatible schema version are skipped with a warning rather than
// failing the whole listing.
func (s *Server) loadResults() ([]types.BacktestResult, error) {
	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to read results directory", err)
	}

	var results []types.BacktestResult

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}

		path := filepath.Join(s.resultsDir, name)

		result, err := types.ReadBacktestResult(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable result file", zap.String("path", path), zap.Error(err))

			continue
		}

		if err := version.CheckResultSchema(result.SchemaVersion); err != nil {
			s.logger.Warn("Skipping incompatible result file", zap.String("path", path), zap.Error(err))

			continue
		}

		results = append(results, result)
	}

	return results, nil
}

func (s *Server) findRun(id string) (types.BacktestResult, error) {
	results, err := s.loadResults()
	if err != nil {
		return types.BacktestResult{}, err
	}

	for _, result := range results {
		if result.ID == id {
			return result, nil
		}
	}

	return types.BacktestResult{}, errors.Newf(errors.ErrCodeResultNotFound, "no run with id %s", id)
}

func (s *Server) writeNotFoundOrError(w http.ResponseWriter, err error) {
	if errors.HasCode(err, errors.ErrCodeResultNotFound) {
		s.writeError(w, http.StatusNotFound, err)

		return
	}

	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Warn("Request failed", zap.Int("status", status), zap.Error(err))
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
