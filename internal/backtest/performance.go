package backtest

import (
	"math"

	"github.com/ProjectTradeAI/agentrader/internal/types"
)

// PerformanceCalculator derives summary statistics from a finished run's
// closed trades and equity curve. Every metric has a defined sentinel for
// the degenerate case, so a report never carries NaN.
type PerformanceCalculator struct {
	interval types.Interval
}

// NewPerformanceCalculator creates a calculator annualizing at the given
// bar interval.
func NewPerformanceCalculator(interval types.Interval) *PerformanceCalculator {
	return &PerformanceCalculator{interval: interval}
}

// Calculate computes the full report. It is a pure function of its inputs.
func (c *PerformanceCalculator) Calculate(equityCurve []types.EquityPoint, trades []types.ClosedTrade) types.PerformanceReport {
	report := types.PerformanceReport{
		TotalReturnPct:   totalReturnPct(equityCurve),
		MaxDrawdownPct:   maxDrawdownPct(equityCurve),
		SharpeRatio:      c.sharpeRatio(equityCurve),
		TotalTrades:      len(trades),
		AvgHoldTimeHours: avgHoldTimeHours(trades),
	}

	var grossProfit, grossLoss float64

	for _, trade := range trades {
		switch {
		case trade.RealizedPnL > 0:
			report.WinningTrades++
			grossProfit += trade.RealizedPnL
		case trade.RealizedPnL < 0:
			report.LosingTrades++
			grossLoss += -trade.RealizedPnL
		default:
			// Break-even trades count as losses for the win rate.
			report.LosingTrades++
		}
	}

	if report.TotalTrades > 0 {
		report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	}

	report.ProfitFactor = profitFactor(grossProfit, grossLoss)

	return report
}

// totalReturnPct is the percentage change from the first to the last equity
// point, 0 for an empty or single-point curve starting at zero.
func totalReturnPct(curve []types.EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	initial := curve[0].Equity
	if initial <= 0 {
		return 0
	}

	final := curve[len(curve)-1].Equity

	return (final/initial - 1) * 100
}

// maxDrawdownPct is the largest peak-to-trough equity decline, as a positive
// percentage. A run that never declines reports 0.
func maxDrawdownPct(curve []types.EquityPoint) float64 {
	var peak, maxDrawdown float64

	for _, point := range curve {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak <= 0 {
			continue
		}

		drawdown := (peak - point.Equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown * 100
}

// sharpeRatio annualizes the mean per-bar equity return over its standard
// deviation. Fewer than two usable returns, or zero variance, reports 0.
func (c *PerformanceCalculator) sharpeRatio(curve []types.EquityPoint) float64 {
	var returns []float64

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev <= 0 {
			continue
		}

		returns = append(returns, curve[i].Equity/prev-1)
	}

	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}

	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	variance /= float64(len(returns))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	periodsPerYear, err := c.interval.PeriodsPerYear()
	if err != nil {
		return 0
	}

	return mean / stddev * math.Sqrt(periodsPerYear)
}

// profitFactor is gross profit over gross loss. No losses with wins is +Inf;
// no wins and no losses is 0.
func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit == 0 {
			return 0
		}

		return math.Inf(1)
	}

	return grossProfit / grossLoss
}

func avgHoldTimeHours(trades []types.ClosedTrade) float64 {
	if len(trades) == 0 {
		return 0
	}

	var total float64
	for _, trade := range trades {
		total += trade.HoldTime().Hours()
	}

	return total / float64(len(trades))
}
