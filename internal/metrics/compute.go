// Package metrics computes run statistics from closed trades and daily
// capital snapshots. All order-dependent figures sort their inputs
// deterministically first.
package metrics

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"weekly-options-lab/internal/domain"
)

// Trading days per year, used to annualize daily figures.
const annualTradingDays = 252.0

// Compute calculates the full statistics block for a run. Trades are sorted
// by entry time ASC, trade ID ASC before order-dependent metrics
// (MaxDrawdown, MaxConsecutiveLosses); daily snapshots by date ASC.
func Compute(result *domain.RunResult) *domain.RunStatistics {
	stats := &domain.RunStatistics{
		FinalCapital: result.InitialCapital,
		BySignal:     make(map[domain.SignalType]*domain.SignalStatistics),
	}

	trades := sortedTrades(result.Trades)
	daily := sortedDaily(result.Daily)

	for _, t := range trades {
		stats.TotalPnl = stats.TotalPnl.Add(t.TotalPnl)

		sig := stats.BySignal[t.SignalType]
		if sig == nil {
			sig = &domain.SignalStatistics{}
			stats.BySignal[t.SignalType] = sig
		}
		sig.Trades++
		sig.TotalPnl = sig.TotalPnl.Add(t.TotalPnl)
		if t.Outcome == domain.OutcomeWin {
			stats.WinningTrades++
			sig.Wins++
		} else {
			stats.LosingTrades++
			sig.Losses++
		}
	}

	stats.TotalTrades = len(trades)
	stats.WinRate = computeWinRate(stats.WinningTrades, stats.TotalTrades)
	stats.FinalCapital = result.InitialCapital.Add(stats.TotalPnl)
	stats.MaxConsecutiveLosses = computeMaxConsecutiveLosses(trades)
	stats.MaxDrawdown, stats.MaxDrawdownPct = computeMaxDrawdown(result.InitialCapital, trades)

	if result.InitialCapital.IsPositive() {
		totalReturn, _ := stats.TotalPnl.Div(result.InitialCapital).Float64()
		stats.TotalReturnPct = totalReturn * 100
		stats.AnnualizedReturnPct = annualizeReturn(totalReturn, len(daily))
	}

	returns := dailyReturns(daily)
	stats.SharpeRatio = computeSharpe(returns)
	stats.SortinoRatio = computeSortino(returns)

	return stats
}

// sortedTrades returns a copy ordered by entry time ASC, trade ID ASC.
func sortedTrades(trades []*domain.Trade) []*domain.Trade {
	out := make([]*domain.Trade, len(trades))
	copy(out, trades)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].TradeID < out[j].TradeID
	})
	return out
}

func sortedDaily(daily []*domain.DailyResult) []*domain.DailyResult {
	out := make([]*domain.DailyResult, len(daily))
	copy(out, daily)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// computeWinRate calculates win rate as wins / total.
func computeWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

// computeMaxDrawdown calculates the worst peak-to-trough fall of the equity
// curve built from cumulative trade P&L on top of initial capital. The
// percentage is taken against the peak.
func computeMaxDrawdown(initialCapital decimal.Decimal, trades []*domain.Trade) (decimal.Decimal, float64) {
	equity := initialCapital
	peak := initialCapital
	maxDrawdown := decimal.Zero
	maxDrawdownPct := 0.0

	for _, t := range trades {
		equity = equity.Add(t.TotalPnl)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		drawdown := peak.Sub(equity)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
			if peak.IsPositive() {
				pct, _ := drawdown.Div(peak).Float64()
				maxDrawdownPct = pct * 100
			}
		}
	}
	return maxDrawdown, maxDrawdownPct
}

// computeMaxConsecutiveLosses finds the longest streak of non-positive
// trade P&L. Trades must be in chronological order.
func computeMaxConsecutiveLosses(trades []*domain.Trade) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range trades {
		if t.TotalPnl.IsPositive() {
			currentStreak = 0
			continue
		}
		currentStreak++
		if currentStreak > maxStreak {
			maxStreak = currentStreak
		}
	}
	return maxStreak
}

// dailyReturns converts daily capital snapshots into simple returns.
// Days with zero opening capital are skipped.
func dailyReturns(daily []*domain.DailyResult) []float64 {
	returns := make([]float64, 0, len(daily))
	for _, d := range daily {
		if !d.OpenCapital.IsPositive() {
			continue
		}
		r, _ := d.Pnl.Div(d.OpenCapital).Float64()
		returns = append(returns, r)
	}
	return returns
}

// annualizeReturn compounds the total return over the observed day count.
func annualizeReturn(totalReturn float64, days int) float64 {
	if days == 0 || totalReturn <= -1 {
		return 0
	}
	return (math.Pow(1+totalReturn, annualTradingDays/float64(days)) - 1) * 100
}

// computeSharpe is the annualized Sharpe ratio over daily returns with a
// zero risk-free rate.
func computeSharpe(returns []float64) float64 {
	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)
	if stddev == 0 {
		return 0
	}
	return mean / stddev * math.Sqrt(annualTradingDays)
}

// computeSortino penalizes downside deviation only.
func computeSortino(returns []float64) float64 {
	mean := computeMean(returns)

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	if len(returns) < 2 || downside == 0 {
		return 0
	}
	downsideDev := math.Sqrt(downside / float64(len(returns)-1))
	return mean / downsideDev * math.Sqrt(annualTradingDays)
}

// computeMean calculates the arithmetic mean.
func computeMean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}
