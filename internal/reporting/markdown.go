package reporting

import (
	"fmt"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s | Status: %s\n\n", r.RunID, r.Status))
	if r.Error != "" {
		sb.WriteString(fmt.Sprintf("Error: %s\n\n", r.Error))
	}
	sb.WriteString(fmt.Sprintf("Range: %s to %s\n\n",
		r.RangeFrom.Format(timeLayout), r.RangeTo.Format(timeLayout)))

	// Run Summary
	sb.WriteString("## Run Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %s |\n", r.InitialCapital.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Final Capital | %s |\n", r.Summary.FinalCapital.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total P&L | %s |\n", r.Summary.TotalPnl.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.Summary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Winning Trades | %d |\n", r.Summary.WinningTrades))
	sb.WriteString(fmt.Sprintf("| Losing Trades | %d |\n", r.Summary.LosingTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", r.Summary.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", r.Summary.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| Annualized Return | %.2f%% |\n", r.Summary.AnnualizedReturnPct))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s (%.2f%%) |\n",
		r.Summary.MaxDrawdown.StringFixed(2), r.Summary.MaxDrawdownPct))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", r.Summary.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Sortino Ratio | %.4f |\n", r.Summary.SortinoRatio))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", r.Summary.MaxConsecutiveLosses))
	sb.WriteString("\n")

	// Per-Signal Breakdown
	sb.WriteString("## Signal Breakdown\n\n")
	if len(r.Signals) > 0 {
		sb.WriteString("| Signal | Trades | Wins | Losses | WinRate | Total P&L |\n")
		sb.WriteString("|--------|--------|------|--------|---------|----------|\n")
		for _, s := range r.Signals {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.2f%% | %s |\n",
				s.Signal, s.Trades, s.Wins, s.Losses, s.WinRate*100, s.TotalPnl.StringFixed(2)))
		}
	} else {
		sb.WriteString("No signals triggered.\n")
	}
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) > 0 {
		sb.WriteString("| Trade | Signal | Direction | Entry | Exit | Strike | Side | Hedged | Outcome | Reason | P&L |\n")
		sb.WriteString("|-------|--------|-----------|-------|------|--------|------|--------|---------|--------|-----|\n")
		for _, t := range r.Trades {
			hedged := "no"
			if t.Hedged {
				hedged = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.2f | %s | %s | %s | %s | %s |\n",
				t.TradeID, t.Signal, t.Direction,
				t.EntryTime.Format(timeLayout), t.ExitTime.Format(timeLayout),
				t.Strike, t.Side, hedged, t.Outcome, t.ExitReason, t.TotalPnl.StringFixed(2)))
		}
	} else {
		sb.WriteString("No trades closed.\n")
	}
	sb.WriteString("\n")

	// Skipped Weeks
	if len(r.SkippedWeeks) > 0 {
		sb.WriteString("## Skipped Weeks\n\n")
		for _, w := range r.SkippedWeeks {
			sb.WriteString(fmt.Sprintf("- %s\n", w.Format("2006-01-02")))
		}
		sb.WriteString("\n")
	}

	// Missing Prices
	if len(r.MissingPrices) > 0 {
		sb.WriteString("## Missing Prices\n\n")
		sb.WriteString(fmt.Sprintf("%d option quotes could not be resolved.\n\n", len(r.MissingPrices)))
		sb.WriteString("| Timestamp | Strike | Side | Expiry |\n")
		sb.WriteString("|-----------|--------|------|--------|\n")
		for _, m := range r.MissingPrices {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %s | %s |\n",
				m.Timestamp.Format(timeLayout), m.Strike, m.Side, m.Expiry.Format("2006-01-02")))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
