package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderTradesCSV renders the trade list as CSV string.
func RenderTradesCSV(trades []TradeRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,signal,direction,entry_time,exit_time,entry_spot,exit_spot,")
	sb.WriteString("strike,side,hedged,outcome,exit_reason,total_pnl\n")

	// Rows
	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%.2f,%.2f,%.2f,%s,%t,%s,%s,%s\n",
			t.TradeID,
			t.Signal,
			t.Direction,
			t.EntryTime.Format(time.RFC3339),
			t.ExitTime.Format(time.RFC3339),
			t.EntrySpot,
			t.ExitSpot,
			t.Strike,
			t.Side,
			t.Hedged,
			t.Outcome,
			t.ExitReason,
			t.TotalPnl.StringFixed(2),
		))
	}

	return sb.String()
}

// RenderSignalsCSV renders the per-signal breakdown as CSV string.
func RenderSignalsCSV(signals []SignalRow) string {
	var sb strings.Builder

	sb.WriteString("signal,trades,wins,losses,win_rate,total_pnl\n")

	for _, s := range signals {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%d,%.6f,%s\n",
			s.Signal,
			s.Trades,
			s.Wins,
			s.Losses,
			s.WinRate,
			s.TotalPnl.StringFixed(2),
		))
	}

	return sb.String()
}
