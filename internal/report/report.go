// Package report renders the end-of-run summary from the running statistics.
package report

import (
	"fmt"
	"io"

	"github.com/polylag/lagbot/internal/engine"
)

// Write prints a backtest/session summary to w.
func Write(w io.Writer, s *engine.Stats) {
	line := "============================================================"

	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "RESULTS")
	fmt.Fprintln(w, line)

	fmt.Fprintln(w, "\nTRADE STATISTICS")
	fmt.Fprintf(w, "  Total Trades:        %d\n", s.Trades)
	fmt.Fprintf(w, "  Winning Trades:      %d (%.1f%%)\n", s.Wins, s.WinRate()*100)
	fmt.Fprintf(w, "  Losing Trades:       %d\n", s.Losses)
	fmt.Fprintf(w, "  UP / DOWN:           %d / %d\n", s.UpTrades, s.DownTrades)
	fmt.Fprintf(w, "  Target Exits:        %d\n", s.TargetExits)
	fmt.Fprintf(w, "  Settlements:         %d\n", s.Settlements)

	fmt.Fprintln(w, "\nP&L STATISTICS")
	fmt.Fprintf(w, "  Total P&L:           $%s\n", s.TotalPnLUSD.StringFixed(2))
	fmt.Fprintf(w, "  Best Win:            $%s\n", s.BestWinUSD.StringFixed(2))
	fmt.Fprintf(w, "  Worst Loss:          $%s\n", s.WorstLossUSD.StringFixed(2))
	fmt.Fprintf(w, "  Max Drawdown:        $%s\n", s.MaxDrawdownUSD.StringFixed(2))

	if groups := s.Groups(); len(groups) > 0 {
		fmt.Fprintln(w, "\nPER-GROUP PERFORMANCE")
		for _, g := range groups {
			b, _ := s.Group(g)
			fmt.Fprintf(w, "  %s:  %d trades | %d wins | $%s\n", g, b.Trades, b.Wins, b.PnLUSD.StringFixed(2))
		}
	}

	if assets := s.Assets(); len(assets) > 0 {
		fmt.Fprintln(w, "\nPER-ASSET PERFORMANCE")
		for _, a := range assets {
			b, _ := s.Asset(a)
			fmt.Fprintf(w, "  %s:  %d trades | %d wins | $%s\n", a, b.Trades, b.Wins, b.PnLUSD.StringFixed(2))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, line)
}
