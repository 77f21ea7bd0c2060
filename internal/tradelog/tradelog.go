// Package tradelog appends closed trades to a CSV file, one row per trade,
// with every field needed to recompute the running statistics offline.
package tradelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/polylag/lagbot/internal/engine"
)

var header = []string{
	"trade_id", "window_id", "asset", "side", "group_config",
	"entry_time", "entry_price", "exit_time", "exit_price", "exit_reason",
	"status", "outcome", "stake_usd", "pnl_usd", "price_stale",
}

// Writer appends closed trades to a CSV file. Implements engine.TradeSink.
type Writer struct {
	file *os.File
	csv  *csv.Writer
}

// New opens (or creates) the trade log. The header is written only when the
// file is new, so restarts keep appending to the same log.
func New(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}

	w := &Writer{file: f, csv: csv.NewWriter(f)}
	if fresh {
		if err := w.csv.Write(header); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.csv.Flush()
	}
	return w, nil
}

// TradeClosed implements engine.TradeSink, flushing each row immediately so
// the log survives a crash.
func (w *Writer) TradeClosed(t engine.Trade) {
	row := []string{
		t.ID,
		t.WindowStart.UTC().Format("20060102_1504"),
		string(t.Asset),
		string(t.Side),
		t.GroupID,
		t.EntryTime.UTC().Format(time.RFC3339),
		t.EntryPrice.String(),
		t.ExitTime.UTC().Format(time.RFC3339),
		t.ExitPrice.String(),
		t.ExitReason,
		string(t.Status),
		string(t.Outcome),
		t.StakeUSD.String(),
		t.PnLUSD.String(),
		strconv.FormatBool(t.PriceStale),
	}
	if err := w.csv.Write(row); err != nil {
		log.Error().Err(err).Str("trade", t.ID).Msg("Failed to log trade")
		return
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		log.Error().Err(err).Msg("Trade log flush failed")
	}
}

func (w *Writer) Close() error {
	w.csv.Flush()
	return w.file.Close()
}
