package tradelog

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polylag/lagbot/internal/engine"
)

func sampleTrade() engine.Trade {
	start := time.Date(2025, 3, 1, 14, 15, 0, 0, time.UTC)
	return engine.Trade{
		ID:          "20250301_1415_XRP_UP",
		Asset:       "XRP",
		Side:        engine.SideUp,
		GroupID:     "G1",
		WindowStart: start,
		WindowEnd:   start.Add(15 * time.Minute),
		EntryTime:   start.Add(12 * time.Minute),
		EntryPrice:  decimal.RequireFromString("0.30"),
		ExitTime:    start.Add(13 * time.Minute),
		ExitPrice:   decimal.RequireFromString("0.91"),
		ExitReason:  engine.ReasonTargetReached,
		Status:      engine.StatusClosedTarget,
		Outcome:     engine.OutcomeWin,
		StakeUSD:    decimal.RequireFromString("1"),
		PnLUSD:      decimal.RequireFromString("0.61"),
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriterAppendsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	w, err := New(path)
	require.NoError(t, err)
	w.TradeClosed(sampleTrade())
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, header, rows[0])

	row := rows[1]
	assert.Equal(t, "20250301_1415_XRP_UP", row[0])
	assert.Equal(t, "20250301_1415", row[1])
	assert.Equal(t, "XRP", row[2])
	assert.Equal(t, "UP", row[3])
	assert.Equal(t, "TARGET_REACHED", row[9])
	assert.Equal(t, "0.61", row[13])
	assert.Equal(t, "false", row[14])
}

func TestWriterHeaderWrittenOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	w, err := New(path)
	require.NoError(t, err)
	w.TradeClosed(sampleTrade())
	require.NoError(t, w.Close())

	// Reopen, as a restarted process would.
	w, err = New(path)
	require.NoError(t, err)
	w.TradeClosed(sampleTrade())
	require.NoError(t, w.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.NotEqual(t, header, rows[1])
	assert.NotEqual(t, header, rows[2])
}

func TestWriterCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "trades.csv")

	w, err := New(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(path)
	assert.NoError(t, err)
}
