package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowAdvanceFloorsToBoundary(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{
			"mid window",
			time.Date(2025, 3, 1, 14, 22, 37, 0, time.UTC),
			time.Date(2025, 3, 1, 14, 15, 0, 0, time.UTC),
		},
		{
			"exact boundary",
			time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC),
			time.Date(2025, 3, 1, 14, 30, 0, 0, time.UTC),
		},
		{
			"just before boundary",
			time.Date(2025, 3, 1, 14, 29, 59, 0, time.UTC),
			time.Date(2025, 3, 1, 14, 15, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewWindowTracker(15 * time.Minute)
			w, err := tr.Advance("BTC", tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Start)
			assert.Equal(t, tt.want.Add(15*time.Minute), w.End)
		})
	}
}

func TestWindowAdvanceRollsOver(t *testing.T) {
	tr := NewWindowTracker(15 * time.Minute)

	w1, err := tr.Advance("BTC", windowStart.Add(time.Minute))
	require.NoError(t, err)
	tr.MarkEntryUsed("BTC")
	assert.True(t, w1.EntryUsed)

	// Same window: same instance, allowance still consumed.
	w2, err := tr.Advance("BTC", windowStart.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Same(t, w1, w2)

	// Next window: fresh allowance.
	w3, err := tr.Advance("BTC", windowStart.Add(16*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, windowStart.Add(15*time.Minute), w3.Start)
	assert.False(t, w3.EntryUsed)
}

func TestWindowAdvanceSkipsGaps(t *testing.T) {
	// A feed outage spanning several windows jumps straight to the current one.
	tr := NewWindowTracker(15 * time.Minute)

	_, err := tr.Advance("BTC", windowStart)
	require.NoError(t, err)

	w, err := tr.Advance("BTC", windowStart.Add(67*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, windowStart.Add(60*time.Minute), w.Start)
}

func TestWindowAdvanceRejectsClockRegression(t *testing.T) {
	tr := NewWindowTracker(15 * time.Minute)

	w, err := tr.Advance("BTC", windowStart.Add(5*time.Minute))
	require.NoError(t, err)

	_, err = tr.Advance("BTC", windowStart.Add(-time.Second))
	require.Error(t, err)

	// State unchanged after the rejection.
	cur, ok := tr.Current("BTC")
	require.True(t, ok)
	assert.Same(t, w, cur)
}

func TestWindowRemaining(t *testing.T) {
	tr := NewWindowTracker(15 * time.Minute)
	_, err := tr.Advance("BTC", windowStart)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, tr.Remaining("BTC", windowStart))
	assert.Equal(t, 3*time.Minute, tr.Remaining("BTC", windowStart.Add(12*time.Minute)))
	assert.Equal(t, time.Duration(0), tr.Remaining("BTC", windowStart.Add(15*time.Minute)))
	assert.Equal(t, time.Duration(0), tr.Remaining("ETH", windowStart))
}

func TestWindowID(t *testing.T) {
	w := Window{Start: time.Date(2025, 3, 1, 14, 15, 0, 0, time.UTC)}
	assert.Equal(t, "20250301_1415", w.ID())
}
