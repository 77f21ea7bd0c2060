package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openUpTrade() *Trade {
	w := &Window{Start: windowStart, End: windowStart.Add(15 * time.Minute)}
	sig := &Signal{
		GroupID:      "G1",
		Side:         SideUp,
		Laggard:      "XRP",
		LaggardPrice: d("0.30"),
		DetectedAt:   windowStart.Add(12 * time.Minute),
	}
	return newTrade(sig, w, d("1"))
}

func openDownTrade() *Trade {
	w := &Window{Start: windowStart, End: windowStart.Add(15 * time.Minute)}
	sig := &Signal{
		GroupID:      "G1",
		Side:         SideDown,
		Laggard:      "XRP",
		LaggardPrice: d("0.55"),
		DetectedAt:   windowStart.Add(12 * time.Minute),
	}
	return newTrade(sig, w, d("1"))
}

func TestNewTradeID(t *testing.T) {
	tr := openUpTrade()
	assert.Equal(t, "20250301_1415_XRP_UP", tr.ID)
	assert.Equal(t, StatusOpen, tr.Status)
	assert.Equal(t, "20250301_1415_XRP_DOWN", openDownTrade().ID)
}

func TestTargetHit(t *testing.T) {
	up := openUpTrade()
	assert.False(t, up.targetHit(d("0.89"), d("0.90"), d("0.10")))
	assert.True(t, up.targetHit(d("0.90"), d("0.90"), d("0.10")))
	assert.True(t, up.targetHit(d("0.95"), d("0.90"), d("0.10")))

	down := openDownTrade()
	assert.False(t, down.targetHit(d("0.11"), d("0.90"), d("0.10")))
	assert.True(t, down.targetHit(d("0.10"), d("0.90"), d("0.10")))
}

func TestCloseAtTarget(t *testing.T) {
	tr := openUpTrade()
	exitAt := windowStart.Add(13 * time.Minute)
	require.NoError(t, tr.closeAtTarget(d("0.91"), exitAt))

	assert.Equal(t, StatusClosedTarget, tr.Status)
	assert.Equal(t, ReasonTargetReached, tr.ExitReason)
	assert.Equal(t, OutcomeWin, tr.Outcome)
	assert.True(t, tr.PnLUSD.Equal(d("0.61")))
	assert.Equal(t, exitAt, tr.ExitTime)
}

func TestCloseAtTargetDownSide(t *testing.T) {
	tr := openDownTrade()
	require.NoError(t, tr.closeAtTarget(d("0.09"), windowStart.Add(13*time.Minute)))

	assert.Equal(t, OutcomeWin, tr.Outcome)
	assert.True(t, tr.PnLUSD.Equal(d("0.46")), "pnl = (0.55-0.09)*1, got %s", tr.PnLUSD)
}

func TestSettle(t *testing.T) {
	end := windowStart.Add(15 * time.Minute)
	mult := d("1.95")

	tests := []struct {
		name    string
		trade   func() *Trade
		final   string
		outcome Outcome
		pnl     string
	}{
		{"up wins above half", openUpTrade, "0.60", OutcomeWin, "0.95"},
		{"up loses below half", openUpTrade, "0.40", OutcomeLoss, "-1"},
		{"up loses at exactly half", openUpTrade, "0.50", OutcomeLoss, "-1"},
		{"down wins below half", openDownTrade, "0.40", OutcomeWin, "0.95"},
		{"down loses at exactly half", openDownTrade, "0.50", OutcomeLoss, "-1"},
		{"down loses above half", openDownTrade, "0.60", OutcomeLoss, "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.trade()
			require.NoError(t, tr.settle(d(tt.final), end, mult, ReasonWindowExpiry, false))
			assert.Equal(t, StatusClosedSettlement, tr.Status)
			assert.Equal(t, tt.outcome, tr.Outcome)
			assert.True(t, tr.PnLUSD.Equal(d(tt.pnl)), "got %s", tr.PnLUSD)
		})
	}
}

func TestClosedTradeRejectsFurtherTransitions(t *testing.T) {
	end := windowStart.Add(15 * time.Minute)

	tr := openUpTrade()
	require.NoError(t, tr.closeAtTarget(d("0.91"), end))
	assert.Error(t, tr.closeAtTarget(d("0.95"), end))
	assert.Error(t, tr.settle(d("0.60"), end, d("1.95"), ReasonWindowExpiry, false))

	tr2 := openUpTrade()
	require.NoError(t, tr2.settle(d("0.60"), end, d("1.95"), ReasonWindowExpiry, false))
	assert.Error(t, tr2.settle(d("0.60"), end, d("1.95"), ReasonWindowExpiry, false))
	assert.False(t, tr2.targetHit(d("0.95"), d("0.90"), d("0.10")))
}
