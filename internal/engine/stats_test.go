package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedTrade(asset Asset, group string, side Side, status TradeStatus, pnl string) Trade {
	outcome := OutcomeWin
	if d(pnl).LessThanOrEqual(d("0")) {
		outcome = OutcomeLoss
	}
	return Trade{
		Asset:   asset,
		GroupID: group,
		Side:    side,
		Status:  status,
		Outcome: outcome,
		PnLUSD:  d(pnl),
	}
}

func TestStatsAggregates(t *testing.T) {
	s := NewStats()
	s.TradeClosed(closedTrade("XRP", "G1", SideUp, StatusClosedTarget, "0.61"))
	s.TradeClosed(closedTrade("SOL", "G2", SideDown, StatusClosedSettlement, "-1"))
	s.TradeClosed(closedTrade("XRP", "G1", SideUp, StatusClosedSettlement, "0.95"))

	assert.Equal(t, 3, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 2, s.UpTrades)
	assert.Equal(t, 1, s.DownTrades)
	assert.Equal(t, 1, s.TargetExits)
	assert.Equal(t, 2, s.Settlements)
	assert.InDelta(t, 2.0/3.0, s.WinRate(), 1e-9)

	assert.True(t, s.TotalPnLUSD.Equal(d("0.56")))
	assert.True(t, s.BestWinUSD.Equal(d("0.95")))
	assert.True(t, s.WorstLossUSD.Equal(d("-1")))

	xrp, ok := s.Asset("XRP")
	require.True(t, ok)
	assert.Equal(t, 2, xrp.Trades)
	assert.Equal(t, 2, xrp.Wins)
	assert.True(t, xrp.PnLUSD.Equal(d("1.56")))

	g2, ok := s.Group("G2")
	require.True(t, ok)
	assert.Equal(t, 1, g2.Trades)
	assert.Equal(t, 0, g2.Wins)

	assert.Equal(t, []Asset{"SOL", "XRP"}, s.Assets())
	assert.Equal(t, []string{"G1", "G2"}, s.Groups())
}

func TestStatsDrawdownTracksPeak(t *testing.T) {
	s := NewStats()

	// Up to a peak, down through a trough, partial recovery.
	pnls := []string{"1", "0.5", "-1", "-1", "0.95"}
	for _, p := range pnls {
		s.TradeClosed(closedTrade("XRP", "G1", SideUp, StatusClosedSettlement, p))
	}

	// Peak 1.5 after two wins; trough at -0.5 puts drawdown at -2.
	assert.True(t, s.PeakPnLUSD.Equal(d("1.5")))
	assert.True(t, s.MaxDrawdownUSD.Equal(d("-2")))
	assert.True(t, s.DrawdownUSD.Equal(d("-1.05")))
	assert.True(t, s.TotalPnLUSD.Equal(d("0.45")))
}

func TestStatsDrawdownNeverPositive(t *testing.T) {
	s := NewStats()
	pnls := []string{"-1", "0.5", "2", "-0.3", "1", "-1", "-1", "3"}
	for _, p := range pnls {
		s.TradeClosed(closedTrade("SOL", "G2", SideDown, StatusClosedTarget, p))
		assert.False(t, s.DrawdownUSD.IsPositive(), "drawdown must never be positive")
		assert.False(t, s.MaxDrawdownUSD.IsPositive())
		assert.True(t, s.PeakPnLUSD.GreaterThanOrEqual(s.TotalPnLUSD))
	}
}

func TestStatsEmpty(t *testing.T) {
	s := NewStats()
	assert.Zero(t, s.WinRate())
	assert.Empty(t, s.Assets())
	_, ok := s.Asset("BTC")
	assert.False(t, ok)
}
