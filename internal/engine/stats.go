package engine

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// RUNNING STATS - Pure reducer over the closed-trade stream
// ═══════════════════════════════════════════════════════════════════════════════
//
// Totals are order-independent; drawdown depends on chronological order, so
// trades must be recorded in timestamp order (the engine closes them that way).
//
// ═══════════════════════════════════════════════════════════════════════════════

// BucketStats accumulates a per-asset or per-group subtotal.
type BucketStats struct {
	Trades int
	Wins   int
	PnLUSD decimal.Decimal
}

// Stats holds running aggregates over closed trades. Implements TradeSink.
type Stats struct {
	Trades int
	Wins   int
	Losses int

	UpTrades    int
	DownTrades  int
	TargetExits int
	Settlements int

	TotalPnLUSD decimal.Decimal
	PeakPnLUSD  decimal.Decimal
	// Drawdown = TotalPnLUSD − PeakPnLUSD, always ≤ 0.
	DrawdownUSD    decimal.Decimal
	MaxDrawdownUSD decimal.Decimal

	BestWinUSD   decimal.Decimal
	WorstLossUSD decimal.Decimal

	byAsset map[Asset]*BucketStats
	byGroup map[string]*BucketStats
}

func NewStats() *Stats {
	return &Stats{
		byAsset: make(map[Asset]*BucketStats),
		byGroup: make(map[string]*BucketStats),
	}
}

// TradeClosed folds one closed trade into the running aggregates.
func (s *Stats) TradeClosed(t Trade) {
	s.Trades++
	if t.Outcome == OutcomeWin {
		s.Wins++
	} else {
		s.Losses++
	}
	if t.Side == SideUp {
		s.UpTrades++
	} else {
		s.DownTrades++
	}
	if t.Status == StatusClosedTarget {
		s.TargetExits++
	} else {
		s.Settlements++
	}

	s.TotalPnLUSD = s.TotalPnLUSD.Add(t.PnLUSD)
	if s.TotalPnLUSD.GreaterThan(s.PeakPnLUSD) {
		s.PeakPnLUSD = s.TotalPnLUSD
	}
	s.DrawdownUSD = s.TotalPnLUSD.Sub(s.PeakPnLUSD)
	if s.DrawdownUSD.LessThan(s.MaxDrawdownUSD) {
		s.MaxDrawdownUSD = s.DrawdownUSD
	}

	if t.PnLUSD.GreaterThan(s.BestWinUSD) {
		s.BestWinUSD = t.PnLUSD
	}
	if t.PnLUSD.LessThan(s.WorstLossUSD) {
		s.WorstLossUSD = t.PnLUSD
	}

	s.bucket(s.byAsset, t.Asset).add(t)
	s.groupBucket(t.GroupID).add(t)
}

func (b *BucketStats) add(t Trade) {
	b.Trades++
	if t.Outcome == OutcomeWin {
		b.Wins++
	}
	b.PnLUSD = b.PnLUSD.Add(t.PnLUSD)
}

func (s *Stats) bucket(m map[Asset]*BucketStats, asset Asset) *BucketStats {
	b, ok := m[asset]
	if !ok {
		b = &BucketStats{}
		m[asset] = b
	}
	return b
}

func (s *Stats) groupBucket(id string) *BucketStats {
	b, ok := s.byGroup[id]
	if !ok {
		b = &BucketStats{}
		s.byGroup[id] = b
	}
	return b
}

// WinRate returns wins/trades in [0,1], zero when no trades closed.
func (s *Stats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// Asset returns the subtotal for one asset.
func (s *Stats) Asset(asset Asset) (BucketStats, bool) {
	b, ok := s.byAsset[asset]
	if !ok {
		return BucketStats{}, false
	}
	return *b, true
}

// Group returns the subtotal for one group configuration.
func (s *Stats) Group(id string) (BucketStats, bool) {
	b, ok := s.byGroup[id]
	if !ok {
		return BucketStats{}, false
	}
	return *b, true
}

// Assets lists assets with at least one closed trade, sorted for stable output.
func (s *Stats) Assets() []Asset {
	out := make([]Asset, 0, len(s.byAsset))
	for a := range s.byAsset {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Groups lists group ids with at least one closed trade, sorted.
func (s *Stats) Groups() []string {
	out := make([]string, 0, len(s.byGroup))
	for g := range s.byGroup {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
