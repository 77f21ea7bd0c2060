package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TRADE LIFECYCLE - OPEN → CLOSED_TARGET | CLOSED_SETTLEMENT
// ═══════════════════════════════════════════════════════════════════════════════

// TradeStatus is the lifecycle state of a trade. Closed states are terminal.
type TradeStatus string

const (
	StatusOpen             TradeStatus = "OPEN"
	StatusClosedTarget     TradeStatus = "CLOSED_TARGET"
	StatusClosedSettlement TradeStatus = "CLOSED_SETTLEMENT"
)

// Outcome is the resolved result of a closed trade.
type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Exit reasons recorded on closed trades.
const (
	ReasonTargetReached = "TARGET_REACHED"
	ReasonWindowExpiry  = "WINDOW_EXPIRY"
	ReasonShutdown      = "SHUTDOWN"
)

// Trade is a single position on a laggard asset. The engine owns it from
// creation until closure, after which it is handed by value to the trade sinks.
type Trade struct {
	ID      string
	Asset   Asset
	Side    Side
	GroupID string

	WindowStart time.Time
	WindowEnd   time.Time

	EntryTime  time.Time
	EntryPrice decimal.Decimal
	StakeUSD   decimal.Decimal

	Status     TradeStatus
	ExitTime   time.Time
	ExitPrice  decimal.Decimal
	ExitReason string
	Outcome    Outcome
	PnLUSD     decimal.Decimal

	// PriceStale marks settlements priced from an observation well before
	// window end (feed outage at expiry).
	PriceStale bool
}

func newTrade(sig *Signal, w *Window, stake decimal.Decimal) *Trade {
	return &Trade{
		ID:          fmt.Sprintf("%s_%s_%s", w.ID(), sig.Laggard, sig.Side),
		Asset:       sig.Laggard,
		Side:        sig.Side,
		GroupID:     sig.GroupID,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		EntryTime:   sig.DetectedAt,
		EntryPrice:  sig.LaggardPrice,
		StakeUSD:    stake,
		Status:      StatusOpen,
	}
}

// targetHit reports whether the observed price crosses the trade's exit target.
func (t *Trade) targetHit(price, exitUp, exitDown decimal.Decimal) bool {
	if t.Status != StatusOpen {
		return false
	}
	if t.Side == SideUp {
		return price.GreaterThanOrEqual(exitUp)
	}
	return price.LessThanOrEqual(exitDown)
}

// closeAtTarget closes the trade at the triggering observed price. The exit is
// a market-price sale, so P&L is the realized delta times stake, not a binary
// payout.
func (t *Trade) closeAtTarget(price decimal.Decimal, at time.Time) error {
	if t.Status != StatusOpen {
		return fmt.Errorf("trade %s already %s", t.ID, t.Status)
	}
	t.Status = StatusClosedTarget
	t.ExitTime = at
	t.ExitPrice = price
	t.ExitReason = ReasonTargetReached

	var delta decimal.Decimal
	if t.Side == SideUp {
		delta = price.Sub(t.EntryPrice)
	} else {
		delta = t.EntryPrice.Sub(price)
	}
	t.PnLUSD = delta.Mul(t.StakeUSD)
	if t.PnLUSD.IsPositive() {
		t.Outcome = OutcomeWin
	} else {
		t.Outcome = OutcomeLoss
	}
	return nil
}

// settle resolves the trade at window end as a binary redemption. An UP trade
// wins when the final price is above 0.50, a DOWN trade when below; exactly
// 0.50 settles as a loss for both sides. A win pays stake×(multiplier−1),
// a loss forfeits the stake.
func (t *Trade) settle(finalPrice decimal.Decimal, at time.Time, payoutMultiplier decimal.Decimal, reason string, stale bool) error {
	if t.Status != StatusOpen {
		return fmt.Errorf("trade %s already %s", t.ID, t.Status)
	}
	t.Status = StatusClosedSettlement
	t.ExitTime = at
	t.ExitPrice = finalPrice
	t.ExitReason = reason
	t.PriceStale = stale

	won := false
	if t.Side == SideUp {
		won = finalPrice.GreaterThan(half)
	} else {
		won = finalPrice.LessThan(half)
	}

	if won {
		t.Outcome = OutcomeWin
		t.PnLUSD = t.StakeUSD.Mul(payoutMultiplier.Sub(one))
	} else {
		t.Outcome = OutcomeLoss
		t.PnLUSD = t.StakeUSD.Neg()
	}
	return nil
}
