package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Params is the full strategy parameter surface consumed by the engine.
// Every threshold is supplied at construction; nothing is hard-coded.
type Params struct {
	Groups []GroupConfig

	WindowDuration    time.Duration
	EntryMinRemaining time.Duration
	EntryMaxRemaining time.Duration

	// Reference-group zones.
	ZoneHighMin decimal.Decimal
	ZoneHighMax decimal.Decimal
	ZoneLowMin  decimal.Decimal
	ZoneLowMax  decimal.Decimal

	// Laggard zone bounds.
	LaggardLowMax  decimal.Decimal
	LaggardHighMin decimal.Decimal

	// Exit targets.
	ExitUpThreshold   decimal.Decimal
	ExitDownThreshold decimal.Decimal

	StakeUSD         decimal.Decimal
	PayoutMultiplier decimal.Decimal

	// A settlement price observed more than this long before window end is
	// flagged stale on the trade record.
	SettleStaleness time.Duration
}

var (
	one  = decimal.NewFromInt(1)
	half = decimal.NewFromFloat(0.5)
)

// Validate rejects absent or out-of-domain parameters with a descriptive error.
func (p Params) Validate() error {
	if len(p.Groups) == 0 {
		return fmt.Errorf("no group configurations")
	}
	for _, g := range p.Groups {
		if err := g.Validate(); err != nil {
			return err
		}
	}
	if p.WindowDuration <= 0 {
		return fmt.Errorf("window duration must be positive, got %s", p.WindowDuration)
	}
	if p.EntryMinRemaining < 0 || p.EntryMaxRemaining <= p.EntryMinRemaining {
		return fmt.Errorf("entry band invalid: min=%s max=%s", p.EntryMinRemaining, p.EntryMaxRemaining)
	}
	if p.EntryMaxRemaining > p.WindowDuration {
		return fmt.Errorf("entry band max %s exceeds window duration %s", p.EntryMaxRemaining, p.WindowDuration)
	}
	for name, v := range map[string]decimal.Decimal{
		"zone_high_min":    p.ZoneHighMin,
		"zone_high_max":    p.ZoneHighMax,
		"zone_low_min":     p.ZoneLowMin,
		"zone_low_max":     p.ZoneLowMax,
		"laggard_low_max":  p.LaggardLowMax,
		"laggard_high_min": p.LaggardHighMin,
		"exit_up":          p.ExitUpThreshold,
		"exit_down":        p.ExitDownThreshold,
	} {
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("%s must be in [0,1], got %s", name, v)
		}
	}
	if p.ZoneHighMin.GreaterThan(p.ZoneHighMax) {
		return fmt.Errorf("zone_high_min %s above zone_high_max %s", p.ZoneHighMin, p.ZoneHighMax)
	}
	if p.ZoneLowMin.GreaterThan(p.ZoneLowMax) {
		return fmt.Errorf("zone_low_min %s above zone_low_max %s", p.ZoneLowMin, p.ZoneLowMax)
	}
	if !p.StakeUSD.IsPositive() {
		return fmt.Errorf("stake must be positive, got %s", p.StakeUSD)
	}
	if !p.PayoutMultiplier.IsPositive() {
		return fmt.Errorf("payout multiplier must be positive, got %s", p.PayoutMultiplier)
	}
	if p.SettleStaleness < 0 {
		return fmt.Errorf("settle staleness must not be negative, got %s", p.SettleStaleness)
	}
	return nil
}
