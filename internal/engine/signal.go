package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SIGNAL DETECTOR - Group + Laggard divergence
// ═══════════════════════════════════════════════════════════════════════════════
//
// UP:   every reference asset inside the high zone AND laggard at or below
//       the laggard low bound → buy UP on the laggard.
// DOWN: every reference asset inside the low zone AND laggard at or above
//       the laggard high bound → buy DOWN on the laggard.
//
// UP is checked before DOWN, and group configs are evaluated in fixed order;
// the first one that fires wins the tick.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Side is the direction of a binary-market trade.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// GroupConfig pairs a reference group with the laggard it trades.
type GroupConfig struct {
	ID         string
	References []Asset
	Laggard    Asset
}

// Validate checks the structural invariants of a group configuration.
func (g GroupConfig) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("group config missing id")
	}
	if len(g.References) < 2 {
		return fmt.Errorf("group %s: need at least 2 reference assets, have %d", g.ID, len(g.References))
	}
	if g.Laggard == "" {
		return fmt.Errorf("group %s: missing laggard asset", g.ID)
	}
	for _, ref := range g.References {
		if ref == g.Laggard {
			return fmt.Errorf("group %s: laggard %s is also a reference asset", g.ID, g.Laggard)
		}
	}
	return nil
}

// Involves reports whether asset participates in the group as reference or laggard.
func (g GroupConfig) Involves(asset Asset) bool {
	if asset == g.Laggard {
		return true
	}
	for _, ref := range g.References {
		if ref == asset {
			return true
		}
	}
	return false
}

// Signal is an entry decision produced and consumed within one engine tick.
type Signal struct {
	GroupID      string
	Side         Side
	Laggard      Asset
	LaggardPrice decimal.Decimal
	GroupPrices  map[Asset]decimal.Decimal
	DetectedAt   time.Time
}

// Detector evaluates group configurations against the latest snapshots.
type Detector struct {
	zoneHighMin    decimal.Decimal
	zoneHighMax    decimal.Decimal
	zoneLowMin     decimal.Decimal
	zoneLowMax     decimal.Decimal
	laggardLowMax  decimal.Decimal
	laggardHighMin decimal.Decimal

	entryMinRemaining time.Duration
	entryMaxRemaining time.Duration
}

func NewDetector(p Params) *Detector {
	return &Detector{
		zoneHighMin:       p.ZoneHighMin,
		zoneHighMax:       p.ZoneHighMax,
		zoneLowMin:        p.ZoneLowMin,
		zoneLowMax:        p.ZoneLowMax,
		laggardLowMax:     p.LaggardLowMax,
		laggardHighMin:    p.LaggardHighMin,
		entryMinRemaining: p.EntryMinRemaining,
		entryMaxRemaining: p.EntryMaxRemaining,
	}
}

// Eligible reports whether the time left in the laggard's window permits entry.
// Entries too early are unreliable, entries too late cannot reach the exit
// target before settlement.
func (d *Detector) Eligible(remaining time.Duration) bool {
	return remaining >= d.entryMinRemaining && remaining <= d.entryMaxRemaining
}

// Evaluate checks one group configuration. It returns nil when any required
// price is missing, the entry allowance is already consumed, the remaining
// time is outside the entry band, or the zone conditions do not hold.
func (d *Detector) Evaluate(group GroupConfig, snaps *Snapshots, remaining time.Duration, entryUsed bool, now time.Time) *Signal {
	if entryUsed || !d.Eligible(remaining) {
		return nil
	}

	laggardPrice, ok := snaps.Price(group.Laggard)
	if !ok {
		return nil
	}

	groupPrices := make(map[Asset]decimal.Decimal, len(group.References))
	for _, ref := range group.References {
		p, ok := snaps.Price(ref)
		if !ok {
			return nil
		}
		groupPrices[ref] = p
	}

	// UP takes priority over DOWN if both could somehow hold.
	if allInRange(groupPrices, d.zoneHighMin, d.zoneHighMax) && laggardPrice.LessThanOrEqual(d.laggardLowMax) {
		return &Signal{
			GroupID:      group.ID,
			Side:         SideUp,
			Laggard:      group.Laggard,
			LaggardPrice: laggardPrice,
			GroupPrices:  groupPrices,
			DetectedAt:   now,
		}
	}

	if allInRange(groupPrices, d.zoneLowMin, d.zoneLowMax) && laggardPrice.GreaterThanOrEqual(d.laggardHighMin) {
		return &Signal{
			GroupID:      group.ID,
			Side:         SideDown,
			Laggard:      group.Laggard,
			LaggardPrice: laggardPrice,
			GroupPrices:  groupPrices,
			DetectedAt:   now,
		}
	}

	return nil
}

func allInRange(prices map[Asset]decimal.Decimal, min, max decimal.Decimal) bool {
	for _, p := range prices {
		if p.LessThan(min) || p.GreaterThan(max) {
			return false
		}
	}
	return true
}
